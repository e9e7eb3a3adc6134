package domain

// RoomSnapshot is a read-only copy of a room's converged state.
type RoomSnapshot struct {
	ID           string
	Participants []string
	Code         string
	Language     string
	HasCode      bool
	HasLanguage  bool
}

type RegistryStats struct {
	Rooms        int
	Participants int
	Evicted      int
}
