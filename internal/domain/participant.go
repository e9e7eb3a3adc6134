package domain

const guestPrefix = "Guest-"

type Participant struct {
	ID   string
	Name string
}

// DisplayName returns name, or Guest-<first five characters of id> when name is blank.
func DisplayName(id, name string) string {
	if name != "" {
		return name
	}
	short := id
	if len(short) > 5 {
		short = short[:5]
	}
	return guestPrefix + short
}
