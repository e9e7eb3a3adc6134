// Package registry holds the in-memory state of collaboration rooms:
// who is in each room and the last code and language written to it.
//
// A Registry is not safe for concurrent use. It is meant to be owned by a
// single goroutine (the websocket hub) which serializes every access.
package registry

import (
	"slices"
	"time"

	"github.com/cwrk-planet/codecollab/internal/domain"
)

type room struct {
	members []string          // participant ids in join order
	names   map[string]string // participant id -> display name

	code     string
	hasCode  bool
	language string
	hasLang  bool

	emptySince time.Time // zero while the room has members
}

type Registry struct {
	rooms   map[string]*room
	joined  map[string]map[string]struct{} // participant id -> room ids
	idleTTL time.Duration
	now     func() time.Time
	evicted int
}

type Option func(*Registry)

// WithIdleTTL evicts rooms that stayed empty for longer than ttl on Sweep.
// Zero keeps rooms forever.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.idleTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		rooms:  make(map[string]*room),
		joined: make(map[string]map[string]struct{}),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) EnsureRoom(roomID string) {
	r.ensure(roomID)
}

func (r *Registry) ensure(roomID string) *room {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{names: make(map[string]string), emptySince: r.now()}
		r.rooms[roomID] = rm
	}
	return rm
}

// SetParticipant records p as a member of roomID. A participant that is
// already a member keeps its position and gets the new name.
func (r *Registry) SetParticipant(roomID string, p domain.Participant) {
	rm := r.ensure(roomID)
	if _, ok := rm.names[p.ID]; !ok {
		rm.members = append(rm.members, p.ID)
	}
	rm.names[p.ID] = p.Name
	rm.emptySince = time.Time{}

	set, ok := r.joined[p.ID]
	if !ok {
		set = make(map[string]struct{})
		r.joined[p.ID] = set
	}
	set[roomID] = struct{}{}
}

// RemoveParticipant drops participantID from roomID. The room and its
// snapshot survive. It reports whether the participant was a member.
func (r *Registry) RemoveParticipant(roomID, participantID string) bool {
	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := rm.names[participantID]; !ok {
		return false
	}
	delete(rm.names, participantID)
	rm.members = slices.DeleteFunc(rm.members, func(id string) bool { return id == participantID })
	if len(rm.members) == 0 {
		rm.emptySince = r.now()
	}

	if set, ok := r.joined[participantID]; ok {
		delete(set, roomID)
		if len(set) == 0 {
			delete(r.joined, participantID)
		}
	}
	return true
}

func (r *Registry) SetCode(roomID, code string) {
	rm := r.ensure(roomID)
	rm.code, rm.hasCode = code, true
}

func (r *Registry) SetLanguage(roomID, language string) {
	rm := r.ensure(roomID)
	rm.language, rm.hasLang = language, true
}

// Code returns the last code written to the room; ok is false when nothing
// was ever written.
func (r *Registry) Code(roomID string) (string, bool) {
	rm, ok := r.rooms[roomID]
	if !ok || !rm.hasCode {
		return "", false
	}
	return rm.code, true
}

func (r *Registry) Language(roomID string) (string, bool) {
	rm, ok := r.rooms[roomID]
	if !ok || !rm.hasLang {
		return "", false
	}
	return rm.language, true
}

// Names lists display names in join order. Duplicates are kept.
func (r *Registry) Names(roomID string) []string {
	rm, ok := r.rooms[roomID]
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(rm.members))
	for _, id := range rm.members {
		out = append(out, rm.names[id])
	}
	return out
}

// Name returns the display name participantID joined roomID with.
func (r *Registry) Name(roomID, participantID string) (string, bool) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return "", false
	}
	name, ok := rm.names[participantID]
	return name, ok
}

// RoomsOf returns the rooms participantID is a member of, sorted.
func (r *Registry) RoomsOf(participantID string) []string {
	set := r.joined[participantID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) IsMember(roomID, participantID string) bool {
	_, ok := r.joined[participantID][roomID]
	return ok
}

// Members returns participant ids of roomID in join order.
func (r *Registry) Members(roomID string) []string {
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return slices.Clone(rm.members)
}

func (r *Registry) Snapshot(roomID string) (domain.RoomSnapshot, bool) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return domain.RoomSnapshot{}, false
	}
	return domain.RoomSnapshot{
		ID:           roomID,
		Participants: r.Names(roomID),
		Code:         rm.code,
		Language:     rm.language,
		HasCode:      rm.hasCode,
		HasLanguage:  rm.hasLang,
	}, true
}

// Len returns the number of rooms currently held.
func (r *Registry) Len() int { return len(r.rooms) }

func (r *Registry) Stats() domain.RegistryStats {
	return domain.RegistryStats{
		Rooms:        len(r.rooms),
		Participants: len(r.joined),
		Evicted:      r.evicted,
	}
}

// Sweep evicts rooms that have been empty for longer than the idle TTL and
// returns their ids. It is a no-op when the TTL is zero.
func (r *Registry) Sweep(now time.Time) []string {
	if r.idleTTL <= 0 {
		return nil
	}
	var evicted []string
	for id, rm := range r.rooms {
		if len(rm.members) > 0 || rm.emptySince.IsZero() {
			continue
		}
		if now.Sub(rm.emptySince) > r.idleTTL {
			delete(r.rooms, id)
			evicted = append(evicted, id)
		}
	}
	r.evicted += len(evicted)
	slices.Sort(evicted)
	return evicted
}
