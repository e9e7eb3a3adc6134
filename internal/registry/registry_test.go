package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/codecollab/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRegistry_MembershipOrderAndNames(t *testing.T) {
	r := New()

	r.SetParticipant("abc123", domain.Participant{ID: "a", Name: "A"})
	r.SetParticipant("abc123", domain.Participant{ID: "b", Name: "B"})
	r.SetParticipant("abc123", domain.Participant{ID: "c", Name: "B"})
	assert.Equal(t, []string{"A", "B", "B"}, r.Names("abc123"), "duplicates kept")

	r.SetParticipant("abc123", domain.Participant{ID: "a", Name: "Ada"})
	assert.Equal(t, []string{"Ada", "B", "B"}, r.Names("abc123"), "rename keeps position")

	assert.True(t, r.RemoveParticipant("abc123", "b"))
	assert.False(t, r.RemoveParticipant("abc123", "b"))
	assert.Equal(t, []string{"Ada", "B"}, r.Names("abc123"))
	assert.Equal(t, []string{"a", "c"}, r.Members("abc123"))

	assert.Empty(t, r.Names("missing"))
}

func TestRegistry_SnapshotUnsetVersusEmpty(t *testing.T) {
	r := New()
	r.EnsureRoom("r1")

	_, ok := r.Code("r1")
	assert.False(t, ok)
	_, ok = r.Language("r1")
	assert.False(t, ok)

	r.SetCode("r1", "")
	code, ok := r.Code("r1")
	assert.True(t, ok, "empty string is a value, not unset")
	assert.Equal(t, "", code)

	r.SetCode("r1", "x=1")
	r.SetCode("r1", "x=2")
	code, _ = r.Code("r1")
	assert.Equal(t, "x=2", code, "last writer wins")

	r.SetLanguage("r1", "python")
	snap, ok := r.Snapshot("r1")
	require.True(t, ok)
	assert.Equal(t, "x=2", snap.Code)
	assert.Equal(t, "python", snap.Language)
	assert.True(t, snap.HasCode)
	assert.True(t, snap.HasLanguage)

	_, ok = r.Snapshot("nope")
	assert.False(t, ok)
}

func TestRegistry_RoomsOfAndIsMember(t *testing.T) {
	r := New()
	r.SetParticipant("r2", domain.Participant{ID: "p", Name: "P"})
	r.SetParticipant("r1", domain.Participant{ID: "p", Name: "P"})
	r.SetParticipant("r1", domain.Participant{ID: "q", Name: "Q"})

	assert.Equal(t, []string{"r1", "r2"}, r.RoomsOf("p"))
	assert.True(t, r.IsMember("r1", "q"))
	assert.False(t, r.IsMember("r2", "q"))
	assert.Empty(t, r.RoomsOf("nobody"))

	r.RemoveParticipant("r1", "p")
	r.RemoveParticipant("r2", "p")
	assert.Empty(t, r.RoomsOf("p"))
	assert.Equal(t, 1, r.Stats().Participants)
}

func TestRegistry_RoomSurvivesEmptying(t *testing.T) {
	r := New()
	r.SetParticipant("r1", domain.Participant{ID: "p", Name: "P"})
	r.SetCode("r1", "keep me")
	r.RemoveParticipant("r1", "p")

	assert.Equal(t, 1, r.Len())
	code, ok := r.Code("r1")
	assert.True(t, ok)
	assert.Equal(t, "keep me", code)
	assert.Empty(t, r.Names("r1"))
}

func TestRegistry_SweepEvictsIdleRooms(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	r := New(WithIdleTTL(time.Minute), WithClock(clock.now))

	r.SetParticipant("busy", domain.Participant{ID: "a", Name: "A"})
	r.SetParticipant("idle", domain.Participant{ID: "b", Name: "B"})
	r.SetCode("idle", "old")
	r.RemoveParticipant("idle", "b")

	clock.advance(30 * time.Second)
	assert.Empty(t, r.Sweep(clock.now()), "not idle long enough")

	r.SetParticipant("idle", domain.Participant{ID: "b", Name: "B"})
	clock.advance(2 * time.Minute)
	assert.Empty(t, r.Sweep(clock.now()), "rejoin resets the idle timer")
	code, _ := r.Code("idle")
	assert.Equal(t, "old", code, "snapshot kept across rejoin")

	r.RemoveParticipant("idle", "b")
	clock.advance(61 * time.Second)
	assert.Equal(t, []string{"idle"}, r.Sweep(clock.now()))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.Stats().Evicted)

	_, ok := r.Code("idle")
	assert.False(t, ok)
}

func TestRegistry_SweepDisabledWithZeroTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := New(WithClock(clock.now))
	r.EnsureRoom("r1")

	clock.advance(365 * 24 * time.Hour)
	assert.Nil(t, r.Sweep(clock.now()))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Name(t *testing.T) {
	r := New()
	r.SetParticipant("r1", domain.Participant{ID: "p", Name: "Pat"})

	name, ok := r.Name("r1", "p")
	assert.True(t, ok)
	assert.Equal(t, "Pat", name)

	_, ok = r.Name("r1", "q")
	assert.False(t, ok)
	_, ok = r.Name("r2", "p")
	assert.False(t, ok)
}
