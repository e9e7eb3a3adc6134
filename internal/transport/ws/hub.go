package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/codecollab/internal/domain"
	"github.com/cwrk-planet/codecollab/internal/registry"
	"github.com/cwrk-planet/codecollab/pkg/errs"
)

const eventQueue = 256

// Hub owns the room registry and every connected client. All state changes
// run on the goroutine executing Run, in the order their events were queued,
// so per-room mutations and the broadcasts they trigger never interleave.
type Hub struct {
	reg        *registry.Registry
	clients    map[string]*Client
	events     chan func()
	done       chan struct{}
	sweepEvery time.Duration

	slow    []*Client
	stopped bool
}

type Stats struct {
	domain.RegistryStats
	Connections int
}

func NewHub(reg *registry.Registry, sweepEvery time.Duration) *Hub {
	return &Hub{
		reg:        reg,
		clients:    make(map[string]*Client),
		events:     make(chan func(), eventQueue),
		done:       make(chan struct{}),
		sweepEvery: sweepEvery,
	}
}

// Run processes hub events until ctx is cancelled. On return every client
// has its send queue closed, which makes its write pump close the socket.
func (h *Hub) Run(ctx context.Context) {
	var sweep <-chan time.Time
	if h.sweepEvery > 0 {
		t := time.NewTicker(h.sweepEvery)
		defer t.Stop()
		sweep = t.C
	}
	defer h.shutdown()

	slog.Info("ws hub started", "sweep_every", h.sweepEvery)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-h.events:
			fn()
			h.dropSlow()
		case now := <-sweep:
			if evicted := h.reg.Sweep(now); len(evicted) > 0 {
				slog.Info("idle rooms evicted", "count", len(evicted), "rooms_left", h.reg.Len())
			}
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) shutdown() {
	h.stopped = true
	close(h.done)
	for {
		select {
		case fn := <-h.events:
			fn()
		default:
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			slog.Info("ws hub stopped")
			return
		}
	}
}

func (h *Hub) submit(fn func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.events <- fn:
		return true
	case <-h.done:
		return false
	}
}

// Register adds a connected client. It reports false once the hub stopped.
func (h *Hub) Register(c *Client) bool {
	return h.submit(func() {
		if h.stopped {
			close(c.send)
			return
		}
		h.clients[c.id] = c
		slog.Debug("ws client connected", "participant", c.id, "connections", len(h.clients))
	})
}

// Unregister removes the client from every room it joined.
func (h *Hub) Unregister(c *Client) {
	h.submit(func() { h.disconnect(c, "closed") })
}

// Dispatch queues an inbound event from c.
func (h *Hub) Dispatch(c *Client, msg any) bool {
	return h.submit(func() {
		if _, ok := h.clients[c.id]; !ok {
			return
		}
		h.handle(c, msg)
	})
}

// Reject sends an error event to c through the hub.
func (h *Hub) Reject(c *Client, code, message string) {
	h.submit(func() {
		if _, ok := h.clients[c.id]; ok {
			h.sendError(c, code, message)
		}
	})
}

// Snapshot returns a copy of the room's state as seen by the hub goroutine.
func (h *Hub) Snapshot(ctx context.Context, roomID string) (domain.RoomSnapshot, bool, error) {
	type result struct {
		snap domain.RoomSnapshot
		ok   bool
	}
	res, err := query(ctx, h, func() result {
		snap, ok := h.reg.Snapshot(roomID)
		return result{snap, ok}
	})
	return res.snap, res.ok, err
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	return query(ctx, h, func() Stats {
		return Stats{RegistryStats: h.reg.Stats(), Connections: len(h.clients)}
	})
}

func query[T any](ctx context.Context, h *Hub, fn func() T) (T, error) {
	var zero T
	out := make(chan T, 1)
	if !h.submit(func() { out <- fn() }) {
		return zero, fmt.Errorf("%w: hub stopped", errs.ErrUnavailable)
	}
	select {
	case v := <-out:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		// shutdown drains queued events, so the answer may still be there
		select {
		case v := <-out:
			return v, nil
		default:
			return zero, fmt.Errorf("%w: hub stopped", errs.ErrUnavailable)
		}
	}
}

func (h *Hub) handle(c *Client, msg any) {
	switch m := msg.(type) {
	case JoinRoomPayload:
		h.join(c, m)
	case CodeChangePayload:
		if !h.requireMember(c, m.RoomID, TypeCodeChange) {
			return
		}
		h.reg.SetCode(m.RoomID, m.Code)
		h.broadcast(m.RoomID, c.id, Message{Type: TypeCodeUpdate, Payload: m.Code})
	case LanguageChangePayload:
		if !h.requireMember(c, m.RoomID, TypeLanguageChange) {
			return
		}
		h.reg.SetLanguage(m.RoomID, m.Language)
		h.broadcast(m.RoomID, c.id, Message{Type: TypeLanguageUpdate, Payload: m.Language})
	case LeaveRoomPayload:
		if !h.requireMember(c, m.RoomID, TypeLeaveRoom) {
			return
		}
		h.leave(c, m.RoomID)
	default:
		slog.Warn("ws hub: unexpected message", "participant", c.id, "type", fmt.Sprintf("%T", msg))
	}
}

func (h *Hub) join(c *Client, p JoinRoomPayload) {
	name := domain.DisplayName(c.id, p.Name)
	rejoin := h.reg.IsMember(p.RoomID, c.id)

	h.reg.EnsureRoom(p.RoomID)
	h.reg.SetParticipant(p.RoomID, domain.Participant{ID: c.id, Name: name})

	if code, ok := h.reg.Code(p.RoomID); ok {
		h.send(c, Message{Type: TypeCodeUpdate, Payload: code})
	}
	if lang, ok := h.reg.Language(p.RoomID); ok {
		h.send(c, Message{Type: TypeLanguageUpdate, Payload: lang})
	}
	h.broadcast(p.RoomID, "", Message{Type: TypeRoomUsers, Payload: h.reg.Names(p.RoomID)})
	if !rejoin {
		h.broadcast(p.RoomID, c.id, Message{Type: TypeUserJoined, Payload: name})
	}

	slog.Info("participant joined", "room", p.RoomID, "participant", c.id, "name", name)
}

func (h *Hub) leave(c *Client, roomID string) {
	name, _ := h.reg.Name(roomID, c.id)
	if !h.reg.RemoveParticipant(roomID, c.id) {
		return
	}
	h.broadcast(roomID, "", Message{Type: TypeRoomUsers, Payload: h.reg.Names(roomID)})
	h.broadcast(roomID, "", Message{Type: TypeUserLeft, Payload: name})

	slog.Info("participant left", "room", roomID, "participant", c.id)
}

func (h *Hub) disconnect(c *Client, reason string) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	rooms := h.reg.RoomsOf(c.id)
	for _, roomID := range rooms {
		h.leave(c, roomID)
	}
	slog.Debug("ws client disconnected",
		"participant", c.id, "reason", reason, "rooms", len(rooms), "connections", len(h.clients))
}

func (h *Hub) requireMember(c *Client, roomID, event string) bool {
	if h.reg.IsMember(roomID, c.id) {
		return true
	}
	h.sendError(c, CodeNotJoined, fmt.Sprintf("%s: %s %q", event, errs.ErrNotJoined, roomID))
	return false
}

func (h *Hub) sendError(c *Client, code, message string) {
	h.send(c, Message{Type: TypeError, Payload: ErrorPayload{Code: code, Message: message}})
}

func (h *Hub) send(c *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws marshal failed", "type", msg.Type, "err", err)
		return
	}
	h.enqueue(c, data)
}

// broadcast sends msg to every member of roomID except the one with id
// except (empty for everyone).
func (h *Hub) broadcast(roomID, except string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws marshal failed", "type", msg.Type, "err", err)
		return
	}
	for _, id := range h.reg.Members(roomID) {
		if id == except {
			continue
		}
		if c, ok := h.clients[id]; ok {
			h.enqueue(c, data)
		}
	}
}

// enqueue never blocks the hub; a client whose queue is full is dropped
// once the current event is done.
func (h *Hub) enqueue(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.slow = append(h.slow, c)
	}
}

func (h *Hub) dropSlow() {
	for len(h.slow) > 0 {
		c := h.slow[0]
		h.slow = h.slow[1:]
		if _, ok := h.clients[c.id]; ok {
			slog.Warn("ws client too slow, dropping", "participant", c.id)
			h.disconnect(c, "slow")
		}
	}
}
