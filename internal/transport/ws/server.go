package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// a client that keeps flooding after this many rejected messages is cut off
	maxThrottled = 200
)

type Options struct {
	MessagesPerSecond float64
	Burst             int
	MaxMessageBytes   int64
	SendBuffer        int
	AllowedOrigins    []string // empty or "*" allows any origin
}

func (o Options) withDefaults() Options {
	if o.MessagesPerSecond == 0 {
		o.MessagesPerSecond = 50
	}
	if o.Burst <= 0 {
		o.Burst = 100
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	return o
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	opts     Options
}

func NewServer(hub *Hub, opts Options) *Server {
	opts = opts.withDefaults()
	return &Server{
		hub:  hub,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// Client is one websocket connection. Its send queue is owned by the hub:
// only the hub writes to and closes it.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	log     *slog.Logger
}

// HandleWS upgrades the request and serves the connection until it closes.
// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "ws upgrade failed", "err", err)
		return
	}

	limit := rate.Limit(s.opts.MessagesPerSecond)
	if s.opts.MessagesPerSecond < 0 {
		limit = rate.Inf
	}

	id := uuid.NewString()
	c := &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, s.opts.SendBuffer),
		limiter: rate.NewLimiter(limit, s.opts.Burst),
		log:     slog.Default().With("participant", id, "remote", r.RemoteAddr),
	}

	if !s.hub.Register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump(s.hub, s.opts.MaxMessageBytes)
}

func (c *Client) readPump(hub *Hub, maxMessageBytes int64) {
	defer func() {
		hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	throttled := 0
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug("ws read failed", "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			throttled++
			if throttled == 1 {
				hub.Reject(c, CodeRateLimited, "too many messages, slow down")
			}
			if throttled%50 == 1 {
				c.log.Warn("ws client throttled", "rejected", throttled)
			}
			if throttled > maxThrottled {
				c.log.Warn("ws client disconnected for flooding", "rejected", throttled)
				return
			}
			continue
		}
		throttled = 0

		msg, perr := decodeMessage(data)
		if perr != nil {
			hub.Reject(c, perr.Code, perr.Message)
			continue
		}
		if !hub.Dispatch(c, msg) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeMessage parses an inbound envelope into its typed payload.
func decodeMessage(data []byte) (any, *ErrorPayload) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ErrorPayload{Code: CodeBadMessage, Message: "malformed envelope: " + err.Error()}
	}

	var (
		msg    any
		roomID string
		err    error
	)
	switch env.Type {
	case TypeJoinRoom:
		var p JoinRoomPayload
		err = unmarshalPayload(env.Payload, &p)
		p.Name = strings.TrimSpace(p.Name)
		msg, roomID = p, p.RoomID
	case TypeCodeChange:
		var p CodeChangePayload
		err = unmarshalPayload(env.Payload, &p)
		msg, roomID = p, p.RoomID
	case TypeLanguageChange:
		var p LanguageChangePayload
		err = unmarshalPayload(env.Payload, &p)
		msg, roomID = p, p.RoomID
	case TypeLeaveRoom:
		var p LeaveRoomPayload
		err = unmarshalPayload(env.Payload, &p)
		msg, roomID = p, p.RoomID
	default:
		return nil, &ErrorPayload{Code: CodeUnknownEvent, Message: "unknown event " + env.Type}
	}

	if err != nil {
		return nil, &ErrorPayload{Code: CodeBadMessage, Message: env.Type + ": " + err.Error()}
	}
	if roomID == "" {
		return nil, &ErrorPayload{Code: CodeMissingRoomID, Message: env.Type + ": roomId is required"}
	}
	return msg, nil
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
