package ws

import "encoding/json"

// Client -> server events.
const (
	TypeJoinRoom       = "join-room"
	TypeCodeChange     = "code-change"
	TypeLanguageChange = "language-change"
	TypeLeaveRoom      = "leave-room"
)

// Server -> client events.
const (
	TypeCodeUpdate     = "code-update"     // payload: string
	TypeLanguageUpdate = "language-update" // payload: string
	TypeRoomUsers      = "room-users"      // payload: []string, full membership
	TypeUserJoined     = "user-joined"     // payload: string, to the others
	TypeUserLeft       = "user-left"       // payload: string, to the others
	TypeError          = "error"           // payload: ErrorPayload
)

// Error codes carried by TypeError.
const (
	CodeNotJoined     = "not_joined"
	CodeBadMessage    = "bad_message"
	CodeUnknownEvent  = "unknown_event"
	CodeRateLimited   = "rate_limited"
	CodeMissingRoomID = "missing_room_id"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// envelope is the inbound shape; the payload is decoded per event type.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type CodeChangePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type LanguageChangePayload struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
