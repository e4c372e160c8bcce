package app

import (
	"encoding/json"

	"github.com/watchroom/server/internal/domain"
)

// Inbound event types.
const (
	EventJoinRoom     = "join-room"
	EventVideoLoad    = "video-load"
	EventVideoAction  = "video-action"
	EventChatMessage  = "chat-message"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventICECandidate = "ice-candidate"
	EventLeaveRoom    = "leave-room"
	EventPing         = "ping"
)

// Outbound event types.
const (
	EventRoomJoined = "room-joined"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventError      = "error"
	EventPong       = "pong"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound payloads. Timestamps are server-assigned Unix milliseconds; a
// client-supplied timestamp is never forwarded.

type RoomJoined struct {
	RoomID            domain.RoomID      `json:"roomId"`
	UserCount         int                `json:"userCount"`
	CurrentVideoState *domain.VideoState `json:"currentVideoState"`
	Users             []domain.User      `json:"users"`
}

type UserJoined struct {
	User      domain.User   `json:"user"`
	UserCount int           `json:"userCount"`
	Users     []domain.User `json:"users"`
}

type UserLeft struct {
	UserName  string        `json:"userName"`
	UserCount int           `json:"userCount"`
	Users     []domain.User `json:"users"`
}

type VideoLoad struct {
	Kind      domain.SourceKind `json:"type"`
	VideoID   string            `json:"videoId,omitempty"`
	VideoURL  string            `json:"videoUrl,omitempty"`
	UserID    domain.UserID     `json:"userId"`
	Timestamp int64             `json:"timestamp"`
}

type VideoAction struct {
	Action    domain.Action `json:"action"`
	Time      *float64      `json:"time,omitempty"`
	UserID    domain.UserID `json:"userId"`
	Timestamp int64         `json:"timestamp"`
}

type ChatMessage struct {
	User      domain.User `json:"user"`
	Message   string      `json:"message"`
	Timestamp int64       `json:"timestamp"`
}

// SignalForward carries an offer/answer/ice-candidate payload verbatim,
// tagged with the sender's connection id.
type SignalForward struct {
	Payload json.RawMessage `json:"payload"`
	From    domain.ConnID   `json:"from"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
