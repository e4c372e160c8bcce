package app

import (
	"encoding/json"

	"github.com/watchroom/server/internal/domain"
)

// Inbound payloads, unmarshalled straight off the wire. Required fields
// carry validate tags; a failure there is a ValidationError reported to
// the sender only.

type JoinParams struct {
	User   *domain.User  `json:"user" validate:"required"`
	RoomID domain.RoomID `json:"roomId" validate:"required"`
}

type VideoLoadParams struct {
	RoomID   domain.RoomID     `json:"roomId" validate:"required"`
	Kind     domain.SourceKind `json:"type" validate:"required"`
	VideoID  string            `json:"videoId"`
	VideoURL string            `json:"videoUrl"`
	UserID   domain.UserID     `json:"userId" validate:"required"`
}

type VideoActionParams struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
	Action domain.Action `json:"action" validate:"required,oneof=play pause seek restart"`
	Time   *float64      `json:"time"`
	UserID domain.UserID `json:"userId" validate:"required"`
}

type ChatParams struct {
	RoomID  domain.RoomID `json:"roomId" validate:"required"`
	User    *domain.User  `json:"user" validate:"required"`
	Message string        `json:"message" validate:"required"`
}

type SignalParams struct {
	RoomID  domain.RoomID   `json:"roomId" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

type LeaveParams struct {
	RoomID domain.RoomID `json:"roomId" validate:"required"`
	UserID domain.UserID `json:"userId" validate:"required"`
}
