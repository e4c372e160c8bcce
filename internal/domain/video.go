package domain

import "time"

// SourceKind says where the room's video comes from. The server never
// validates the reference itself; it only forwards it.
type SourceKind string

const (
	SourceNone     SourceKind = ""
	SourceExternal SourceKind = "external"
	SourceUpload   SourceKind = "upload"
)

type Action string

const (
	ActionPlay    Action = "play"
	ActionPause   Action = "pause"
	ActionSeek    Action = "seek"
	ActionRestart Action = "restart"
)

// VideoState is the room's single shared playback record. Mutations are
// totally ordered by arrival at the server (last-writer-wins).
type VideoState struct {
	Kind          SourceKind `json:"type"`
	VideoID       string     `json:"videoId,omitempty"`
	VideoURL      string     `json:"videoUrl,omitempty"`
	Position      float64    `json:"position"`
	Playing       bool       `json:"playing"`
	LastUpdated   time.Time  `json:"-"`
	LastUpdatedBy UserID     `json:"lastUpdatedBy,omitempty"`
}
