package domain

import "time"

type RoomID string

type Room struct {
	ID        RoomID
	CreatedAt time.Time
}
