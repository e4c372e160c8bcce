package domain

import "errors"

// Both kinds are non-fatal: they are reported to the sender only and the
// connection stays open.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrBadPayload   = errors.New("malformed payload")
	ErrMissingField = errors.New("missing required field")
)
