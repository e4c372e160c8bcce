// Package domain contains entity without logic, just meta-data
package domain

type (
	UserID string
	ConnID string
)

// User is the identity a client asserts at join time. ConnID is assigned
// by the server when the user joins a room, never taken from the client.
type User struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	ConnID ConnID `json:"-"`
}
