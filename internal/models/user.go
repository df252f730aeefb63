package models

import "github.com/google/uuid"

// User is an account row. Guests connecting straight over WebSocket get an
// ephemeral user created on the fly.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`
}
