package auth

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the principal performing actions, used to attribute sales.
// Anonymous identities have no email or password hash.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"display_name,omitempty"`
	Anonymous    bool      `json:"anonymous"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the payload for creating a credentialed identity.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// LoginRequest is the payload for signing in with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session pairs an identity with its signed token.
type Session struct {
	Identity *Identity `json:"identity"`
	Token    string    `json:"token"`
}
