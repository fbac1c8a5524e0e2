package types

import (
	"time"

	"github.com/google/uuid"
)

// Role of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Status models the soft-delete state shared by users and products. An enum
// rather than a boolean so future states don't force a schema change.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// User is the credential-store record. PasswordHash never serializes
// outward; refresh tokens live in their own table and are never attached
// to responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UpdateUserParams defines the fields allowed for profile updates.
// Pointers distinguish "not provided" from an empty value.
type UpdateUserParams struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// RefreshTokenEntry is one element of a user's bounded refresh-token
// history (most recent 5, oldest evicted first).
type RefreshTokenEntry struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxRefreshTokensPerUser bounds the per-user refresh-token history.
const MaxRefreshTokensPerUser = 5
