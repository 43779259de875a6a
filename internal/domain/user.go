package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization tier of a user.
type Role string

// Supported roles, lowest privilege first.
const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// Common validation errors for User
var (
	ErrEmptyUserID = errors.New("user ID cannot be empty")
	ErrEmptyEmail  = errors.New("email cannot be empty")
	ErrInvalidRole = errors.New("invalid role")
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is an account owned by the identity collaborator. Tasks and
// notifications reference users but never modify them.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// Summary returns the public projection embedded in task responses.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserSummary is the expanded form of a user reference on a task.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

// Actor identifies who is performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// NewActor builds an Actor from a loaded user.
func NewActor(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
