package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a closed set of user roles
// Handlers and guards must work with the constants only; external strings
// have to go through ParseRole first
type Role string

const (
	RoleObserver    Role = "observer"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// Parse role from external string (request body, db row)
// Returns error for any value outside the closed set
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleObserver, RoleContributor, RoleAdmin:
		return Role(value), nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Username       string
	Email          string
	HashedPassword string
	Role           Role
	Verified       bool

	// Pending email verification token, nil once consumed
	VerificationToken *string
}

// Principal is the authenticated identity attached to a request
// Built from access token claims only, no storage lookup involved
type Principal struct {
	UserID uuid.UUID
	Role   Role
}
