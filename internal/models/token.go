package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one row of the refresh token ledger
// Exactly one row exists per valid refresh credential; the row is deleted
// the moment the token is rotated, logged out or found expired
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager and AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
