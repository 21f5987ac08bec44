package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Wrong email or password. One error for both cases on purpose:
	// the caller must not learn which check failed
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Login blocked until the email is verified
	ErrUserNotVerified = errors.New("user email is not verified")

	// Ledger row is gone: rotated, revoked or never stored
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// Covers missing, expired, tampered and already rotated refresh tokens.
	// Deliberately undifferentiated to avoid oracle leakage
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Unknown, already consumed or fabricated verification token
	ErrVerificationTokenNotFound = errors.New("verification token not found")
)
