package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the same username or email exists already has to return
	// apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace the stored password hash
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// Store pending verification token on the user row
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string) error

	// Atomically set verified and clear the stored token for the user owning it
	// Must return apperrors.ErrVerificationTokenNotFound if no user owns the
	// token, so a token satisfies exactly one successful call ever
	ConsumeVerificationToken(ctx context.Context, token string) (models.User, error)

	// List all users ordered by creation time
	ListUsers(ctx context.Context) ([]models.User, error)
}

// RefreshToken repository interface (the ledger)
type RefreshTokenRepo interface {
	// Insert one ledger row
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Atomically find and delete the row keyed by token string.
	// Must return apperrors.ErrRefreshTokenNotFound if no row was removed.
	// Two concurrent calls with the same token must yield exactly one
	// success, so the implementation has to be a single conditional delete
	Consume(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Delete the row matching both token and user id
	// Idempotent: no error when no row matched
	Delete(ctx context.Context, tokenString string, userID uuid.UUID) error

	// Delete every row owned by the user, returns the number of removed rows
	DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
