package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shantanuk7/prism-film-observatory/internal/apperrors"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, password_hash, role, verified, verification_token)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, username, email, password_hash, role, verified, verification_token
`

func (r *UserRepo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createUser,
		id, user.Username, user.Email, user.HashedPassword, user.Role, user.Verified, user.VerificationToken,
	)
	created, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrUserAlreadyExists
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, email, password_hash, role, verified, verification_token
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, username, email, password_hash, role, verified, verification_token
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET password_hash = $2
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.DB.Exec(ctx, updatePassword, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

const setVerificationToken = `-- name: SetVerificationToken
UPDATE users
SET verification_token = $2
WHERE id = $1
`

func (r *UserRepo) SetVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	tag, err := r.DB.Exec(ctx, setVerificationToken, id, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

const consumeVerificationToken = `-- name: ConsumeVerificationToken
UPDATE users
SET verified = TRUE, verification_token = NULL
WHERE verification_token = $1
RETURNING id, created_at, username, email, password_hash, role, verified, verification_token
`

// Consume verification token
// Single UPDATE so concurrent calls with the same token succeed exactly once
func (r *UserRepo) ConsumeVerificationToken(ctx context.Context, token string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, consumeVerificationToken, token)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrVerificationTokenNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, username, email, password_hash, role, verified, verification_token
FROM users
ORDER BY created_at
`

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.HashedPassword, &u.Role, &u.Verified, &u.VerificationToken)
	return u, err
}
