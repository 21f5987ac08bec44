package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shantanuk7/prism-film-observatory/internal/apperrors"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, token, created_at, expires_at
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken, token.ID, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const consumeToken = `-- name: ConsumeRefreshToken
DELETE FROM refresh_tokens
WHERE token = $1
RETURNING id, user_id, token, created_at, expires_at
`

// Consume the token: find and delete in one statement
// The conditional delete is what makes rotation single use: of two
// concurrent calls with the same token exactly one gets the row back,
// the other gets ErrRefreshTokenNotFound
func (r *RefreshTokenRepo) Consume(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, consumeToken, tokenString)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteToken = `-- name: DeleteRefreshToken
DELETE FROM refresh_tokens
WHERE token = $1 AND user_id = $2
`

// Delete the row matching both token and owner
// Returns no error when nothing matched: revoking a revoked session must
// not leak whether the session ever existed
func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenString string, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, deleteToken, tokenString, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteForUser = `-- name: DeleteRefreshTokensForUser
DELETE FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteForUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt)
	return t, err
}
