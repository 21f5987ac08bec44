package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shantanuk7/prism-film-observatory/internal/apperrors"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
	"github.com/shantanuk7/prism-film-observatory/internal/repository/postgres"
	"github.com/shantanuk7/prism-film-observatory/internal/testutil"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin new db transaction, create the token manager and an owner user
	// Rollback transaction when test stops
	withTx := func(dbpool *pgxpool.Pool, t *testing.T, accessTTL time.Duration, refreshTTL time.Duration, fn func(m *TokenManager, user models.User)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			userRepo := &postgres.UserRepo{DB: tx}
			refreshRepo := &postgres.RefreshTokenRepo{DB: tx}

			user, err := userRepo.CreateUser(t.Context(), models.User{
				Username:       "testuser",
				Email:          "testuser@x.com",
				HashedPassword: "hashed-password",
				Role:           models.RoleContributor,
			})
			require.NoError(t, err, "owner user should be created without errors")

			m, err := New(Config{
				SecretKey:  "test-secret-key",
				AccessTTL:  accessTTL,
				RefreshTTL: refreshTTL,
			}, refreshRepo)
			require.NoError(t, err, "token manager should be created without errors")

			fn(m, user)
		})
	}

	decodeClaims := func(t *testing.T, value string) *Claims {
		t.Helper()

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
			return []byte("test-secret-key"), nil
		})
		require.NoError(t, err, "issued token should decode with the issuer secret")
		return claims
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"}, nil)
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new requires secret", func(t *testing.T) {
		_, err := New(Config{}, nil)
		require.Error(t, err, "empty secret must be rejected")
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("access claims carry subject and role", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				claims := decodeClaims(t, pair.Access.Value)
				assert.Equal(t, user.ID.String(), claims.Subject)
				assert.Equal(t, "contributor", claims.Role)
				assert.Equal(t, tokenTypeAccess, claims.TokenType)
			})
		})

		t.Run("refresh token is persisted", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				claims := decodeClaims(t, pair.Refresh.Value)
				assert.Equal(t, tokenTypeRefresh, claims.TokenType)

				row, err := m.refreshRepo.Consume(t.Context(), pair.Refresh.Value)
				require.NoError(t, err, "refresh token should have a ledger row")
				assert.Equal(t, user.ID, row.UserID)
				assert.WithinDuration(t, pair.Refresh.ExpiresAt, row.ExpiresAt, time.Second)
			})
		})

		t.Run("two pairs never share a refresh value", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				first, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)
				second, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				require.NotEqual(t, first.Refresh.Value, second.Refresh.Value)
			})
		})
	})

	t.Run("ConsumeRefresh", func(t *testing.T) {
		t.Run("succeeds exactly once", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				row, err := m.ConsumeRefresh(t.Context(), pair.Refresh.Value)
				require.NoError(t, err)
				require.Equal(t, user.ID, row.UserID)

				_, err = m.ConsumeRefresh(t.Context(), pair.Refresh.Value)
				require.Error(t, err, "second consume must fail")
				require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
			})
		})

		t.Run("fails for never issued token", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				_, err := m.ConsumeRefresh(t.Context(), "fabricated-token")

				require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
			})
		})

		t.Run("fails if expired and destroys the row", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, time.Second, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				time.Sleep(time.Second)

				_, err = m.ConsumeRefresh(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

				// Lazily expired token is gone for good
				_, err = m.refreshRepo.Consume(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			})
		})

		t.Run("access token is not a refresh token", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				_, err = m.ConsumeRefresh(t.Context(), pair.Access.Value)
				require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
			})
		})

		t.Run("tampered token with matching row is revoked", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				// A row whose token value is not a valid signed token at all
				foreign, err := New(Config{SecretKey: "other-secret"}, m.refreshRepo)
				require.NoError(t, err)
				pair, err := foreign.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				_, err = m.ConsumeRefresh(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

				// The defensive revoke has removed the row already
				_, err = m.refreshRepo.Consume(t.Context(), pair.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			})
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("returns principal", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				principal, err := m.ParseAccess(pair.Access.Value)

				require.NoError(t, err)
				require.Equal(t, user.ID, principal.UserID)
				require.Equal(t, models.RoleContributor, principal.Role)
			})
		})

		t.Run("rejects refresh token", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				_, err = m.ParseAccess(pair.Refresh.Value)
				require.Error(t, err, "refresh token must not authenticate a request")
			})
		})

		t.Run("rejects expired token", func(t *testing.T) {
			withTx(pg.Pool, t, time.Second, 24*time.Hour, func(m *TokenManager, user models.User) {
				pair, err := m.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				time.Sleep(time.Second)

				_, err = m.ParseAccess(pair.Access.Value)
				require.Error(t, err)
			})
		})

		t.Run("rejects foreign signature", func(t *testing.T) {
			withTx(pg.Pool, t, 15*time.Minute, 24*time.Hour, func(m *TokenManager, user models.User) {
				foreign, err := New(Config{SecretKey: "other-secret"}, m.refreshRepo)
				require.NoError(t, err)
				pair, err := foreign.GeneratePair(t.Context(), user)
				require.NoError(t, err)

				_, err = m.ParseAccess(pair.Access.Value)
				require.Error(t, err)
			})
		})
	})
}
