package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shantanuk7/prism-film-observatory/internal/apperrors"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
	"github.com/shantanuk7/prism-film-observatory/internal/repository"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultSigningMethod   = "HS256"
)

// Access and refresh tokens share one secret; the typ claim keeps them
// apart so an access token can never be presented as a refresh token
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"typ"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign token payloads
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	// Secret key to sign tokens
	key string

	// JWT MAC algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Refresh token ledger
	refreshRepo repository.RefreshTokenRepo
}

func New(cfg Config, refreshRepo repository.RefreshTokenRepo) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:         cfg.SecretKey,
		alg:         jwt.GetSigningMethod(cfg.Alg),
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		refreshRepo: refreshRepo,
	}, nil
}

// GeneratePair mints a signed access and refresh token for the user and
// persists the refresh token in the ledger
// The refresh token value doubles as the ledger row key; the jti claim keeps
// it globally unique even for two pairs minted within the same second
func (m *TokenManager) GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	access, err := m.sign(user, tokenTypeAccess, now, accessExpiresAt)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := m.sign(user, tokenTypeRefresh, now, refreshExpiresAt)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	_, err = m.refreshRepo.Save(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     refresh,
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

func (m *TokenManager) sign(user models.User, tokenType string, issuedAt time.Time, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.ID.String(),
				IssuedAt:  jwt.NewNumericDate(issuedAt),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Role:      user.Role.String(),
			TokenType: tokenType,
		},
	)

	return token.SignedString([]byte(m.key))
}

// ConsumeRefresh takes the presented refresh token out of the ledger
//
// The ledger row is removed first with a single conditional delete: of two
// concurrent calls presenting the same token exactly one gets the row, the
// other fails with ErrInvalidRefreshToken. Signature and embedded expiry are
// checked after the row is gone, so a tampered or expired token can never be
// retried: its row, if any existed, is already destroyed.
func (m *TokenManager) ConsumeRefresh(ctx context.Context, refresh string) (models.RefreshToken, error) {
	row, err := m.refreshRepo.Consume(ctx, refresh)
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			return row, apperrors.ErrInvalidRefreshToken
		}
		return row, fmt.Errorf("error while consuming refresh token. Err: %w", err)
	}

	if _, err := m.parse(refresh, tokenTypeRefresh); err != nil {
		return row, apperrors.ErrInvalidRefreshToken
	}

	// The stored expiry is checked as well, independent of the signed claim
	if row.ExpiresAt.Before(time.Now()) {
		return row, apperrors.ErrInvalidRefreshToken
	}

	return row, nil
}

// ParseAccess verifies the access token signature and expiry and returns
// the principal encoded in the claims
// Pure computation: no storage lookup, safe for unbounded parallel calls
func (m *TokenManager) ParseAccess(access string) (models.Principal, error) {
	claims, err := m.parse(access, tokenTypeAccess)
	if err != nil {
		return models.Principal{}, fmt.Errorf("error while parsing access token. Err: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, fmt.Errorf("malformed subject claim. Err: %w", err)
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return models.Principal{}, fmt.Errorf("malformed role claim. Err: %w", err)
	}

	return models.Principal{UserID: userID, Role: role}, nil
}

func (m *TokenManager) parse(value string, wantType string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	if claims.TokenType != wantType {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}

	return claims, nil
}
