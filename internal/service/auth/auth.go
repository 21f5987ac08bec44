package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shantanuk7/prism-film-observatory/internal/apperrors"
	"github.com/shantanuk7/prism-film-observatory/internal/logger"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
	"github.com/shantanuk7/prism-film-observatory/internal/repository"
)

// TokenManager issues and verifies the token pairs
type TokenManager interface {
	GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error)
	ConsumeRefresh(ctx context.Context, refresh string) (models.RefreshToken, error)
	ParseAccess(access string) (models.Principal, error)
}

type Config struct {
	// Hasher to use during registration or login
	// BcryptHasher is used when not set
	Hasher PasswordHasher

	// Let users log in without confirming the email first
	// The canonical policy keeps verification on, so the zero value gates login
	SkipVerification bool

	// Mailer for verification emails
	// When not set tokens are issued but never delivered anywhere
	Mailer Mailer

	Logger logger.Logger
}

// Auth service
// Owns the credential lifecycle: signup, login, token rotation, logout,
// password change and the email verification gate
type AuthService struct {
	token            TokenManager
	hasher           PasswordHasher
	userRepo         repository.UserRepo
	refreshRepo      repository.RefreshTokenRepo
	mailer           Mailer
	logger           logger.Logger
	skipVerification bool
}

func NewService(cfg Config, token TokenManager, userRepo repository.UserRepo, refreshRepo repository.RefreshTokenRepo) (*AuthService, error) {
	if token == nil || userRepo == nil || refreshRepo == nil {
		return nil, errors.New("token manager and repos must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	mail := cfg.Mailer
	if mail == nil {
		mail = noopMailer{}
	}

	return &AuthService{
		token:            token,
		hasher:           hasher,
		userRepo:         userRepo,
		refreshRepo:      refreshRepo,
		mailer:           mail,
		logger:           log,
		skipVerification: cfg.SkipVerification,
	}, nil
}

type noopMailer struct{}

func (noopMailer) SendVerificationEmail(ctx context.Context, email string, token string) error {
	return nil
}

// Signup creates the user and, while the verification policy is on, issues
// the verification token
// The returned pair is nil when the new user still has to verify the email
func (s *AuthService) Signup(ctx context.Context, username string, email string, password string, role models.Role) (models.User, *models.TokenPair, error) {
	var user models.User

	if !role.Valid() {
		return user, nil, fmt.Errorf("can't signup with role %q", role)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, nil, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, models.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		Role:           role,
		Verified:       s.skipVerification,
	})
	if err != nil {
		return user, nil, err
	}

	if s.skipVerification {
		pair, err := s.token.GeneratePair(ctx, user)
		if err != nil {
			return user, nil, fmt.Errorf("token could not be generated, sorry. %w", err)
		}
		return user, &pair, nil
	}

	if err := s.issueVerification(ctx, user); err != nil {
		return user, nil, err
	}

	return user, nil, nil
}

// Login verifies the password, checks the verification gate and mints a pair
// Unknown email and wrong password fail identically
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return user, pair, apperrors.ErrInvalidCredentials
		}
		return user, pair, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return user, pair, apperrors.ErrInvalidCredentials
	}

	if !s.skipVerification && !user.Verified {
		return user, pair, apperrors.ErrUserNotVerified
	}

	pair, err = s.token.GeneratePair(ctx, user)
	if err != nil {
		return user, pair, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return user, pair, nil
}

// Refresh rotates the presented refresh token for a new pair
// The old token is consumed before anything else, so it can never be used
// twice no matter how the rest of the call goes
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	row, err := s.token.ConsumeRefresh(ctx, refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.userRepo.GetUserByID(ctx, row.UserID)
	if err != nil {
		return pair, err
	}

	pair, err = s.token.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return pair, nil
}

// Logout revokes one refresh token of the user
// Idempotent: revoking an unknown or already revoked token succeeds
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refresh string) error {
	return s.refreshRepo.Delete(ctx, refresh, userID)
}

// ChangePassword re-hashes the password and drops every live session of the
// user, so stolen refresh tokens die with the old password
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current string, next string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, current); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	revoked, err := s.refreshRepo.DeleteForUser(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("revoked sessions after password change", "user_id", userID, "sessions", revoked)

	return nil
}

// Authenticate verifies an access token and returns the principal
// Stateless: signature and expiry only, the ledger is never consulted
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.Principal, error) {
	return s.token.ParseAccess(access)
}

// User returns the user record behind a principal
func (s *AuthService) User(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// ListUsers returns every user, admin surface only
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListUsers(ctx)
}
