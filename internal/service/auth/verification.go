package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

// Mailer delivers the verification token out of band
// Delivery failure is logged and never surfaced to the signup caller
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email string, token string) error
}

const verificationTokenBytesLen = 32

func newVerificationToken() (string, error) {
	b := make([]byte, verificationTokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating verification token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// issueVerification stores a fresh single use token on the user row and
// hands it to the mailer
func (s *AuthService) issueVerification(ctx context.Context, user models.User) error {
	token, err := newVerificationToken()
	if err != nil {
		return err
	}

	if err := s.userRepo.SetVerificationToken(ctx, user.ID, token); err != nil {
		return fmt.Errorf("error while storing verification token. Err: %w", err)
	}

	// Fire and forget: signup must not fail on mail trouble
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("verification email delivery failed", "email", user.Email, "error", err.Error())
	}

	return nil
}

// VerifyEmail consumes the token: sets verified and clears the stored value
// in one statement, so a token satisfies exactly one call ever
// Unknown, fabricated and already consumed tokens all fail the same way
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (models.User, error) {
	user, err := s.userRepo.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return user, err
	}
	return user, nil
}
