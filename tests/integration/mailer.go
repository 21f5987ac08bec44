package integration

import (
	"context"
	"sync"
)

// CaptureMailer remembers the last verification token per email
type CaptureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *CaptureMailer) SendVerificationEmail(ctx context.Context, email string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[email] = token
	return nil
}

func (m *CaptureMailer) Token(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[email]
	return token, ok
}
