package auth

import (
	"fmt"
	"time"
)

const defaultTimeout = 2 * time.Hour

// TokenManager binds the process-wide secret and timeout window to a
// TokenService so handlers and middleware never pass the secret around.
type TokenManager struct {
	tokens  *TokenService
	secret  []byte
	timeout time.Duration
}

// NewTokenManager builds a manager. The secret must not be modified after this
// call; it is shared read-only by every request.
func NewTokenManager(secret []byte, timeout time.Duration, clock Clock) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret: %w", ErrInvalidKey)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TokenManager{
		tokens:  NewTokenService(clock, HMACSigner{}),
		secret:  secret,
		timeout: timeout,
	}, nil
}

// GenerateToken issues a token for principal and reports when it stops being
// accepted.
func (tm *TokenManager) GenerateToken(principal string) (string, time.Time, error) {
	token, issuedAt, err := tm.tokens.issue(principal, tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Unix(int64(issuedAt), 0).Add(tm.timeout).UTC()
	return token, expiresAt, nil
}

// ParseToken verifies token and returns its principal.
func (tm *TokenManager) ParseToken(token string) (string, error) {
	return tm.tokens.Verify(token, tm.secret, tm.timeout)
}

// Timeout returns the configured validity window.
func (tm *TokenManager) Timeout() time.Duration {
	return tm.timeout
}
