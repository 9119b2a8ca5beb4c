package auth

import (
	"fmt"
	"strconv"
	"time"
)

// TokenService issues and verifies stateless signed bearer tokens.
//
// There is no server-side record of issued tokens, so a token stays valid
// until it ages out of the timeout window even if the user's password changes
// or the user logs out. A TokenService holds no mutable state and may be used
// from any number of goroutines.
type TokenService struct {
	clock  Clock
	signer Signer
}

// NewTokenService composes a TokenService. Nil arguments fall back to the
// system clock and HMAC-SHA256.
func NewTokenService(clock Clock, signer Signer) *TokenService {
	if clock == nil {
		clock = SystemClock{}
	}
	if signer == nil {
		signer = HMACSigner{}
	}
	return &TokenService{clock: clock, signer: signer}
}

// Issue returns a token asserting principal, stamped with the current time and
// signed with secret.
func (s *TokenService) Issue(principal string, secret []byte) (string, error) {
	token, _, err := s.issue(principal, secret)
	return token, err
}

func (s *TokenService) issue(principal string, secret []byte) (string, uint64, error) {
	if err := ValidatePrincipal(principal); err != nil {
		return "", 0, err
	}
	issuedAt := s.clock.Now()
	sig, err := s.signer.Sign(secret, signedMessage(principal, strconv.FormatUint(issuedAt, 10)))
	if err != nil {
		return "", 0, err
	}
	return EncodeToken(principal, issuedAt, sig), issuedAt, nil
}

// Verify checks token against secret and returns the principal it asserts.
// The signature is checked before the token's age so that nothing read from an
// unauthenticated token influences the outcome beyond ErrTokenInvalid.
//
// A token whose issue time lies in the future is treated as zero seconds old.
// The timeout is inclusive: a token exactly timeout old is still accepted.
func (s *TokenService) Verify(token string, secret []byte, timeout time.Duration) (string, error) {
	parts, err := DecodeToken(token)
	if err != nil {
		return "", err
	}
	expected, err := s.signer.Sign(secret, parts.SignedMessage())
	if err != nil {
		return "", err
	}
	if !s.signer.Equal(expected, parts.Signature) {
		return "", fmt.Errorf("signature mismatch: %w", ErrTokenInvalid)
	}

	if timeout < 0 {
		return "", fmt.Errorf("negative timeout window: %w", ErrTokenExpired)
	}
	var elapsed uint64
	if now := s.clock.Now(); now > parts.IssuedAt {
		elapsed = now - parts.IssuedAt
	}
	if window := uint64(timeout / time.Second); elapsed > window {
		return "", fmt.Errorf("token is %ds old, window is %ds: %w", elapsed, window, ErrTokenExpired)
	}
	return parts.Principal, nil
}
