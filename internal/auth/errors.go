package auth

import "errors"

var (
	// ErrTokenInvalid covers every way a presented token can fail before its
	// age is considered: bad encoding, wrong field count, or MAC mismatch.
	// Callers must not distinguish between these causes.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a well-formed, correctly signed token that is
	// older than the configured timeout window.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidPrincipal indicates a principal that cannot be carried by the
	// wire format (empty, or containing the field separator).
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrInvalidKey indicates a signing key the MAC cannot use.
	ErrInvalidKey = errors.New("invalid signing key")
)
