package auth

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldSeparator separates the principal, issue time and signature inside a
// token. Principals must never contain it.
const FieldSeparator = ":"

// Tokens are defined by:
// * MAC: HMAC-SHA256 over "<principal>:<issued_at>"
// * Format:
//     base64(<principal>:<issued_at decimal>:base64(<mac>))
// Both layers use standard padded base64. Decoding is strict so that every
// token has exactly one accepted spelling.
var tokenEncoding = base64.StdEncoding.Strict()

// TokenParts is the structured content of a decoded token.
type TokenParts struct {
	Principal string
	// IssuedAtText is the issue time exactly as it appeared on the wire; the
	// MAC is recomputed over this text, not a re-rendering of IssuedAt.
	IssuedAtText string
	IssuedAt     uint64
	Signature    []byte
}

// SignedMessage returns the byte string the token's MAC covers.
func (p TokenParts) SignedMessage() []byte {
	return signedMessage(p.Principal, p.IssuedAtText)
}

func signedMessage(principal, issuedAt string) []byte {
	return []byte(principal + FieldSeparator + issuedAt)
}

// ValidatePrincipal reports whether principal can be carried in a token.
func ValidatePrincipal(principal string) error {
	if principal == "" {
		return fmt.Errorf("empty principal: %w", ErrInvalidPrincipal)
	}
	if strings.Contains(principal, FieldSeparator) {
		return fmt.Errorf("principal contains %q: %w", FieldSeparator, ErrInvalidPrincipal)
	}
	if !utf8.ValidString(principal) {
		return fmt.Errorf("principal is not valid UTF-8: %w", ErrInvalidPrincipal)
	}
	return nil
}

// EncodeToken renders the wire form of a token.
func EncodeToken(principal string, issuedAt uint64, signature []byte) string {
	inner := strings.Join([]string{
		principal,
		strconv.FormatUint(issuedAt, 10),
		tokenEncoding.EncodeToString(signature),
	}, FieldSeparator)
	return tokenEncoding.EncodeToString([]byte(inner))
}

// DecodeToken parses the wire form of a token. It checks structure only; the
// signature and the token's age are left to the caller.
func DecodeToken(token string) (TokenParts, error) {
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return TokenParts{}, fmt.Errorf("decode outer layer (error: %v): %w", err, ErrTokenInvalid)
	}
	if !utf8.Valid(raw) {
		return TokenParts{}, fmt.Errorf("token is not valid UTF-8: %w", ErrTokenInvalid)
	}
	fields := strings.Split(string(raw), FieldSeparator)
	if len(fields) != 3 {
		return TokenParts{}, fmt.Errorf("token has %d fields, want 3: %w", len(fields), ErrTokenInvalid)
	}
	sig, err := tokenEncoding.DecodeString(fields[2])
	if err != nil {
		return TokenParts{}, fmt.Errorf("decode signature (error: %v): %w", err, ErrTokenInvalid)
	}
	issuedAt, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return TokenParts{}, fmt.Errorf("parse issue time (error: %v): %w", err, ErrTokenInvalid)
	}
	return TokenParts{
		Principal:    fields[0],
		IssuedAtText: fields[1],
		IssuedAt:     issuedAt,
		Signature:    sig,
	}, nil
}
