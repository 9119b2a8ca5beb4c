package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// Signer computes and compares message authentication codes.
type Signer interface {
	Sign(key, message []byte) ([]byte, error)
	Equal(a, b []byte) bool
}

// HMACSigner signs with HMAC-SHA256.
type HMACSigner struct{}

// Sign returns the HMAC-SHA256 of message under key. An empty key is rejected
// rather than silently producing a MAC anyone can forge.
func (HMACSigner) Sign(key, message []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("empty key: %w", ErrInvalidKey)
	}
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil), nil
}

// Equal compares two MACs in time independent of where they first differ.
func (HMACSigner) Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}
