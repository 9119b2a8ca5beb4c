// Package secrets loads the token signing key into guarded, read-only memory.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
)

// ErrEmptySecret indicates that no key material was found.
var ErrEmptySecret = errors.New("empty secret")

// SigningKey holds the shared secret in a locked buffer that is frozen after
// creation, so any write to it faults.
type SigningKey struct {
	buf *memguard.LockedBuffer
}

// FromBytes moves data into a new SigningKey. The caller's slice is wiped.
func FromBytes(data []byte) (*SigningKey, error) {
	if len(data) == 0 {
		return nil, ErrEmptySecret
	}
	buf := memguard.NewBufferFromBytes(data)
	buf.Freeze()
	return &SigningKey{buf: buf}, nil
}

// FromFile reads a key from path. Surrounding whitespace, such as a trailing
// newline left by an editor, is not part of the key.
func FromFile(path string) (*SigningKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	defer memguard.WipeBytes(raw)

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret file %s: %w", path, ErrEmptySecret)
	}
	key := make([]byte, len(trimmed))
	copy(key, trimmed)
	return FromBytes(key)
}

// Load prefers the file when path is set and falls back to the literal value.
func Load(path, literal string) (*SigningKey, error) {
	if path != "" {
		return FromFile(path)
	}
	return FromBytes([]byte(literal))
}

// Bytes returns a read-only view of the key. Writing to it crashes the process.
func (k *SigningKey) Bytes() []byte {
	if k == nil || k.buf == nil {
		return nil
	}
	return k.buf.Bytes()
}

// Size returns the key length in bytes.
func (k *SigningKey) Size() int {
	if k == nil || k.buf == nil {
		return 0
	}
	return k.buf.Size()
}

// Destroy wipes the key. It must only be called once nothing reads Bytes.
func (k *SigningKey) Destroy() {
	if k != nil && k.buf != nil {
		k.buf.Destroy()
	}
}
