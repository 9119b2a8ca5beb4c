package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSignerSign(t *testing.T) {
	var s HMACSigner

	sig, err := s.Sign([]byte("k1"), []byte("alice:1000"))
	require.NoError(t, err)
	assert.Equal(t, mustDecodeBase64(t, "P7oBovY/gZYjv8sVmwxGDUGH9vXv2KlxdxXUceUfu+Q="), sig)

	again, err := s.Sign([]byte("k1"), []byte("alice:1000"))
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	other, err := s.Sign([]byte("k2"), []byte("alice:1000"))
	require.NoError(t, err)
	assert.NotEqual(t, sig, other)

	_, err = s.Sign(nil, []byte("alice:1000"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestHMACSignerEqual(t *testing.T) {
	var s HMACSigner
	a := []byte{1, 2, 3, 4}

	assert.True(t, s.Equal(a, []byte{1, 2, 3, 4}))
	assert.False(t, s.Equal(a, []byte{1, 2, 3, 5}))
	assert.False(t, s.Equal(a, []byte{9, 2, 3, 4}))
	assert.False(t, s.Equal(a, []byte{1, 2, 3}))
	assert.False(t, s.Equal(a, nil))
}
