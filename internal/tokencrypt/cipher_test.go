package tokencrypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvalidKeySize(t *testing.T) {
	_, err := New([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := []byte("12345678901234567890123456789012")
	c, err := New(key)
	require.NoError(t, err)

	plaintext := []byte("super-secret-access-token")
	blob, err := c.Seal(plaintext)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(blob, plaintext))

	got, err := c.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenTooShort(t *testing.T) {
	key := []byte("12345678901234567890123456789012")
	c, err := New(key)
	require.NoError(t, err)

	_, err = c.Open([]byte("x"))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestOpenTampered(t *testing.T) {
	key := []byte("12345678901234567890123456789012")
	c, err := New(key)
	require.NoError(t, err)

	blob, err := c.Seal([]byte("hello"))
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xFF

	_, err = c.Open(blob)
	assert.Error(t, err)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	pass := []byte("correct horse battery staple")
	salt := []byte("fixed-salt")

	k1, err := DeriveKey(pass, salt)
	require.NoError(t, err)
	k2, err := DeriveKey(pass, salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, aesKeySize)

	k3, err := DeriveKey(pass, []byte("other-salt"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}
