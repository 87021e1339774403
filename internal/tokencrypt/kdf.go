package tokencrypt

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const kdfInfo = "bragerone-go token-at-rest"

// DeriveKey derives a 32-byte AES-256 key from a passphrase and salt
// using HKDF-SHA256. Callers who already hold a raw 32-byte key should
// pass it straight to New instead.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, passphrase, salt, []byte(kdfInfo))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("tokencrypt: derive key: %w", err)
	}
	return key, nil
}

// NewFromPassphrase derives a key from passphrase+salt and builds a
// Cipher from it in one step.
func NewFromPassphrase(passphrase, salt []byte) (*Cipher, error) {
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return New(key)
}
