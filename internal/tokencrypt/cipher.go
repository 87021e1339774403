// Package tokencrypt provides an at-rest cipher for encrypting a Token
// before handing it to a concrete TokenPersister implementation (the
// persister itself lives outside this module; see external.TokenPersister).
package tokencrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	aesKeySize   = 32
	gcmNonceSize = 12
)

var (
	ErrInvalidKeySize     = errors.New("tokencrypt: key must be 32 bytes for AES-256")
	ErrCiphertextTooShort = errors.New("tokencrypt: ciphertext too short")
)

// Cipher encrypts and decrypts token bytes with AES-256-GCM.
type Cipher struct {
	gcm cipher.AEAD
}

// New builds a Cipher from a raw 32-byte key. Use DeriveKey to obtain a
// key from a passphrase instead of supplying raw key material directly.
func New(key []byte) (*Cipher, error) {
	if len(key) != aesKeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("tokencrypt: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tokencrypt: new gcm: %w", err)
	}

	return &Cipher{gcm: gcm}, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("tokencrypt: generate nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a nonce||ciphertext blob produced by Seal.
func (c *Cipher) Open(blob []byte) ([]byte, error) {
	if len(blob) < gcmNonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := blob[:gcmNonceSize], blob[gcmNonceSize:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("tokencrypt: open: %w", err)
	}
	return plaintext, nil
}

// SealString is a convenience wrapper for string payloads.
func (c *Cipher) SealString(plaintext string) ([]byte, error) {
	return c.Seal([]byte(plaintext))
}

// OpenString is a convenience wrapper for string payloads.
func (c *Cipher) OpenString(blob []byte) (string, error) {
	plaintext, err := c.Open(blob)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
