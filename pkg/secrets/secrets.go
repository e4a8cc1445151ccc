// Package secrets seals and opens encrypted variable values with
// nacl/secretbox. The sealed form is base64 so it survives JSON storage.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Box seals and opens values with a fixed symmetric key.
type Box struct {
	key [keySize]byte
}

// NewBox builds a Box from a base64-encoded 32-byte key.
func NewBox(encodedKey string) (*Box, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}

	if len(raw) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(raw))
	}

	box := &Box{}
	copy(box.key[:], raw)

	return box, nil
}

// GenerateKey produces a fresh random key in the encoding NewBox accepts.
func GenerateKey() (string, error) {
	var key [keySize]byte

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// Seal encrypts a plaintext. The nonce is prepended to the ciphertext.
func (b *Box) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte

	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}
