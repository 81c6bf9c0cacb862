// Package secrets encrypts stored service credentials with NaCl secretbox.
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

// ErrDecrypt is returned for blobs that were not produced with this key.
var ErrDecrypt = errors.New("credential blob could not be decrypted")

// SecretBoxStore implements shared.CredentialStore. Blobs are base64 of
// nonce || sealed box.
type SecretBoxStore struct {
	key [keySize]byte
}

// NewSecretBoxStore builds a store from a base64-encoded 32-byte key.
func NewSecretBoxStore(encodedKey string) (*SecretBoxStore, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode credential key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("credential key must be %d bytes, got %d", keySize, len(raw))
	}
	s := &SecretBoxStore{}
	copy(s.key[:], raw)
	return s, nil
}

func (s *SecretBoxStore) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *SecretBoxStore) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
