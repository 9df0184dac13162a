package store

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptSecret seals plaintext (an exchange API key or secret) with a
// random nonce prefixed to the ciphertext, so Settings.APIKeyEncrypted /
// APISecretEncrypted are self-contained blobs.
func EncryptSecret(key [32]byte, plaintext string) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("store: build cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("store: generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// DecryptSecret reverses EncryptSecret.
func DecryptSecret(key [32]byte, blob []byte) (string, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return "", fmt.Errorf("store: build cipher: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return "", fmt.Errorf("store: encrypted blob too short")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("store: decrypt: %w", err)
	}
	return string(plaintext), nil
}
