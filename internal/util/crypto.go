package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// AES-256-GCM helpers used for backup files.

const (
	saltSize       = 16
	kdfIterations  = 100_000
	encryptionKeyN = 32
)

// ErrEmptyKey is returned when encryption is requested without a key.
var ErrEmptyKey = errors.New("encryption key is empty")

// deriveKey stretches the configured passphrase into a 32-byte AES key.
func deriveKey(keyStr string, salt []byte) []byte {
	return pbkdf2.Key([]byte(keyStr), salt, kdfIterations, encryptionKeyN, sha256.New)
}

// EncryptAES encrypts plaintext with AES-256-GCM and returns salt+nonce+ciphertext.
func EncryptAES(keyStr string, plaintext []byte) ([]byte, error) {
	if keyStr == "" {
		return nil, ErrEmptyKey
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}

	aesgcm, err := newGCM(deriveKey(keyStr, salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// DecryptAES reverses EncryptAES; data must be salt+nonce+ciphertext.
func DecryptAES(keyStr string, data []byte) ([]byte, error) {
	if keyStr == "" {
		return nil, ErrEmptyKey
	}
	if len(data) < saltSize {
		return nil, fmt.Errorf("cipher too short")
	}
	salt, rest := data[:saltSize], data[saltSize:]

	aesgcm, err := newGCM(deriveKey(keyStr, salt))
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(rest) < ns {
		return nil, fmt.Errorf("cipher too short")
	}
	nonce, ciphertext := rest[:ns], rest[ns:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aesgcm, nil
}
