// Package crypto encrypts tenant AI credentials at rest using AES-GCM.
// Values produced by Encrypt are base64 strings; Decrypt tolerates legacy
// plain-text values so existing rows keep working after enabling a key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

var encryptionKey []byte

// SetEncryptionKey derives the AES-256 key from the configured secret.
// An empty secret disables encryption (values pass through untouched).
func SetEncryptionKey(secret string) {
	if secret == "" {
		encryptionKey = nil
		return
	}
	sum := sha256.Sum256([]byte(secret))
	encryptionKey = sum[:]
}

// Encrypt seals plainText with AES-GCM and returns it base64 encoded.
func Encrypt(plainText string) (string, error) {
	if len(encryptionKey) == 0 {
		return plainText, nil
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Inputs that do not decode or unseal are returned
// as-is, assuming a legacy plain-text credential.
func Decrypt(cipherText string) (string, error) {
	if len(encryptionKey) == 0 {
		return cipherText, nil
	}

	data, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return cipherText, nil
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	if len(data) < gcm.NonceSize() {
		return cipherText, nil
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return cipherText, nil
	}
	return string(plain), nil
}
