// Package crypto implements the encrypted-document framing contract:
// IV(12) || ciphertext || tag(16), AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"keepsafe/internal/domain"

	"golang.org/x/crypto/argon2"
)

const (
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32
)

// Encrypt seals plaintext under the key with a fresh random IV. Every call
// generates its own IV; re-encrypting after redaction therefore never reuses
// one, which with GCM would be fatal.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	// Seal appends ciphertext||tag, so the blob comes out as IV||ct||tag.
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. A blob too short to contain an IV
// and a tag fails with ErrMalformedBlob; a tag that does not verify (tampered
// bytes or wrong key) fails with ErrAuthenticationFailure. Neither is
// retryable: the same blob and key cannot succeed on a second attempt.
func Decrypt(blob, key []byte) ([]byte, error) {
	if len(blob) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", domain.ErrMalformedBlob, len(blob), NonceSize+TagSize)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, domain.ErrAuthenticationFailure
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveVaultKey derives a vault key from an owner passphrase with argon2id.
func DeriveVaultKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
