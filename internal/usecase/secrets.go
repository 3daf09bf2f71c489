package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
)

// NewSecret returns a URL-safe random bearer secret (invite tokens, emergency
// pass codes). n is the entropy in bytes.
func NewSecret(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// HashSecret is how bearer secrets are persisted: only the digest is stored,
// the plaintext is handed out once.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
