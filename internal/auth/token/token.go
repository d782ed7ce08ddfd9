// Package token generates and hashes the opaque secrets handed to
// clients: refresh tokens and export API keys. Only the SHA-256 hash is
// ever persisted.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateRandomToken returns size random bytes as an unpadded
// URL-safe base64 string.
func GenerateRandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSHA256 returns the hex SHA-256 digest used for token lookup.
func HashSHA256(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
