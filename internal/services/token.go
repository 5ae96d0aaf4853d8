package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const (
	sessionTokenBytes = 32
	csrfTokenBytes    = 16
	oauthStateBytes   = 24
)

// GenerateToken returns n random bytes as unpadded URL-safe base64.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func GenerateCSRFToken() (string, error) {
	return GenerateToken(csrfTokenBytes)
}

func GenerateOAuthState() (string, error) {
	return GenerateToken(oauthStateBytes)
}

// HashToken is the lookup key stored for a bearer token; the raw value is never persisted.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
