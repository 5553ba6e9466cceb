package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const MinTokenBytes = 32

// GenerateSessionToken returns an opaque bearer token and the digest stored
// in place of it. Fewer than MinTokenBytes bytes of entropy are never issued.
func GenerateSessionToken(length int) (string, string, error) {
	if length < MinTokenBytes {
		length = MinTokenBytes
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate session token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, HashSessionToken(token), nil
}

func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
