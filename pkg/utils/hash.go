package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashString creates a SHA-256 hash of the input string
func HashString(input string) string {
	h := sha256.New()
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// MaskSecret describes a secret without revealing it: its length and the
// first 8 hex characters of its SHA-256.
func MaskSecret(secret string) string {
	if secret == "" {
		return "EMPTY"
	}
	return fmt.Sprintf("len=%d, sha256[0:8]=%s", len(secret), HashString(secret)[:8])
}

// MaskEmail keeps the domain and a short hash of the local part, for logs
func MaskEmail(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return HashString(email[:i])[:8] + email[i:]
		}
	}
	return HashString(email)[:8]
}
