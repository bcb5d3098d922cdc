package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// DefaultLength is the number of random bytes backing a session token.
// 32 bytes gives 256 bits of entropy, enough to make link-guessing infeasible.
const DefaultLength = 32

// Generate returns a hex-encoded random token of n bytes.
func Generate(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Match compares a presented token against the stored one in constant time.
func Match(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
