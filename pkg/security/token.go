package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateToken returns a hex-encoded random token for verification and
// password reset flows.
func GenerateToken(bytes int) (string, error) {
	if bytes <= 0 {
		return "", fmt.Errorf("token length must be positive")
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
