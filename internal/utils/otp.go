package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateSecureOTP generates a cryptographically secure 6-digit OTP code.
func GenerateSecureOTP() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	// Format with leading zeros to ensure 6 digits
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// GenerateRoomUID generates the 3-letter room code used in URLs and
// marketing material. Uniqueness is the caller's problem (retry on clash).
func GenerateRoomUID() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, 3)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		b[i] = chars[n.Int64()]
	}
	return string(b)
}
