package security

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	// SessionTokenLength is the number of characters in a session token
	SessionTokenLength = 64

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateID creates a new UUID for row identification
func GenerateID() string {
	return uuid.New().String()
}

// GenerateSessionToken returns an opaque alphanumeric token drawn
// uniformly from crypto/rand
func GenerateSessionToken() (string, error) {
	return randomString(SessionTokenLength)
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, n)

	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[num.Int64()]
	}

	return string(out), nil
}
