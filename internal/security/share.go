package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidShareToken is returned for malformed, tampered or expired share tokens
var ErrInvalidShareToken = errors.New("invalid share token")

// ShareClaims identifies one shared content record
type ShareClaims struct {
	jwt.RegisteredClaims
	ContentID string `json:"cid"`
	OwnerID   string `json:"oid"`
}

// ShareSigner issues and verifies read-only share links
type ShareSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewShareSigner creates a signer using HS256 and secret
func NewShareSigner(secret string, ttl time.Duration) *ShareSigner {
	return &ShareSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a token for contentID owned by ownerID and its expiry
func (s *ShareSigner) Sign(contentID, ownerID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ShareClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   contentID,
		},
		ContentID: contentID,
		OwnerID:   ownerID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the embedded claims
func (s *ShareSigner) Verify(tokenString string) (*ShareClaims, error) {
	claims := &ShareClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}
	if !token.Valid || claims.ContentID == "" || claims.OwnerID == "" {
		return nil, ErrInvalidShareToken
	}

	return claims, nil
}
