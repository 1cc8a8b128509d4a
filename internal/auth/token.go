// Package auth verifies bearer tokens issued by the identity service. Token
// issuance, registration, and credential storage live outside this system;
// only the narrow verification surface is needed here.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified token asserts: who the caller is and whether
// they hold the staff capability. Staff checks are explicit boolean
// capability checks, never inferred from failed authorization attempts.
type Identity struct {
	UserID uuid.UUID
	Staff  bool
}

type claims struct {
	Staff bool `json:"staff"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Issue signs a token for the given identity. Used by tests and by the
// identity service sharing this secret.
func (m *TokenManager) Issue(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Staff: identity.Staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token and returns the identity it
// asserts.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}

	return Identity{UserID: userID, Staff: parsed.Staff}, nil
}
