package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the persisted credential pair plus the identity it was issued to.
type Tokens struct {
	Access   string    `yaml:"access" json:"access"`
	Refresh  string    `yaml:"refresh" json:"refresh"`
	UserID   int       `yaml:"user_id,omitempty" json:"user_id,omitempty"`
	Username string    `yaml:"username,omitempty" json:"username,omitempty"`
	SavedAt  time.Time `yaml:"saved_at" json:"saved_at"`
}

// Valid reports whether both tokens are present.
func (t *Tokens) Valid() bool {
	return t != nil && t.Access != "" && t.Refresh != ""
}

var errNoExpiry = errors.New("token carries no exp claim")

// ExpiryOf reads the exp claim of a JWT without verifying its signature. The client
// never holds the signing key; the backend remains the authority on validity.
func ExpiryOf(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
