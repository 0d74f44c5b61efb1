package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSecret = []byte("gitdigest-state-secret")

const stateIssuer = "gitdigest"

// SetJWTSecret sets the key used to sign OAuth state tokens.
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// StateClaims travel through GitHub's authorize redirect as the OAuth state.
type StateClaims struct {
	Scopes []string `json:"scopes"`
	// UserID is set when an already signed-in user upgrades their scopes.
	UserID uint `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// ScopeString joins the requested scopes the way GitHub expects them.
func (c *StateClaims) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// GenerateStateToken signs a short-lived state carrying the requested scopes.
func GenerateStateToken(scopes []string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := StateClaims{
		Scopes: scopes,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseStateToken verifies the signature, issuer and expiry of a state token.
func ParseStateToken(tokenString string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(stateIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid state token")
	}
	return claims, nil
}
