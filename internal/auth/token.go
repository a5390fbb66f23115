package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by a bearer token. Subject is the caller identity; a
// non-empty CapabilityNonce marks the token as the admin's and names the
// capability issuance it transports. The token only transports identity:
// the domain core re-validates the capability itself on every call.
type Claims struct {
	CapabilityNonce string `json:"capability_nonce,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Issue signs a token for identity. capabilityNonce is empty for
// ordinary users.
func Issue(secret, identity, capabilityNonce string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		CapabilityNonce: capabilityNonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify parses and validates a token, returning its claims.
func Verify(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
