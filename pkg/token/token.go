// Package token mints and verifies the HS256 bearer tokens used against the
// development posts service. The token names the author of new posts.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const Issuer = "postfeed"

var (
	ErrorMissingSecret = errors.New("missing signing secret")
	ErrorMissingName   = errors.New("missing author name")
	ErrorInvalidToken  = errors.New("invalid token")
)

type Claims struct {
	jwt.StandardClaims
	Name string `json:"name"`
}

// New signs a token for the named author. A zero ttl means no expiry.
func New(name string, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrorMissingSecret
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrorMissingName
	}

	now := time.Now().UTC()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:   Issuer,
			Subject:  name,
			IssuedAt: now.Unix(),
		},
		Name: name,
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token and returns its claims.
func Parse(raw string, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrorMissingSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidToken, err)
	}
	if !parsed.Valid || claims.Name == "" {
		return nil, ErrorInvalidToken
	}
	return claims, nil
}

// FromHeader extracts the token from an Authorization header value. It returns
// "" when the header carries no bearer token.
func FromHeader(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
