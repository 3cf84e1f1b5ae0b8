package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/crm-web/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the access-token fields the pages care about.
type Claims struct {
	jwt.RegisteredClaims
}

// Inspector reads backend-issued bearer tokens. With a secret configured the
// HMAC signature and expiry are checked; without one the claims are only
// decoded.
type Inspector struct {
	secret []byte
	alg    string
	parser *jwt.Parser
}

func NewInspector(cfg config.Backend) *Inspector {
	alg := cfg.JWTAlgorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	return &Inspector{
		secret: []byte(cfg.JWTSecret),
		alg:    alg,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{alg}), jwt.WithExpirationRequired()),
	}
}

// Verifies reports whether Inspect checks signatures.
func (i *Inspector) Verifies() bool { return len(i.secret) > 0 }

// Inspect decodes tokenStr and returns its subject and expiry.
func (i *Inspector) Inspect(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty access token")
	}
	claims := &Claims{}
	if !i.Verifies() {
		if _, _, err := i.parser.ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("decode access token: %w", err)
		}
		return claims, nil
	}
	token, err := i.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Email returns the "sub" claim, which the backend fills with the user's email.
func (c *Claims) Email() string { return c.Subject }

// Expiry returns the "exp" claim or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
