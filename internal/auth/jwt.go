package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("user token required")
	ErrInvalidToken = errors.New("invalid user token")
)

// HostClaims are the claims the host platform puts in its user token.
// Older tokens carry the user in userId instead of sub.
type HostClaims struct {
	UserID string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

func (c *HostClaims) User() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

type TokenConfig struct {
	Secret       string // HS256 shared secret
	PublicKeyPEM string // ES256 or RS256 public key
	Issuer       string
	Audience     string
}

type tokenValidator struct {
	key     any
	methods []string
	opts    []jwt.ParserOption
}

func newTokenValidator(cfg TokenConfig) (*tokenValidator, error) {
	v := &tokenValidator{}
	switch {
	case cfg.PublicKeyPEM != "":
		pem := []byte(cfg.PublicKeyPEM)
		if key, err := jwt.ParseECPublicKeyFromPEM(pem); err == nil {
			v.key, v.methods = key, []string{jwt.SigningMethodES256.Alg()}
		} else if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
			v.key, v.methods = key, []string{jwt.SigningMethodRS256.Alg()}
		} else {
			return nil, fmt.Errorf("parse token public key: %w", err)
		}
	case cfg.Secret != "":
		v.key, v.methods = []byte(cfg.Secret), []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, errors.New("token secret or public key is required")
	}

	v.opts = []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.opts = append(v.opts, jwt.WithAudience(cfg.Audience))
	}
	return v, nil
}

func (v *tokenValidator) validate(tokenStr string) (*HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &HostClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*HostClaims)
	if !ok || !token.Valid || claims.User() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignToken issues an HS256 host token. The host platform signs its own
// tokens; this exists for local development and tests.
func SignToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &HostClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
