package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sendrec/videoexp/internal/httputil"
)

type contextKey string

const userIDKey contextKey = "userID"

const (
	DefaultTokenHeader = "X-Host-User-Token"
	DevUserID          = "dev-user-123"
)

type VerifierConfig struct {
	TokenConfig
	Header string
	// DevMode lets requests without a valid token through as DevUserID.
	DevMode bool
}

// Verifier resolves the caller's identity from the host platform's user token.
type Verifier struct {
	header    string
	validator *tokenValidator
	devMode   bool
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	header := cfg.Header
	if header == "" {
		header = DefaultTokenHeader
	}
	v := &Verifier{header: header, devMode: cfg.DevMode}

	validator, err := newTokenValidator(cfg.TokenConfig)
	if err != nil {
		if !cfg.DevMode {
			return nil, err
		}
		slog.Warn("auth: no token key configured, every caller is the dev user")
	} else {
		v.validator = validator
	}
	return v, nil
}

// Verify returns the user id in the request's token.
func (v *Verifier) Verify(r *http.Request) (string, error) {
	tokenStr := r.Header.Get(v.header)
	if tokenStr == "" {
		tokenStr, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if tokenStr == "" {
		return "", ErrMissingToken
	}
	if v.validator == nil {
		return "", ErrInvalidToken
	}
	claims, err := v.validator.validate(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.User(), nil
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := v.Verify(r)
		if err != nil {
			if !v.devMode {
				if errors.Is(err, ErrMissingToken) {
					httputil.WriteError(w, http.StatusUnauthorized, "user token required")
					return
				}
				httputil.WriteError(w, http.StatusUnauthorized, "invalid user token")
				return
			}
			userID = DevUserID
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
	})
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
