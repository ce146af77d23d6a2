package httputil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"
)

type contextKey string

const nonceKey contextKey = "csp-nonce"

func GenerateNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate CSP nonce", "error", err)
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func ContextWithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey, nonce)
}

func NonceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(nonceKey).(string); ok {
		return v
	}
	return ""
}

// PlayerFrameSources are the origins the watch page may embed.
var PlayerFrameSources = []string{"https://www.youtube.com", "https://www.loom.com"}

// ContentSecurityPolicy builds the policy for pages that embed video players.
// frameAncestors lists the host origins allowed to embed this app; empty means same origin only.
func ContentSecurityPolicy(nonce string, frameAncestors []string) string {
	ancestors := "'self'"
	if len(frameAncestors) > 0 {
		ancestors += " " + strings.Join(frameAncestors, " ")
	}
	return "default-src 'self'; img-src 'self' data: https://i.ytimg.com; " +
		"script-src 'self' 'nonce-" + nonce + "'; style-src 'self' 'nonce-" + nonce + "'; " +
		"frame-src " + strings.Join(PlayerFrameSources, " ") + "; " +
		"connect-src 'self'; frame-ancestors " + ancestors + ";"
}
