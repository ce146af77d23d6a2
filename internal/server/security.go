package server

import (
	"net/http"
	"strings"

	"github.com/sendrec/videoexp/internal/httputil"
)

type SecurityConfig struct {
	BaseURL string
	// FrameAncestors are the host origins allowed to embed the app.
	FrameAncestors []string
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")
	embeddable := len(cfg.FrameAncestors) > 0

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()
			ctx := httputil.ContextWithNonce(r.Context(), nonce)

			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			// X-Frame-Options has no allow-list, so it is only sent when the
			// app must not be framed by other origins.
			if !embeddable {
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			}
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), fullscreen=(self \"https://www.youtube.com\" \"https://www.loom.com\")")
			w.Header().Set("Content-Security-Policy", httputil.ContentSecurityPolicy(nonce, cfg.FrameAncestors))

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
