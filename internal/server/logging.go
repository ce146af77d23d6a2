package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"
)

// CountryResolver maps a client address to an ISO country code.
type CountryResolver interface {
	Country(addr string) string
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func slogMiddleware(geo CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if ua := r.UserAgent(); ua != "" {
				parsed := useragent.New(ua)
				browser, _ := parsed.Browser()
				attrs = append(attrs, "browser", browser, "os", parsed.OS(), "bot", parsed.Bot())
			}
			if geo != nil {
				if country := geo.Country(r.RemoteAddr); country != "" {
					attrs = append(attrs, "country", country)
				}
			}
			if id := r.URL.Query().Get("experienceId"); id != "" {
				attrs = append(attrs, "experience_id", id)
			}

			slog.Info("http request", attrs...)
		})
	}
}
