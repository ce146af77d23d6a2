// Package docs serves the OpenAPI description of the HTTP API and a viewer
// for it.
package docs

import (
	"bytes"
	_ "embed"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var specYAML []byte

var relativeServer = []byte("servers:\n  - url: /\n")

// The viewer script and styles come from jsDelivr.
var viewerPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'",
	"style-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'",
	"font-src 'self' https://cdn.jsdelivr.net data:",
	"img-src 'self' data:",
	"connect-src 'self'",
	"frame-ancestors 'self'",
}, "; ") + ";"

type Handler struct {
	spec []byte
}

// New returns the docs for an API served at baseURL. With an empty baseURL
// the document keeps its relative server entry.
func New(baseURL string) *Handler {
	spec := specYAML
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		spec = bytes.Replace(specYAML, relativeServer, []byte("servers:\n  - url: "+baseURL+"\n"), 1)
	}
	return &Handler{spec: spec}
}

// Routes is meant to be mounted at /api/docs.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.viewer)
	r.Get("/openapi.yaml", h.document)
	return r
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(h.spec)
}

func (h *Handler) viewer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Security-Policy", viewerPolicy)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(viewerHTML))
}

const viewerHTML = `<!DOCTYPE html>
<html lang="en"><head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Video Experience API</title>
</head><body>
  <script id="api-reference" data-url="/api/docs/openapi.yaml" data-configuration='{"hideModels":true}'></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body></html>`
