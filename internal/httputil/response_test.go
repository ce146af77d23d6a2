package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSONSetsHeadersAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"BadRequest", http.StatusBadRequest},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			WriteJSON(recorder, tt.statusCode, map[string]string{"key": "value"})

			if recorder.Code != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, recorder.Code)
			}
			if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}
		})
	}
}

func TestWriteErrorBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	WriteError(recorder, http.StatusForbidden, "Admin access required")

	var body ErrorBody
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Error != "Admin access required" {
		t.Errorf("expected error message, got %q", body.Error)
	}
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()

	var v struct {
		Title string `json:"title"`
	}
	body, err := DecodeJSON(rec, req, 1024, &v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Title != "x" {
		t.Errorf("expected title x, got %q", v.Title)
	}
	if string(body) != `{"title":"x"}` {
		t.Errorf("expected raw body to be returned, got %s", body)
	}
}

func TestDecodeJSONRejectsLargeBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(strings.Repeat("a", 100)))
	rec := httptest.NewRecorder()

	if _, err := DecodeJSON(rec, req, 10, nil); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{`))
	rec := httptest.NewRecorder()

	var v map[string]any
	if _, err := DecodeJSON(rec, req, 1024, &v); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestGenerateNonceIsUniqueAndSized(t *testing.T) {
	a, b := GenerateNonce(), GenerateNonce()
	if a == b {
		t.Errorf("expected unique nonces, got %q twice", a)
	}
	// 16 bytes base64url-encoded without padding = 22 characters
	if len(a) != 22 {
		t.Errorf("expected 22-character nonce, got %d: %q", len(a), a)
	}
}

func TestNonceContextRoundTrip(t *testing.T) {
	ctx := ContextWithNonce(context.Background(), "abc")
	if got := NonceFromContext(ctx); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := NonceFromContext(context.Background()); got != "" {
		t.Errorf("expected empty nonce, got %q", got)
	}
}

func TestContentSecurityPolicy(t *testing.T) {
	csp := ContentSecurityPolicy("n1", []string{"https://host.example"})
	for _, want := range []string{
		"'nonce-n1'",
		"frame-src https://www.youtube.com https://www.loom.com;",
		"frame-ancestors 'self' https://host.example;",
	} {
		if !strings.Contains(csp, want) {
			t.Errorf("expected CSP to contain %q, got %q", want, csp)
		}
	}

	if !strings.Contains(ContentSecurityPolicy("n1", nil), "frame-ancestors 'self';") {
		t.Error("expected same-origin frame-ancestors by default")
	}
}
