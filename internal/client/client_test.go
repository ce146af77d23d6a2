package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/experience"
	"github.com/sendrec/videoexp/internal/playlist"
	"github.com/sendrec/videoexp/internal/storage"
)

func TestGet_SendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/experience-data" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("experienceId"); got != "exp_1" {
			t.Errorf("expected experienceId exp_1, got %q", got)
		}
		if got := r.Header.Get(auth.DefaultTokenHeader); got != "tok" {
			t.Errorf("expected token header, got %q", got)
		}
		_, _ = w.Write([]byte(`{"title":"Course","subtitle":"","videos":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", Token: "tok"})
	p, err := c.Get(context.Background(), "exp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Title != "Course" {
		t.Errorf("expected title Course, got %q", p.Title)
	}
}

func TestGet_MapsPlaylistSource(t *testing.T) {
	tests := []struct {
		source string
		want   error
	}{
		{experience.SourceStored, nil},
		{"", nil},
		{experience.SourceDefault, storage.ErrNotFound},
		{experience.SourceFallback, ErrServedDefaults},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tt.source != "" {
				w.Header().Set(experience.SourceHeader, tt.source)
			}
			_, _ = w.Write([]byte(`{"title":"Course","subtitle":"","videos":[]}`))
		}))

		_, err := New(Config{BaseURL: srv.URL}).Get(context.Background(), "exp_1")
		srv.Close()
		if tt.want == nil && err != nil {
			t.Errorf("%q: unexpected error: %v", tt.source, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.source, tt.want, err)
		}
	}
}

func TestPut_SendsDocument(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		received, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok", TokenHeader: "x-whop-user-token"})
	if err := c.Put(context.Background(), "exp_1", playlist.Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := playlist.Decode(received)
	if err != nil {
		t.Fatalf("server received invalid document: %v", err)
	}
	if len(p.Videos) != 3 {
		t.Errorf("expected 3 videos, got %d", len(p.Videos))
	}
}

func TestErrorsMapToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"Forbidden", http.StatusForbidden, `{"error":"Admin access required"}`, auth.ErrAccessDenied},
		{"Unauthorized", http.StatusUnauthorized, `{"error":"invalid user token"}`, auth.ErrInvalidToken},
		{"NotConfigured", http.StatusInternalServerError, `{"error":"storage not configured"}`, storage.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(Config{BaseURL: srv.URL}).Put(context.Background(), "exp_1", playlist.Default())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tt.status {
				t.Errorf("expected StatusError with code %d, got %v", tt.status, err)
			}
		})
	}
}

func TestAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/experience-data/access" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"hasAccess":true,"accessLevel":"admin","userId":"user-1","fieldLimits":{"title":100}}`))
	}))
	defer srv.Close()

	info, err := New(Config{BaseURL: srv.URL}).Access(context.Background(), "exp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.IsAdmin() || info.UserID != "user-1" {
		t.Errorf("expected admin user-1, got %+v", info)
	}
	if info.FieldLimits["title"] != 100 {
		t.Errorf("expected title limit 100, got %v", info.FieldLimits)
	}
}

func TestListAndDeleteStored(t *testing.T) {
	var deleted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/experience-data/admin" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"success":true,"files":["experience-a.json","experience-b.json"]}`))
		case http.MethodDelete:
			deleted = true
			_, _ = w.Write([]byte(`{"success":true}`))
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	files, err := c.ListStored(context.Background(), "exp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[0] != "experience-a.json" {
		t.Errorf("unexpected files: %v", files)
	}

	if err := c.DeleteStored(context.Background(), "exp_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("expected DELETE request")
	}
}

func TestIsAccessDenied(t *testing.T) {
	if !IsAccessDenied(&StatusError{Code: http.StatusForbidden}) {
		t.Error("expected 403 to be access denied")
	}
	if IsAccessDenied(&StatusError{Code: http.StatusBadRequest}) {
		t.Error("expected 400 not to be access denied")
	}
}
