// Package client talks to the /experience-data HTTP surface. A Client is an
// editor.Backend, so the coordinator can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/experience"
	"github.com/sendrec/videoexp/internal/playlist"
	"github.com/sendrec/videoexp/internal/storage"
)

const maxResponseBytes = 4 << 20

var ErrServedDefaults = errors.New("server could not read the stored playlist")

type Config struct {
	BaseURL     string
	Token       string
	TokenHeader string
	HTTPClient  *http.Client
}

type Client struct {
	baseURL     string
	token       string
	tokenHeader string
	httpClient  *http.Client
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known responses onto the shared sentinels.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusUnauthorized:
		return auth.ErrInvalidToken
	case e.Code == http.StatusForbidden:
		return auth.ErrAccessDenied
	case e.Message == storage.ErrNotConfigured.Error():
		return storage.ErrNotConfigured
	}
	return nil
}

// AccessInfo is the /experience-data/access response.
type AccessInfo struct {
	auth.Access
	UserID      string         `json:"userId"`
	FieldLimits map[string]int `json:"fieldLimits"`
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	header := cfg.TokenHeader
	if header == "" {
		header = auth.DefaultTokenHeader
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		tokenHeader: header,
		httpClient:  httpClient,
	}
}

// Get returns the stored playlist. It reports storage.ErrNotFound when the
// server answered with the defaults because nothing is stored, and
// ErrServedDefaults when it did so because the stored document could not be
// read.
func (c *Client) Get(ctx context.Context, experienceID string) (playlist.Playlist, error) {
	body, header, err := c.do(ctx, http.MethodGet, "/experience-data", experienceID, nil)
	if err != nil {
		return playlist.Playlist{}, err
	}
	switch header.Get(experience.SourceHeader) {
	case experience.SourceDefault:
		return playlist.Playlist{}, storage.ErrNotFound
	case experience.SourceFallback:
		return playlist.Playlist{}, ErrServedDefaults
	}
	p, err := playlist.Decode(body)
	if err != nil {
		return playlist.Playlist{}, fmt.Errorf("decode playlist: %w", err)
	}
	return p, nil
}

func (c *Client) Put(ctx context.Context, experienceID string, p playlist.Playlist) error {
	payload, err := playlist.Encode(p)
	if err != nil {
		return fmt.Errorf("encode playlist: %w", err)
	}
	_, _, err = c.do(ctx, http.MethodPut, "/experience-data", experienceID, payload)
	return err
}

func (c *Client) Access(ctx context.Context, experienceID string) (AccessInfo, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/experience-data/access", experienceID, nil)
	if err != nil {
		return AccessInfo{}, err
	}
	var info AccessInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return AccessInfo{}, fmt.Errorf("decode access: %w", err)
	}
	return info, nil
}

// ListStored returns the document names held by the storage backend.
func (c *Client) ListStored(ctx context.Context, experienceID string) ([]string, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/experience-data/admin", experienceID, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stored files: %w", err)
	}
	return resp.Files, nil
}

// DeleteStored removes the stored document so the next load sees defaults.
func (c *Client) DeleteStored(ctx context.Context, experienceID string) error {
	_, _, err := c.do(ctx, http.MethodDelete, "/experience-data/admin", experienceID, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, experienceID string, payload []byte) ([]byte, http.Header, error) {
	u := c.baseURL + path + "?experienceId=" + url.QueryEscape(experienceID)

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(c.tokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			statusErr.Message = errBody.Error
		}
		return nil, resp.Header, statusErr
	}
	return body, resp.Header, nil
}

// IsAccessDenied reports whether err came from a 403 response.
func IsAccessDenied(err error) bool {
	return errors.Is(err, auth.ErrAccessDenied)
}
