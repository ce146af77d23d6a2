package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sendrec/videoexp/internal/playlist"
)

const maxDocumentBytes = 4 << 20

type BucketConfig struct {
	BaseURL  string
	BucketID string
	APIKey   string
}

// BucketStore talks to the host platform's bucket REST API.
type BucketStore struct {
	config BucketConfig
	http   *http.Client

	bucketMu      sync.Mutex
	bucketEnsured bool
}

func NewBucketStore(cfg BucketConfig) *BucketStore {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &BucketStore{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type createBucketRequest struct {
	BucketID string `json:"bucket_id"`
}

type uploadRequest struct {
	FileName    string `json:"file_name"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type fileEnvelope struct {
	Content *string `json:"content"`
}

type listResponse struct {
	Files []struct {
		Name string `json:"name"`
	} `json:"files"`
}

func (s *BucketStore) configured() bool {
	return s.config.APIKey != "" && s.config.BaseURL != ""
}

// EnsureBucket creates the bucket; a 409 means it already exists.
func (s *BucketStore) EnsureBucket(ctx context.Context) error {
	if !s.configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(createBucketRequest{BucketID: s.config.BucketID})
	if err != nil {
		return fmt.Errorf("marshal bucket request: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPost, "/buckets", body)
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("create bucket: status %d", resp.StatusCode)
	}
	return nil
}

// ensureBucket creates the bucket before the first upload. A failed attempt
// is retried on the next Put.
func (s *BucketStore) ensureBucket(ctx context.Context) {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()
	if s.bucketEnsured {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.EnsureBucket(ctx); err != nil {
		slog.Warn("storage: ensure bucket failed, continuing", "bucket", s.config.BucketID, "error", err)
		return
	}
	s.bucketEnsured = true
}

func (s *BucketStore) Get(ctx context.Context, experienceID string) (playlist.Playlist, error) {
	if !s.configured() {
		return playlist.Playlist{}, ErrNotConfigured
	}
	resp, err := s.do(ctx, http.MethodGet, s.filePath(experienceID), nil)
	if err != nil {
		return playlist.Playlist{}, fmt.Errorf("get document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return playlist.Playlist{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return playlist.Playlist{}, fmt.Errorf("get document: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return playlist.Playlist{}, fmt.Errorf("read document: %w", err)
	}

	// The API either wraps the file as {"content": "<json>"} or returns it as is.
	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Content != nil {
		raw = []byte(*env.Content)
	}
	return playlist.Decode(raw)
}

func (s *BucketStore) Put(ctx context.Context, experienceID string, p playlist.Playlist) error {
	if !s.configured() {
		return ErrNotConfigured
	}
	s.ensureBucket(ctx)

	content, err := playlist.Encode(p)
	if err != nil {
		return err
	}
	body, err := json.Marshal(uploadRequest{
		FileName:    DocumentName(experienceID),
		Content:     string(content),
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("marshal upload request: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPut, "/buckets/"+url.PathEscape(s.config.BucketID)+"/upload", body)
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload document: status %d", resp.StatusCode)
	}
	return nil
}

func (s *BucketStore) Delete(ctx context.Context, experienceID string) error {
	if !s.configured() {
		return ErrNotConfigured
	}
	resp, err := s.do(ctx, http.MethodDelete, s.filePath(experienceID), nil)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete document: status %d", resp.StatusCode)
	}
	return nil
}

func (s *BucketStore) List(ctx context.Context) ([]string, error) {
	if !s.configured() {
		return nil, ErrNotConfigured
	}
	resp, err := s.do(ctx, http.MethodGet, "/buckets/"+url.PathEscape(s.config.BucketID)+"/files", nil)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list documents: status %d", resp.StatusCode)
	}

	var out listResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	names := make([]string, 0, len(out.Files))
	for _, f := range out.Files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (s *BucketStore) filePath(experienceID string) string {
	return "/buckets/" + url.PathEscape(s.config.BucketID) + "/files/" + url.PathEscape(DocumentName(experienceID))
}

func (s *BucketStore) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.http.Do(req)
}
