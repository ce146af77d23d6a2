// Package storage persists one playlist document per experience.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/sendrec/videoexp/internal/playlist"
)

var (
	// ErrNotFound means no document has been saved for the experience yet.
	ErrNotFound = errors.New("experience document not found")
	// ErrNotConfigured means the backend lacks its credential and was not called.
	ErrNotConfigured = errors.New("storage not configured")
)

// Store is a full-document key-value store addressed by experience id.
type Store interface {
	Get(ctx context.Context, experienceID string) (playlist.Playlist, error)
	Put(ctx context.Context, experienceID string, p playlist.Playlist) error
	Delete(ctx context.Context, experienceID string) error
	List(ctx context.Context) ([]string, error)
}

const (
	documentPrefix = "experience-"
	documentSuffix = ".json"
)

// DocumentName is the file or object name an experience is stored under.
func DocumentName(experienceID string) string {
	return documentPrefix + experienceID + documentSuffix
}

// ExperienceIDFromName reverses DocumentName.
func ExperienceIDFromName(name string) (string, bool) {
	id, ok := strings.CutPrefix(name, documentPrefix)
	if !ok {
		return "", false
	}
	id, ok = strings.CutSuffix(id, documentSuffix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Unconfigured is the Store used when the selected driver has no credential.
type Unconfigured struct{}

func (Unconfigured) Get(context.Context, string) (playlist.Playlist, error) {
	return playlist.Playlist{}, ErrNotConfigured
}

func (Unconfigured) Put(context.Context, string, playlist.Playlist) error { return ErrNotConfigured }

func (Unconfigured) Delete(context.Context, string) error { return ErrNotConfigured }

func (Unconfigured) List(context.Context) ([]string, error) { return nil, ErrNotConfigured }
