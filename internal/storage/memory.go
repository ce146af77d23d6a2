package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/sendrec/videoexp/internal/playlist"
)

// MemoryStore keeps documents in process memory. Contents are lost on
// restart; it backs local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]playlist.Playlist
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]playlist.Playlist)}
}

func (s *MemoryStore) Get(_ context.Context, experienceID string) (playlist.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.docs[experienceID]
	if !ok {
		return playlist.Playlist{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, experienceID string, p playlist.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[experienceID] = p.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, experienceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, experienceID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs))
	for id := range s.docs {
		names = append(names, DocumentName(id))
	}
	sort.Strings(names)
	return names, nil
}
