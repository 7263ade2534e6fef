package ingest

import (
	"sync"

	"github.com/papaaya/ai-navigator/internal/domain"
)

// Store keeps completed ingests in memory, keyed by ingest ID, so that
// later analysis calls can reference an already-assembled corpus.
// Entries live for the lifetime of the process.
type Store struct {
	mu      sync.RWMutex
	ingests map[string]*domain.Ingest
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{ingests: make(map[string]*domain.Ingest)}
}

// Put stores an ingest, replacing any previous entry with the same ID.
func (s *Store) Put(ing *domain.Ingest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingests[ing.ID] = ing
}

// Get returns the ingest with the given ID, or a NotFoundError.
func (s *Store) Get(id string) (*domain.Ingest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.ingests[id]
	if !ok {
		return nil, domain.NewNotFoundError("ingest", id)
	}
	return ing, nil
}

// Latest returns the most recently created ingest, or a NotFoundError
// when the store is empty. Chat calls without an explicit ingest ID
// ground against the latest corpus.
func (s *Store) Latest() (*domain.Ingest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Ingest
	for _, ing := range s.ingests {
		if latest == nil || ing.CreatedAt.After(latest.CreatedAt) {
			latest = ing
		}
	}
	if latest == nil {
		return nil, domain.NewNotFoundError("ingest", "latest")
	}
	return latest, nil
}
