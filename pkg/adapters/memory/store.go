package memory

import (
	"context"
	"sync"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Consultation
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Consultation),
	}
}

// Save persists the consultation in memory if its version matches the stored one.
func (s *Store) Save(ctx context.Context, c *domain.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if existing, ok := s.data[c.ID]; ok {
		stored = existing.Version
	}
	if c.Version != stored {
		return domain.ErrVersionConflict
	}

	c.Version++
	// Copy so the caller can't mutate store state through its pointer
	s.data[c.ID] = c.Clone()
	return nil
}

// Load retrieves a copy of the consultation.
func (s *Store) Load(ctx context.Context, id string) (*domain.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return c.Clone(), nil
}

// List returns copies of the consultations matching filter, newest first.
func (s *Store) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Consultation, 0)
	for _, c := range s.data {
		if filter.Match(c) {
			out = append(out, c.Clone())
		}
	}
	ports.SortNewestFirst(out)
	return out, nil
}
