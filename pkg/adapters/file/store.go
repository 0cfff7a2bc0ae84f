package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// Store implements ports.SessionStore using the local filesystem.
// It stores consultations as JSON files in a configured directory.
//
// The version check is atomic within one process; processes sharing a directory
// must coordinate through a distributed locker.
type Store struct {
	BasePath string
	mu       sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".anamnesis/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".anamnesis", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("session id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", domain.Errorf(domain.KindValidation, "file store", "invalid session id %q", id)
	}
	return filepath.Join(s.BasePath, id+".json"), nil
}

// Save persists the consultation to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, c *domain.Consultation) error {
	destPath, err := s.path(c.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if existing, err := s.read(destPath); err == nil {
		stored = existing.Version
	} else if err != domain.ErrSessionNotFound {
		return err
	}
	if c.Version != stored {
		return domain.ErrVersionConflict
	}

	// Ensure directory exists
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	next := c.Clone()
	next.Version++
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal consultation: %w", err)
	}

	// 1. Create Temp File in the same directory (atomic rename needs the same filesystem)
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+c.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	// 2. Write Data
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	// 3. Fsync to ensure durability
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// 4. Close File (cannot rename open file on Windows)
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// 5. Atomic Rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to session: %w", err)
	}

	c.Version = next.Version
	return nil
}

// Load retrieves the consultation from its JSON file.
func (s *Store) Load(ctx context.Context, id string) (*domain.Consultation, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return s.read(p)
}

func (s *Store) read(path string) (*domain.Consultation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var c domain.Consultation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consultation: %w", err)
	}
	if c.History == nil {
		c.History = []domain.HistoryEntry{}
	}
	return &c, nil
}

// List scans the directory and returns matching consultations, newest first.
func (s *Store) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Consultation{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*domain.Consultation, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.read(filepath.Join(s.BasePath, name))
		if err != nil {
			return nil, err
		}
		if filter.Match(c) {
			out = append(out, c)
		}
	}
	ports.SortNewestFirst(out)
	return out, nil
}
