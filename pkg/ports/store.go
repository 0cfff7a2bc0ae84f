package ports

import (
	"context"
	"sort"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// SessionStore defines the interface for persisting consultations.
//
// Save is a compare-and-swap: it succeeds only when c.Version equals the stored version
// (0 for a consultation that was never saved), then increments c.Version.
// A mismatch returns domain.ErrVersionConflict and leaves the stored value untouched.
type SessionStore interface {
	// Save persists the consultation atomically.
	Save(ctx context.Context, c *domain.Consultation) error

	// Load retrieves a consultation by ID.
	// Returns domain.ErrSessionNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Consultation, error)

	// List returns consultations matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*domain.Consultation, error)
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	PatientID string
	DoctorID  string
	Statuses  []domain.Status
}

// Match reports whether c satisfies the filter.
func (f ListFilter) Match(c *domain.Consultation) bool {
	if f.PatientID != "" && c.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != "" && c.DoctorID != f.DoctorID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

// SortNewestFirst orders consultations by creation time descending, then by ID.
func SortNewestFirst(list []*domain.Consultation) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
