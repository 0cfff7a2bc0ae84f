package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// RedactedValue replaces every match in redacted text.
const RedactedValue = "***"

type redactionMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware masks matches of the patterns inside doctor notes before they
// are persisted. Typical patterns are phone numbers or e-mail addresses.
// Redaction is one-way: Load returns the masked text.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, c *domain.Consultation) error {
	// Work on a copy so the caller keeps what the doctor typed for this request.
	masked := c.Clone()
	for _, p := range m.patterns {
		masked.DoctorNotes = p.ReplaceAllString(masked.DoctorNotes, RedactedValue)
	}
	if err := m.next.Save(ctx, masked); err != nil {
		return err
	}
	c.Version = masked.Version
	return nil
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) (*domain.Consultation, error) {
	return m.next.Load(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	return m.next.List(ctx, filter)
}
