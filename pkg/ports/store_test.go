package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/anamnesis/pkg/domain"
)

func TestListFilter_Match(t *testing.T) {
	c := &domain.Consultation{PatientID: "p1", DoctorID: "d1", Status: domain.StatusDraft}

	assert.True(t, ListFilter{}.Match(c))
	assert.True(t, ListFilter{PatientID: "p1"}.Match(c))
	assert.False(t, ListFilter{PatientID: "p2"}.Match(c))
	assert.False(t, ListFilter{DoctorID: "d2"}.Match(c))
	assert.True(t, ListFilter{Statuses: []domain.Status{domain.StatusActive, domain.StatusDraft}}.Match(c))
	assert.False(t, ListFilter{Statuses: []domain.Status{domain.StatusCompleted}}.Match(c))
}
