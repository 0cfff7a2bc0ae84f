package memory

import (
	"context"
	"sync"
)

// Directory implements ports.Directory with in-memory allow-lists.
// A nil list accepts any identifier.
type Directory struct {
	mu       sync.RWMutex
	patients map[string]bool
	doctors  map[string]bool
}

// NewDirectory creates a Directory. Pass nil to accept every patient or doctor.
func NewDirectory(patients, doctors []string) *Directory {
	return &Directory{
		patients: toSet(patients),
		doctors:  toSet(doctors),
	}
}

func toSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// AddPatient registers a patient id.
func (d *Directory) AddPatient(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.patients == nil {
		d.patients = map[string]bool{}
	}
	d.patients[id] = true
}

// AddDoctor registers a doctor id.
func (d *Directory) AddDoctor(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doctors == nil {
		d.doctors = map[string]bool{}
	}
	d.doctors[id] = true
}

func (d *Directory) PatientExists(ctx context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.patients == nil || d.patients[id], nil
}

func (d *Directory) DoctorExists(ctx context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doctors == nil || d.doctors[id], nil
}
