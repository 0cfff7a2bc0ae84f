package ports

import "context"

// Directory resolves identifiers owned by the patient record store and the identity layer.
type Directory interface {
	PatientExists(ctx context.Context, patientID string) (bool, error)
	DoctorExists(ctx context.Context, doctorID string) (bool, error)
}
