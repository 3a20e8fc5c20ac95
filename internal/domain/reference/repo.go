package reference

import (
	"context"

	"github.com/google/uuid"
)

// Lookup is the read surface the scheduling core depends on. The booking
// services only need existence checks; the list methods back the picker
// endpoints used by booking UIs.
type Lookup interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	SpecialtyExists(ctx context.Context, id uuid.UUID) (bool, error)
	StaffExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Repository interface {
	Lookup
	ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ListSpecialties(ctx context.Context) ([]*Specialty, error)
}
