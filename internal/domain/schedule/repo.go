package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ScheduleRepository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Schedule, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error)
	// ExistsForDoctorDate backs the one-agenda-per-doctor-per-day rule;
	// excludeID skips the row being edited.
	ExistsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error)
}

type SlotRepository interface {
	Create(ctx context.Context, sl *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*Slot, error)
	ExistsForTemplate(ctx context.Context, scheduleID, templateID uuid.UUID) (bool, error)
	SetCapacity(ctx context.Context, id uuid.UUID, remaining int, status string) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error

	// Ledger primitives. Consume atomically decrements capacity_remaining
	// when it is above zero and reports whether the decrement happened;
	// Release increments it, clamped at capacity_max. Both are pure counter
	// mutations; all decisions about when to call them live in the
	// appointment manager.
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}
