package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/apperr"
)

// DoctorLookup is the slice of the reference read surface this service needs.
type DoctorLookup interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	templates Repository
	doctors   DoctorLookup
}

func NewService(templates Repository, doctors DoctorLookup) *Service {
	return &Service{templates: templates, doctors: doctors}
}

func (s *Service) validate(ctx context.Context, t *Template) error {
	if t.DoctorID == uuid.Nil {
		return apperr.Validation("doctor_id is required")
	}
	if t.SeatCount < 1 {
		return apperr.Validation("seat_count must be at least 1")
	}
	if t.StartTime >= t.EndTime {
		return apperr.Validation("start_time must be before end_time")
	}
	if t.Date.IsZero() {
		return apperr.Validation("date is required")
	}
	ok, err := s.doctors.DoctorExists(ctx, t.DoctorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("doctor %s not found", t.DoctorID)
	}
	return s.checkOverlap(ctx, t)
}

// checkOverlap rejects a template that intersects any other template for
// the same doctor and date, excluding the record being edited.
func (s *Service) checkOverlap(ctx context.Context, t *Template) error {
	others, err := s.templates.ListByDoctorDate(ctx, t.DoctorID, t.Date)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID == t.ID {
			continue
		}
		if t.Overlaps(other) {
			return apperr.Conflict("template overlaps existing window %s-%s", other.StartTime, other.EndTime)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, t *Template) error {
	if err := s.validate(ctx, t); err != nil {
		return err
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.templates.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *Template) error {
	if _, err := s.templates.GetByID(ctx, t.ID); err != nil {
		return err
	}
	if err := s.validate(ctx, t); err != nil {
		return err
	}
	return s.templates.Update(ctx, t)
}

// Delete is unconditional: templates are source data, not live state, so
// nothing cascades from them.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Template, int, error) {
	return s.templates.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Template, error) {
	return s.templates.ListByDoctorDate(ctx, doctorID, date)
}
