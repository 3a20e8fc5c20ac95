// Package appointment is the booking side of the slot capacity ledger.
// Every detail create, update and delete runs its capacity step and its row
// write inside one transaction, so a refused consume leaves no row and a
// failed write leaves no dangling reservation.
package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/apperr"
)

// CapacityLedger is the slot counter surface this package books against.
// Satisfied by the schedule service; the ledger operations run on the
// transaction in context when one is present.
type CapacityLedger interface {
	SlotExists(ctx context.Context, slotID uuid.UUID) (bool, error)
	ConsumeSlot(ctx context.Context, slotID uuid.UUID) (bool, error)
	ReleaseSlot(ctx context.Context, slotID uuid.UUID) error
}

// ScheduleSource answers whether a schedule exists, for header validation.
type ScheduleSource interface {
	ScheduleExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ReferenceLookup resolves patient and staff ids against reference data.
type ReferenceLookup interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	StaffExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	statuses  StatusRepository
	headers   HeaderRepository
	details   DetailRepository
	ledger    CapacityLedger
	schedules ScheduleSource
	refs      ReferenceLookup
	tx        txRunner
	log       zerolog.Logger
}

func NewService(statuses StatusRepository, headers HeaderRepository, details DetailRepository,
	ledger CapacityLedger, schedules ScheduleSource, refs ReferenceLookup, tx txRunner,
	log zerolog.Logger) *Service {
	return &Service{
		statuses:  statuses,
		headers:   headers,
		details:   details,
		ledger:    ledger,
		schedules: schedules,
		refs:      refs,
		tx:        tx,
		log:       log,
	}
}

var validHeaderStatuses = map[string]bool{
	HeaderActive: true, HeaderInactive: true,
}

// occupies resolves a status id to its capacity flag. The flag is read at
// decision time, so redefining a status affects future transitions only.
func (s *Service) occupies(ctx context.Context, statusID uuid.UUID) (bool, error) {
	def, err := s.statuses.GetByID(ctx, statusID)
	if err != nil {
		return false, err
	}
	return def.OccupiesCapacity, nil
}

// -- Status Policy --

func (s *Service) CreateStatus(ctx context.Context, def *StatusDefinition) error {
	if def.Label == "" {
		return apperr.Validation("label is required")
	}
	return s.statuses.Create(ctx, def)
}

func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*StatusDefinition, error) {
	return s.statuses.GetByID(ctx, id)
}

func (s *Service) ListStatuses(ctx context.Context) ([]*StatusDefinition, error) {
	return s.statuses.List(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, def *StatusDefinition) error {
	if def.Label == "" {
		return apperr.Validation("label is required")
	}
	return s.statuses.Update(ctx, def)
}

// DeleteStatus refuses while any detail still references the status;
// deleting it would make those details' capacity flag unresolvable.
func (s *Service) DeleteStatus(ctx context.Context, id uuid.UUID) error {
	inUse, err := s.statuses.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperr.Conflict("status definition is referenced by appointment details")
	}
	return s.statuses.Delete(ctx, id)
}

// -- Appointment headers --

func (s *Service) CreateHeader(ctx context.Context, h *Header) error {
	ok, err := s.refs.PatientExists(ctx, h.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient not found")
	}
	if h.ScheduleID == nil {
		return apperr.Validation("a new header needs a schedule")
	}
	ok, err = s.schedules.ScheduleExists(ctx, *h.ScheduleID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("schedule not found")
	}
	if h.Status == "" {
		h.Status = HeaderActive
	}
	if !validHeaderStatuses[h.Status] {
		return apperr.Validation("invalid header status: %s", h.Status)
	}
	return s.headers.Create(ctx, h)
}

func (s *Service) GetHeader(ctx context.Context, id uuid.UUID) (*Header, error) {
	return s.headers.GetByID(ctx, id)
}

func (s *Service) ListHeaders(ctx context.Context, limit, offset int) ([]*Header, int, error) {
	return s.headers.List(ctx, limit, offset)
}

func (s *Service) UpdateHeader(ctx context.Context, h *Header) error {
	if _, err := s.headers.GetByID(ctx, h.ID); err != nil {
		return err
	}
	return s.headers.Update(ctx, h)
}

func (s *Service) SetHeaderStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validHeaderStatuses[status] {
		return apperr.Validation("invalid header status: %s", status)
	}
	return s.headers.SetStatus(ctx, id, status)
}

// DeleteHeader removes a header and all its details in one transaction,
// returning every capacity unit the details still hold.
func (s *Service) DeleteHeader(ctx context.Context, id uuid.UUID) error {
	if _, err := s.headers.GetByID(ctx, id); err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		details, err := s.details.ListByHeader(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range details {
			if err := s.removeDetail(ctx, d); err != nil {
				return err
			}
		}
		if err := s.headers.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info().Str("header_id", id.String()).Int("details", len(details)).Msg("header cascade delete")
		return nil
	})
}

func (s *Service) ListDetailsByHeader(ctx context.Context, headerID uuid.UUID) ([]*Detail, error) {
	if _, err := s.headers.GetByID(ctx, headerID); err != nil {
		return nil, err
	}
	return s.details.ListByHeader(ctx, headerID)
}

// -- Appointment details --

func (s *Service) CreateDetail(ctx context.Context, d *Detail) error {
	if d.SlotID == nil {
		return apperr.Validation("slot_id is required")
	}
	if _, err := s.headers.GetByID(ctx, d.HeaderID); err != nil {
		return err
	}
	ok, err := s.ledger.SlotExists(ctx, *d.SlotID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("slot not found")
	}
	occ, err := s.occupies(ctx, d.StatusID)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		d.StatusChangedAt = time.Now()
		if err := s.details.Create(ctx, d); err != nil {
			return err
		}
		if !occ {
			return nil
		}
		consumed, err := s.ledger.ConsumeSlot(ctx, *d.SlotID)
		if err != nil {
			return err
		}
		if !consumed {
			// Rolls the insert back with it.
			return apperr.NoCapacity("slot %s has no remaining capacity", d.SlotID)
		}
		return nil
	})
}

func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.details.GetByID(ctx, id)
}

// UpdateDetail applies the capacity transition for a changed slot or status
// before touching the row. The decision table is keyed on (moved,
// occupies(old), occupies(new)); when the detail moves to another slot the
// new slot is consumed first, so a NoCapacity refusal leaves the old
// reservation untouched.
func (s *Service) UpdateDetail(ctx context.Context, d *Detail) error {
	old, err := s.details.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	occOld, err := s.occupies(ctx, old.StatusID)
	if err != nil {
		return err
	}
	occNew := occOld
	if d.StatusID != old.StatusID {
		occNew, err = s.occupies(ctx, d.StatusID)
		if err != nil {
			return err
		}
	}
	moved := !uuidPtrEqual(d.SlotID, old.SlotID)
	if occNew && d.SlotID == nil {
		return apperr.Validation("an occupying detail needs a slot")
	}
	if moved && d.SlotID != nil {
		ok, err := s.ledger.SlotExists(ctx, *d.SlotID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("slot not found")
		}
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		switch {
		case moved:
			if occNew {
				consumed, err := s.ledger.ConsumeSlot(ctx, *d.SlotID)
				if err != nil {
					return err
				}
				if !consumed {
					return apperr.NoCapacity("slot %s has no remaining capacity", d.SlotID)
				}
			}
			if occOld && old.SlotID != nil {
				if err := s.ledger.ReleaseSlot(ctx, *old.SlotID); err != nil {
					return err
				}
			}
		case occOld && !occNew:
			if old.SlotID != nil {
				if err := s.ledger.ReleaseSlot(ctx, *old.SlotID); err != nil {
					return err
				}
			}
		case !occOld && occNew:
			consumed, err := s.ledger.ConsumeSlot(ctx, *d.SlotID)
			if err != nil {
				return err
			}
			if !consumed {
				return apperr.NoCapacity("slot %s has no remaining capacity", d.SlotID)
			}
		}

		d.StatusChangedAt = old.StatusChangedAt
		if d.StatusID != old.StatusID {
			d.StatusChangedAt = time.Now()
		}
		return s.details.Update(ctx, d)
	})
}

// DeleteDetail releases the detail's capacity unit if its status occupies
// one, then removes the row; both inside one transaction. A missing detail
// is an idempotent success.
func (s *Service) DeleteDetail(ctx context.Context, id uuid.UUID) error {
	d, err := s.details.GetByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.removeDetail(ctx, d)
	})
}

// removeDetail is the shared delete-with-release step; callers supply the
// transaction.
func (s *Service) removeDetail(ctx context.Context, d *Detail) error {
	occ, err := s.occupies(ctx, d.StatusID)
	if err != nil {
		return err
	}
	if occ && d.SlotID != nil {
		if err := s.ledger.ReleaseSlot(ctx, *d.SlotID); err != nil {
			return err
		}
	}
	return s.details.Delete(ctx, d.ID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
