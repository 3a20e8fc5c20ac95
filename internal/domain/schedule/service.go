package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/apperr"
	"github.com/medbook/medbook/internal/domain/availability"
	"github.com/medbook/medbook/internal/platform/cache"
)

// TemplateSource is the read-only slice of the availability store the slot
// manager consumes when materializing.
type TemplateSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*availability.Template, error)
}

// SlotBooking is an appointment detail as seen by the cascade: which slot
// it sits on and whether its current status occupies capacity.
type SlotBooking struct {
	ID        uuid.UUID
	SlotID    uuid.UUID
	Occupying bool
}

// BookingSource lets the schedule cascade see the bookings on a slot
// without importing the appointment package.
type BookingSource interface {
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]SlotBooking, error)
}

// ReferenceLookup is the slice of the reference read surface this service needs.
type ReferenceLookup interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	SpecialtyExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	schedules ScheduleRepository
	slots     SlotRepository
	templates TemplateSource
	bookings  BookingSource
	refs      ReferenceLookup
	tx        txRunner
	capacity  *cache.CapacityCache
	log       zerolog.Logger
}

func NewService(schedules ScheduleRepository, slots SlotRepository, templates TemplateSource,
	bookings BookingSource, refs ReferenceLookup, tx txRunner, capacity *cache.CapacityCache,
	log zerolog.Logger) *Service {
	return &Service{
		schedules: schedules,
		slots:     slots,
		templates: templates,
		bookings:  bookings,
		refs:      refs,
		tx:        tx,
		capacity:  capacity,
		log:       log,
	}
}

var validScheduleStatuses = map[string]bool{
	ScheduleActive: true, ScheduleInactive: true,
}

var validSlotStatuses = map[string]bool{
	SlotAvailable: true, SlotExhausted: true, SlotCancelled: true,
}

// -- Schedule Publisher --

func (s *Service) validateSchedule(ctx context.Context, sched *Schedule) error {
	if sched.DoctorID == uuid.Nil {
		return apperr.Validation("doctor_id is required")
	}
	if sched.SpecialtyID == uuid.Nil {
		return apperr.Validation("specialty_id is required")
	}
	if sched.Date.IsZero() {
		return apperr.Validation("date is required")
	}
	ok, err := s.refs.DoctorExists(ctx, sched.DoctorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("doctor %s not found", sched.DoctorID)
	}
	ok, err = s.refs.SpecialtyExists(ctx, sched.SpecialtyID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("specialty %s not found", sched.SpecialtyID)
	}
	exists, err := s.schedules.ExistsForDoctorDate(ctx, sched.DoctorID, sched.Date, sched.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Conflict("doctor already has a schedule for %s", sched.Date.Format("2006-01-02"))
	}
	return nil
}

func (s *Service) Publish(ctx context.Context, sched *Schedule) error {
	if err := s.validateSchedule(ctx, sched); err != nil {
		return err
	}
	if sched.Status == "" {
		sched.Status = ScheduleActive
	}
	return s.schedules.Create(ctx, sched)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	if doctorID != uuid.Nil {
		return s.schedules.ListByDoctor(ctx, doctorID, limit, offset)
	}
	return s.schedules.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, sched *Schedule) error {
	if _, err := s.schedules.GetByID(ctx, sched.ID); err != nil {
		return err
	}
	if err := s.validateSchedule(ctx, sched); err != nil {
		return err
	}
	return s.schedules.Update(ctx, sched)
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validScheduleStatuses[status] {
		return apperr.Validation("invalid schedule status: %s", status)
	}
	return s.schedules.SetStatus(ctx, id, status)
}

// Delete removes a schedule and its slots as one transaction. Before any
// row goes, every capacity unit still held by an occupying booking on a
// child slot is released, so a partial failure rolls the whole cascade
// back with the counters intact.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.schedules.GetByID(ctx, id); err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	var slotIDs []uuid.UUID
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		slots, err := s.slots.ListBySchedule(ctx, id)
		if err != nil {
			return err
		}
		for _, sl := range slots {
			slotIDs = append(slotIDs, sl.ID)
		}
		for _, sl := range slots {
			bookings, err := s.bookings.ListBySlot(ctx, sl.ID)
			if err != nil {
				return err
			}
			for _, b := range bookings {
				if !b.Occupying {
					continue
				}
				if err := s.slots.Release(ctx, sl.ID); err != nil {
					return err
				}
			}
		}
		for _, sl := range slots {
			if err := s.slots.Delete(ctx, sl.ID); err != nil {
				return err
			}
		}
		if err := s.schedules.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info().Str("schedule_id", id.String()).Int("slots", len(slots)).Msg("schedule cascade delete")
		return nil
	})
	if err != nil {
		return err
	}
	for _, slotID := range slotIDs {
		s.capacity.Invalidate(ctx, slotID)
	}
	return nil
}

// -- Slot Manager --

// Materialize copies each template's capacity into a new slot under the
// schedule. It is best effort: templates already materialized into this
// schedule, and templates that no longer exist, land in Skipped while the
// rest proceed.
func (s *Service) Materialize(ctx context.Context, scheduleID uuid.UUID, templateIDs []uuid.UUID) (*MaterializeResult, error) {
	if len(templateIDs) == 0 {
		return nil, apperr.Validation("template_ids must not be empty")
	}
	if _, err := s.schedules.GetByID(ctx, scheduleID); err != nil {
		return nil, err
	}

	result := &MaterializeResult{Created: []uuid.UUID{}, Skipped: []uuid.UUID{}}
	for _, tplID := range templateIDs {
		dup, err := s.slots.ExistsForTemplate(ctx, scheduleID, tplID)
		if err != nil {
			return nil, err
		}
		if dup {
			result.Skipped = append(result.Skipped, tplID)
			continue
		}
		tpl, err := s.templates.GetByID(ctx, tplID)
		if err != nil {
			if apperr.IsNotFound(err) {
				result.Skipped = append(result.Skipped, tplID)
				continue
			}
			return nil, err
		}
		sl := &Slot{
			ScheduleID:        scheduleID,
			TemplateID:        tpl.ID,
			DayID:             tpl.DayID,
			ShiftID:           tpl.ShiftID,
			StartTime:         tpl.StartTime,
			EndTime:           tpl.EndTime,
			CapacityRemaining: tpl.SeatCount,
			CapacityMax:       tpl.SeatCount,
			Status:            SlotAvailable,
		}
		if err := s.slots.Create(ctx, sl); err != nil {
			s.log.Warn().Err(err).Str("template_id", tplID.String()).Msg("slot materialize failed")
			result.Skipped = append(result.Skipped, tplID)
			continue
		}
		result.Created = append(result.Created, sl.ID)
	}
	return result, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.slots.GetByID(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context, scheduleID uuid.UUID) ([]*Slot, error) {
	if _, err := s.schedules.GetByID(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.slots.ListBySchedule(ctx, scheduleID)
}

// SetCapacity is the administrative override. Status is recomputed from
// the new count; staff-forced Cancelled is set through SetSlotStatus
// instead.
func (s *Service) SetCapacity(ctx context.Context, id uuid.UUID, remaining int) (*Slot, error) {
	if remaining < 0 {
		return nil, apperr.Validation("capacity_remaining must not be negative")
	}
	sl, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if remaining > sl.CapacityMax {
		return nil, apperr.Validation("capacity_remaining must not exceed capacity_max (%d)", sl.CapacityMax)
	}
	status := SlotAvailable
	if remaining == 0 {
		status = SlotExhausted
	}
	if err := s.slots.SetCapacity(ctx, id, remaining, status); err != nil {
		return nil, err
	}
	s.capacity.Invalidate(ctx, id)
	sl.CapacityRemaining = remaining
	sl.Status = status
	return sl, nil
}

func (s *Service) SetSlotStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validSlotStatuses[status] {
		return apperr.Validation("invalid slot status: %s", status)
	}
	return s.slots.SetStatus(ctx, id, status)
}

// DeleteSlot is unconditional at this layer; cascade safety belongs to
// the schedule delete.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}
	s.capacity.Invalidate(ctx, id)
	return nil
}

// GetCapacity is the advisory pre-flight read of a slot's remaining
// capacity, served from the cache when warm. The authoritative check
// always happens at write time in the ledger.
func (s *Service) GetCapacity(ctx context.Context, id uuid.UUID) (int, error) {
	if remaining, ok := s.capacity.GetCapacity(ctx, id); ok {
		return remaining, nil
	}
	sl, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	s.capacity.SetCapacity(ctx, id, sl.CapacityRemaining)
	return sl.CapacityRemaining, nil
}

// -- Capacity Ledger --

// ConsumeSlot and ReleaseSlot are the ledger surface the appointment
// manager calls. They run on the transaction in the context when one is
// present, which is how a booking's capacity step and row write commit or
// roll back together.

func (s *Service) ScheduleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) SlotExists(ctx context.Context, slotID uuid.UUID) (bool, error) {
	_, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) ConsumeSlot(ctx context.Context, slotID uuid.UUID) (bool, error) {
	ok, err := s.slots.Consume(ctx, slotID)
	if err != nil {
		return false, err
	}
	s.capacity.Invalidate(ctx, slotID)
	if !ok {
		s.log.Info().Str("slot_id", slotID.String()).Msg("consume refused, slot exhausted")
	}
	return ok, nil
}

func (s *Service) ReleaseSlot(ctx context.Context, slotID uuid.UUID) error {
	if err := s.slots.Release(ctx, slotID); err != nil {
		return err
	}
	s.capacity.Invalidate(ctx, slotID)
	return nil
}
