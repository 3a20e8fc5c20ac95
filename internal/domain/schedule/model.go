package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Schedule statuses.
const (
	ScheduleActive   = "Active"
	ScheduleInactive = "Inactive"
)

// Slot statuses. Exhausted tracks the capacity counter; Cancelled is a
// staff override independent of the count.
const (
	SlotAvailable = "Available"
	SlotExhausted = "Exhausted"
	SlotCancelled = "Cancelled"
)

// Schedule maps to the schedule table. One published agenda per doctor per
// date; groups the doctor, specialty and date under which slots are
// materialized.
type Schedule struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	SpecialtyID uuid.UUID `db:"specialty_id" json:"specialty_id"`
	Date        time.Time `db:"date" json:"date"`
	Status      string    `db:"status" json:"status"`
	StaffID     uuid.UUID `db:"staff_id" json:"staff_id"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Slot maps to the slot table. Materialized from one availability template
// into its owning schedule; carries the capacity counter the ledger mutates.
// capacity_remaining never goes below zero and never above capacity_max.
type Slot struct {
	ID                uuid.UUID `db:"id" json:"id"`
	ScheduleID        uuid.UUID `db:"schedule_id" json:"schedule_id"`
	TemplateID        uuid.UUID `db:"template_id" json:"template_id"`
	DayID             int       `db:"day_id" json:"day_id"`
	ShiftID           uuid.UUID `db:"shift_id" json:"shift_id"`
	StartTime         string    `db:"start_time" json:"start_time"`
	EndTime           string    `db:"end_time" json:"end_time"`
	CapacityRemaining int       `db:"capacity_remaining" json:"capacity_remaining"`
	CapacityMax       int       `db:"capacity_max" json:"capacity_max"`
	Status            string    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// MaterializeResult reports a best-effort batch: which templates became
// slots and which were skipped (already materialized or missing).
type MaterializeResult struct {
	Created []uuid.UUID `json:"created"`
	Skipped []uuid.UUID `json:"skipped"`
}
