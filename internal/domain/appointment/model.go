package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Header statuses.
const (
	HeaderActive   = "Active"
	HeaderInactive = "Inactive"
)

// StatusDefinition maps to the status_definition table. Whether a booking
// in a given status holds a capacity unit is driven entirely by
// OccupiesCapacity; flipping the flag affects future ledger decisions only,
// existing reservations are not reconciled.
type StatusDefinition struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Label            string    `db:"label" json:"label"`
	OccupiesCapacity bool      `db:"occupies_capacity" json:"occupies_capacity"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Header maps to the appointment_header table. Binds a patient to a
// schedule; owns its details (cascade delete with capacity return).
// ScheduleID is nullable: a schedule cascade nulls it out (ON DELETE SET
// NULL) so the visit record survives its schedule, like Detail.SlotID.
type Header struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	ScheduleID *uuid.UUID `db:"schedule_id" json:"schedule_id,omitempty"`
	StaffID    uuid.UUID  `db:"staff_id" json:"staff_id"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Detail maps to the appointment_detail table. While its status resolves to
// occupies_capacity = true, exactly one unit of its slot's capacity belongs
// to it. SlotID is nullable: a schedule cascade nulls it out (ON DELETE SET
// NULL) so the visit record survives its slot.
type Detail struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	HeaderID        uuid.UUID  `db:"header_id" json:"header_id"`
	SlotID          *uuid.UUID `db:"slot_id" json:"slot_id,omitempty"`
	Date            time.Time  `db:"date" json:"date"`
	Time            string     `db:"time" json:"time"`
	Reason          *string    `db:"reason" json:"reason,omitempty"`
	StatusID        uuid.UUID  `db:"status_id" json:"status_id"`
	StatusChangedAt time.Time  `db:"status_changed_at" json:"status_changed_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
