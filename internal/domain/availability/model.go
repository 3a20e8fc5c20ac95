package availability

import (
	"time"

	"github.com/google/uuid"
)

// Template maps to the availability_template table. It is a doctor's offered
// time window (day, shift, date, start/end, seats) before any schedule is
// published from it. Times of day are stored as "HH:MM" strings so that
// window comparisons are plain lexicographic order.
type Template struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayID     int       `db:"day_id" json:"day_id"`
	ShiftID   uuid.UUID `db:"shift_id" json:"shift_id"`
	Date      time.Time `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	SeatCount int       `db:"seat_count" json:"seat_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether two templates intersect in time. Touching
// windows (one ends exactly when the other starts) do not overlap.
func (t *Template) Overlaps(other *Template) bool {
	return !(t.EndTime <= other.StartTime || t.StartTime >= other.EndTime)
}
