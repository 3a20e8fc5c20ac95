package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505). A concurrent insert can slip past the
// service-level existence checks and land on the constraint instead.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const schedCols = `id, doctor_id, specialty_id, date, status, staff_id, notes, created_at, updated_at`

func (r *scheduleRepoPG) scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.SpecialtyID, &s.Date, &s.Status,
		&s.StaffID, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("schedule not found")
	}
	return &s, err
}

func (r *scheduleRepoPG) Create(ctx context.Context, s *Schedule) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule (id, doctor_id, specialty_id, date, status, staff_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.DoctorID, s.SpecialtyID, s.Date, s.Status, s.StaffID, s.Notes)
	if isUniqueViolation(err) {
		return apperr.Conflict("doctor already has a schedule for %s", s.Date.Format("2006-01-02"))
	}
	if err != nil {
		return apperr.Persistence("create schedule", err)
	}
	return nil
}

func (r *scheduleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return r.scanSchedule(r.conn(ctx).QueryRow(ctx, `SELECT `+schedCols+` FROM schedule WHERE id = $1`, id))
}

func (r *scheduleRepoPG) Update(ctx context.Context, s *Schedule) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule SET doctor_id=$2, specialty_id=$3, date=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.DoctorID, s.SpecialtyID, s.Date, s.Notes)
	if err != nil {
		return apperr.Persistence("update schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("schedule not found")
	}
	return nil
}

func (r *scheduleRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE schedule SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Persistence("set schedule status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("schedule not found")
	}
	return nil
}

func (r *scheduleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete schedule", err)
	}
	return nil
}

func (r *scheduleRepoPG) List(ctx context.Context, limit, offset int) ([]*Schedule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM schedule`).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count schedules", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+schedCols+` FROM schedule ORDER BY date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list schedules", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *scheduleRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM schedule WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count schedules", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+schedCols+` FROM schedule WHERE doctor_id = $1 ORDER BY date DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list schedules", err)
	}
	defer rows.Close()
	items, _, err := r.collect(rows)
	return items, total, err
}

func (r *scheduleRepoPG) collect(rows pgx.Rows) ([]*Schedule, int, error) {
	var items []*Schedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan schedule", err)
		}
		items = append(items, s)
	}
	return items, len(items), nil
}

func (r *scheduleRepoPG) ExistsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID uuid.UUID) (bool, error) {
	var found bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM schedule WHERE doctor_id = $1 AND date = $2 AND id <> $3)`,
		doctorID, date, excludeID).Scan(&found)
	if err != nil {
		return false, apperr.Persistence("check schedule uniqueness", err)
	}
	return found, nil
}

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const slotCols = `id, schedule_id, template_id, day_id, shift_id, start_time, end_time,
	capacity_remaining, capacity_max, status, created_at, updated_at`

func (r *slotRepoPG) scanSlot(row pgx.Row) (*Slot, error) {
	var sl Slot
	err := row.Scan(&sl.ID, &sl.ScheduleID, &sl.TemplateID, &sl.DayID, &sl.ShiftID,
		&sl.StartTime, &sl.EndTime, &sl.CapacityRemaining, &sl.CapacityMax, &sl.Status,
		&sl.CreatedAt, &sl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("slot not found")
	}
	return &sl, err
}

func (r *slotRepoPG) Create(ctx context.Context, sl *Slot) error {
	sl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO slot (id, schedule_id, template_id, day_id, shift_id, start_time, end_time,
			capacity_remaining, capacity_max, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		sl.ID, sl.ScheduleID, sl.TemplateID, sl.DayID, sl.ShiftID, sl.StartTime, sl.EndTime,
		sl.CapacityRemaining, sl.CapacityMax, sl.Status)
	if isUniqueViolation(err) {
		return apperr.Conflict("template %s already materialized into schedule %s", sl.TemplateID, sl.ScheduleID)
	}
	if err != nil {
		return apperr.Persistence("create slot", err)
	}
	return nil
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return r.scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM slot WHERE id = $1`, id))
}

func (r *slotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM slot WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete slot", err)
	}
	return nil
}

func (r *slotRepoPG) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+slotCols+` FROM slot WHERE schedule_id = $1 ORDER BY start_time`, scheduleID)
	if err != nil {
		return nil, apperr.Persistence("list slots", err)
	}
	defer rows.Close()
	var items []*Slot
	for rows.Next() {
		sl, err := r.scanSlot(rows)
		if err != nil {
			return nil, apperr.Persistence("scan slot", err)
		}
		items = append(items, sl)
	}
	return items, nil
}

func (r *slotRepoPG) ExistsForTemplate(ctx context.Context, scheduleID, templateID uuid.UUID) (bool, error) {
	var found bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM slot WHERE schedule_id = $1 AND template_id = $2)`,
		scheduleID, templateID).Scan(&found)
	if err != nil {
		return false, apperr.Persistence("check slot template", err)
	}
	return found, nil
}

func (r *slotRepoPG) SetCapacity(ctx context.Context, id uuid.UUID, remaining int, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE slot SET capacity_remaining=$2, status=$3, updated_at=NOW() WHERE id = $1`,
		id, remaining, status)
	if err != nil {
		return apperr.Persistence("set slot capacity", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("slot not found")
	}
	return nil
}

func (r *slotRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE slot SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Persistence("set slot status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("slot not found")
	}
	return nil
}

// Consume is the check-and-decrement half of the ledger as one conditional
// UPDATE, so the zero check and the decrement cannot interleave with a
// concurrent writer. Zero rows affected means the slot was already empty
// (or absent); the caller decides whether that is NoCapacity or NotFound.
func (r *slotRepoPG) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE slot
		SET capacity_remaining = capacity_remaining - 1,
			status = CASE WHEN capacity_remaining - 1 = 0 THEN 'Exhausted' ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND capacity_remaining > 0`, id)
	if err != nil {
		return false, apperr.Persistence("consume slot capacity", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Release increments the counter, clamped at capacity_max so a replayed
// release can never push remaining past the slot's seat count.
func (r *slotRepoPG) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE slot
		SET capacity_remaining = LEAST(capacity_max, capacity_remaining + 1),
			status = 'Available',
			updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("release slot capacity", err)
	}
	return nil
}
