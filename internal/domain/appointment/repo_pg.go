package appointment

import (
	"context"
	"errors"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Status definitions --

type statusRepoPG struct{ pool *pgxpool.Pool }

func NewStatusRepoPG(pool *pgxpool.Pool) StatusRepository { return &statusRepoPG{pool: pool} }

const statusCols = `id, label, occupies_capacity, created_at`

func scanStatus(row pgx.Row) (*StatusDefinition, error) {
	var def StatusDefinition
	err := row.Scan(&def.ID, &def.Label, &def.OccupiesCapacity, &def.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("status definition not found")
	}
	return &def, err
}

func (r *statusRepoPG) Create(ctx context.Context, def *StatusDefinition) error {
	def.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO status_definition (id, label, occupies_capacity)
		VALUES ($1,$2,$3)`,
		def.ID, def.Label, def.OccupiesCapacity)
	if err != nil {
		return apperr.Persistence("create status definition", err)
	}
	return nil
}

func (r *statusRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*StatusDefinition, error) {
	return scanStatus(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+statusCols+` FROM status_definition WHERE id = $1`, id))
}

func (r *statusRepoPG) Update(ctx context.Context, def *StatusDefinition) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE status_definition SET label=$2, occupies_capacity=$3 WHERE id = $1`,
		def.ID, def.Label, def.OccupiesCapacity)
	if err != nil {
		return apperr.Persistence("update status definition", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("status definition not found")
	}
	return nil
}

func (r *statusRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM status_definition WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete status definition", err)
	}
	return nil
}

func (r *statusRepoPG) List(ctx context.Context) ([]*StatusDefinition, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+statusCols+` FROM status_definition ORDER BY label`)
	if err != nil {
		return nil, apperr.Persistence("list status definitions", err)
	}
	defer rows.Close()
	var items []*StatusDefinition
	for rows.Next() {
		def, err := scanStatus(rows)
		if err != nil {
			return nil, apperr.Persistence("scan status definition", err)
		}
		items = append(items, def)
	}
	return items, nil
}

func (r *statusRepoPG) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var inUse bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointment_detail WHERE status_id = $1)`, id).Scan(&inUse)
	if err != nil {
		return false, apperr.Persistence("check status definition usage", err)
	}
	return inUse, nil
}

// -- Headers --

type headerRepoPG struct{ pool *pgxpool.Pool }

func NewHeaderRepoPG(pool *pgxpool.Pool) HeaderRepository { return &headerRepoPG{pool: pool} }

const headerCols = `id, patient_id, schedule_id, staff_id, notes, status, created_at, updated_at`

func scanHeader(row pgx.Row) (*Header, error) {
	var h Header
	err := row.Scan(&h.ID, &h.PatientID, &h.ScheduleID, &h.StaffID, &h.Notes,
		&h.Status, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment header not found")
	}
	return &h, err
}

func (r *headerRepoPG) Create(ctx context.Context, h *Header) error {
	h.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointment_header (id, patient_id, schedule_id, staff_id, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.PatientID, h.ScheduleID, h.StaffID, h.Notes, h.Status)
	if err != nil {
		return apperr.Persistence("create appointment header", err)
	}
	return nil
}

func (r *headerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Header, error) {
	return scanHeader(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+headerCols+` FROM appointment_header WHERE id = $1`, id))
}

func (r *headerRepoPG) Update(ctx context.Context, h *Header) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointment_header SET patient_id=$2, schedule_id=$3, notes=$4, updated_at=NOW()
		WHERE id = $1`,
		h.ID, h.PatientID, h.ScheduleID, h.Notes)
	if err != nil {
		return apperr.Persistence("update appointment header", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment header not found")
	}
	return nil
}

func (r *headerRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointment_header SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.Persistence("set appointment header status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment header not found")
	}
	return nil
}

func (r *headerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointment_header WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete appointment header", err)
	}
	return nil
}

func (r *headerRepoPG) List(ctx context.Context, limit, offset int) ([]*Header, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM appointment_header`).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count appointment headers", err)
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+headerCols+` FROM appointment_header ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list appointment headers", err)
	}
	defer rows.Close()
	var items []*Header
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan appointment header", err)
		}
		items = append(items, h)
	}
	return items, total, nil
}

// -- Details --

type detailRepoPG struct{ pool *pgxpool.Pool }

func NewDetailRepoPG(pool *pgxpool.Pool) DetailRepository { return &detailRepoPG{pool: pool} }

const detailCols = `id, header_id, slot_id, date, time, reason, status_id, status_changed_at, created_at, updated_at`

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	err := row.Scan(&d.ID, &d.HeaderID, &d.SlotID, &d.Date, &d.Time, &d.Reason,
		&d.StatusID, &d.StatusChangedAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment detail not found")
	}
	return &d, err
}

func (r *detailRepoPG) Create(ctx context.Context, d *Detail) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointment_detail (id, header_id, slot_id, date, time, reason, status_id, status_changed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		d.ID, d.HeaderID, d.SlotID, d.Date, d.Time, d.Reason, d.StatusID)
	if err != nil {
		return apperr.Persistence("create appointment detail", err)
	}
	return nil
}

func (r *detailRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return scanDetail(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+detailCols+` FROM appointment_detail WHERE id = $1`, id))
}

func (r *detailRepoPG) Update(ctx context.Context, d *Detail) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointment_detail SET slot_id=$2, date=$3, time=$4, reason=$5, status_id=$6,
			status_changed_at=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.SlotID, d.Date, d.Time, d.Reason, d.StatusID, d.StatusChangedAt)
	if err != nil {
		return apperr.Persistence("update appointment detail", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment detail not found")
	}
	return nil
}

func (r *detailRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointment_detail WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete appointment detail", err)
	}
	return nil
}

func (r *detailRepoPG) ListByHeader(ctx context.Context, headerID uuid.UUID) ([]*Detail, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+detailCols+` FROM appointment_detail WHERE header_id = $1 ORDER BY date, time`, headerID)
	if err != nil {
		return nil, apperr.Persistence("list appointment details by header", err)
	}
	defer rows.Close()
	var items []*Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, apperr.Persistence("scan appointment detail", err)
		}
		items = append(items, d)
	}
	return items, nil
}

func (r *detailRepoPG) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*Detail, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+detailCols+` FROM appointment_detail WHERE slot_id = $1 ORDER BY date, time`, slotID)
	if err != nil {
		return nil, apperr.Persistence("list appointment details by slot", err)
	}
	defer rows.Close()
	var items []*Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, apperr.Persistence("scan appointment detail", err)
		}
		items = append(items, d)
	}
	return items, nil
}
