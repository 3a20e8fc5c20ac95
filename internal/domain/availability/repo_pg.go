package availability

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, doctor_id, day_id, shift_id, date, start_time, end_time, seat_count, created_at, updated_at`

func (r *repoPG) scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.DoctorID, &t.DayID, &t.ShiftID, &t.Date,
		&t.StartTime, &t.EndTime, &t.SeatCount, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("availability template not found")
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO availability_template (id, doctor_id, day_id, shift_id, date, start_time, end_time, seat_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.DoctorID, t.DayID, t.ShiftID, t.Date, t.StartTime, t.EndTime, t.SeatCount)
	if err != nil {
		return apperr.Persistence("create availability template", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	return r.scanTemplate(r.conn(ctx).QueryRow(ctx, `SELECT `+templateCols+` FROM availability_template WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *Template) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE availability_template SET day_id=$2, shift_id=$3, date=$4, start_time=$5, end_time=$6,
			seat_count=$7, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.DayID, t.ShiftID, t.Date, t.StartTime, t.EndTime, t.SeatCount)
	if err != nil {
		return apperr.Persistence("update availability template", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("availability template not found")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_template WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete availability template", err)
	}
	return nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Template, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM availability_template WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count availability templates", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+templateCols+` FROM availability_template WHERE doctor_id = $1 ORDER BY date, start_time LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list availability templates", err)
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan availability template", err)
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *repoPG) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Template, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+templateCols+` FROM availability_template WHERE doctor_id = $1 AND date = $2 ORDER BY start_time`, doctorID, date)
	if err != nil {
		return nil, apperr.Persistence("list availability templates by date", err)
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, apperr.Persistence("scan availability template", err)
		}
		items = append(items, t)
	}
	return items, nil
}
