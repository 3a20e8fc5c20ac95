package appointment

import (
	"context"

	"github.com/google/uuid"
)

type StatusRepository interface {
	Create(ctx context.Context, def *StatusDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*StatusDefinition, error)
	Update(ctx context.Context, def *StatusDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*StatusDefinition, error)
	// InUse reports whether any detail row still references the status.
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
}

type HeaderRepository interface {
	Create(ctx context.Context, h *Header) error
	GetByID(ctx context.Context, id uuid.UUID) (*Header, error)
	Update(ctx context.Context, h *Header) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Header, int, error)
}

type DetailRepository interface {
	Create(ctx context.Context, d *Detail) error
	GetByID(ctx context.Context, id uuid.UUID) (*Detail, error)
	Update(ctx context.Context, d *Detail) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByHeader(ctx context.Context, headerID uuid.UUID) ([]*Detail, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*Detail, error)
}
