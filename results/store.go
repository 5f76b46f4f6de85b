package results

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error
	ListBySweep(ctx context.Context, sweepID uuid.UUID, limit, offset int) ([]*Record, error)
	CountBySweep(ctx context.Context, sweepID uuid.UUID) (int, error)
	DeleteBySweep(ctx context.Context, sweepID uuid.UUID) (int, error)
	ListSweeps(ctx context.Context, limit, offset int) ([]SweepSummary, error)
	CountSweeps(ctx context.Context) (int, error)
}

type UpdateSetter func(*Record) error
