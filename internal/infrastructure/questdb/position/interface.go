package position

import (
	"context"
)

// PositionRepository defines the persistence operations for position snapshots.
type PositionRepository interface {
	Store(ctx context.Context, record *Record) error
	GetByFilter(ctx context.Context, filter Filter) ([]*Record, error)
	GetLatestBySymbol(ctx context.Context, symbol string) (*Record, error)
}
