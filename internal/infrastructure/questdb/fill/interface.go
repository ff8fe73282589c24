package fill

import (
	"context"
)

// FillRepository defines the persistence operations for fill records.
type FillRepository interface {
	Store(ctx context.Context, record *Record) error
	GetByFilter(ctx context.Context, filter Filter) ([]*Record, error)
}
