package order

import (
	"context"
)

// OrderRepository defines the persistence operations for order records.
type OrderRepository interface {
	Store(ctx context.Context, record *Record) error
	StoreBatch(ctx context.Context, records []*Record) error
	GetByFilter(ctx context.Context, filter Filter) ([]*Record, error)
	GetLatestByOrderID(ctx context.Context, orderID string) (*Record, error)
}
