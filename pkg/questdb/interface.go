package questdb

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Client is the interface the repositories depend on. It is satisfied by the
// pooled client below and by test fakes.
type Client interface {
	Close()
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Rows abstracts pgx.Rows so fakes can be used in tests.
type Rows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
	Err() error
}
