package position

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tironinho/kronos-sub000/pkg/questdb"
)

// Repository represents the repository for position snapshots.
type Repository struct {
	client questdb.Client
}

// NewRepository creates a new position repository.
func NewRepository(client questdb.Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Store stores a position snapshot.
func (r *Repository) Store(ctx context.Context, record *Record) error {
	query := `INSERT INTO positions (timestamp, symbol, side, quantity, average_price, realized_pnl)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	err := r.client.Exec(ctx, query,
		record.Timestamp, record.Symbol, record.Side,
		record.Quantity, record.AveragePrice, record.RealizedPnL)

	if err != nil {
		return fmt.Errorf("failed to store position: %w", err)
	}

	return nil
}

// GetByFilter retrieves position snapshots by filter.
func (r *Repository) GetByFilter(ctx context.Context, filter Filter) ([]*Record, error) {
	query := "SELECT timestamp, symbol, side, quantity, average_price, realized_pnl FROM positions WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIndex)
		args = append(args, filter.Symbol)
		argIndex++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.client.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record := &Record{}
		err := rows.Scan(&record.Timestamp, &record.Symbol, &record.Side,
			&record.Quantity, &record.AveragePrice, &record.RealizedPnL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetLatestBySymbol retrieves the most recent snapshot for a symbol.
func (r *Repository) GetLatestBySymbol(ctx context.Context, symbol string) (*Record, error) {
	query := `SELECT timestamp, symbol, side, quantity, average_price, realized_pnl
			  FROM positions
			  WHERE symbol = $1
			  ORDER BY timestamp DESC
			  LIMIT 1`

	record := &Record{}
	err := r.client.QueryRow(ctx, query, symbol).Scan(
		&record.Timestamp, &record.Symbol, &record.Side,
		&record.Quantity, &record.AveragePrice, &record.RealizedPnL)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest position: %w", err)
	}

	return record, nil
}
