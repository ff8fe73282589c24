package fill

import (
	"context"
	"fmt"

	"github.com/tironinho/kronos-sub000/pkg/questdb"
)

// Repository represents the repository for fill records.
type Repository struct {
	client questdb.Client
}

// NewRepository creates a new fill repository.
func NewRepository(client questdb.Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Store stores a fill record.
func (r *Repository) Store(ctx context.Context, record *Record) error {
	query := `INSERT INTO fills (timestamp, order_id, symbol, side, quantity, price, realized_pnl)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	err := r.client.Exec(ctx, query,
		record.Timestamp, record.OrderID, record.Symbol, record.Side,
		record.Quantity, record.Price, record.RealizedPnL)

	if err != nil {
		return fmt.Errorf("failed to store fill: %w", err)
	}

	return nil
}

// GetByFilter retrieves fill records by filter.
func (r *Repository) GetByFilter(ctx context.Context, filter Filter) ([]*Record, error) {
	query := "SELECT timestamp, order_id, symbol, side, quantity, price, realized_pnl FROM fills WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIndex)
		args = append(args, filter.Symbol)
		argIndex++
	}

	if filter.OrderID != "" {
		query += fmt.Sprintf(" AND order_id = $%d", argIndex)
		args = append(args, filter.OrderID)
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
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record := &Record{}
		err := rows.Scan(&record.Timestamp, &record.OrderID, &record.Symbol,
			&record.Side, &record.Quantity, &record.Price, &record.RealizedPnL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}
