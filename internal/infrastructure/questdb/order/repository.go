package order

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tironinho/kronos-sub000/pkg/questdb"
)

// Repository represents the repository for order records.
type Repository struct {
	client questdb.Client
}

// NewRepository creates a new order repository.
func NewRepository(client questdb.Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Store stores an order record. Orders are append-only: every status change
// writes a new row, so the table holds the full history of each order.
func (r *Repository) Store(ctx context.Context, record *Record) error {
	query := `INSERT INTO orders (timestamp, order_id, client_order_id, symbol, side, type, quantity, price, status, filled_qty, average_price, reason)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	err := r.client.Exec(ctx, query,
		record.Timestamp, record.OrderID, record.ClientOrderID, record.Symbol,
		record.Side, record.Type, record.Quantity, record.Price,
		record.Status, record.FilledQty, record.AveragePrice, record.Reason)

	if err != nil {
		return fmt.Errorf("failed to store order: %w", err)
	}

	return nil
}

// StoreBatch stores a batch of order records.
func (r *Repository) StoreBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	_, err := r.client.CopyFrom(
		ctx,
		pgx.Identifier{"orders"},
		[]string{"timestamp", "order_id", "client_order_id", "symbol", "side", "type", "quantity", "price", "status", "filled_qty", "average_price", "reason"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			record := records[i]
			return []any{
				record.Timestamp,
				record.OrderID,
				record.ClientOrderID,
				record.Symbol,
				record.Side,
				record.Type,
				record.Quantity,
				record.Price,
				record.Status,
				record.FilledQty,
				record.AveragePrice,
				record.Reason,
			}, nil
		}),
	)

	if err != nil {
		return fmt.Errorf("failed to copy orders: %w", err)
	}

	return nil
}

// GetByFilter retrieves order records by filter.
func (r *Repository) GetByFilter(ctx context.Context, filter Filter) ([]*Record, error) {
	query := "SELECT timestamp, order_id, client_order_id, symbol, side, type, quantity, price, status, filled_qty, average_price, reason FROM orders WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Symbol != "" {
		query += fmt.Sprintf(" AND symbol = $%d", argIndex)
		args = append(args, filter.Symbol)
		argIndex++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
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
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record := &Record{}
		err := rows.Scan(&record.Timestamp, &record.OrderID, &record.ClientOrderID,
			&record.Symbol, &record.Side, &record.Type, &record.Quantity,
			&record.Price, &record.Status, &record.FilledQty,
			&record.AveragePrice, &record.Reason)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetLatestByOrderID retrieves the most recent record for an order.
func (r *Repository) GetLatestByOrderID(ctx context.Context, orderID string) (*Record, error) {
	query := `SELECT timestamp, order_id, client_order_id, symbol, side, type, quantity, price, status, filled_qty, average_price, reason
			  FROM orders
			  WHERE order_id = $1
			  ORDER BY timestamp DESC
			  LIMIT 1`

	record := &Record{}
	err := r.client.QueryRow(ctx, query, orderID).Scan(
		&record.Timestamp, &record.OrderID, &record.ClientOrderID,
		&record.Symbol, &record.Side, &record.Type, &record.Quantity,
		&record.Price, &record.Status, &record.FilledQty,
		&record.AveragePrice, &record.Reason)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest order: %w", err)
	}

	return record, nil
}
