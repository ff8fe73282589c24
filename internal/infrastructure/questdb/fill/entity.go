package fill

import (
	"time"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
)

// Record represents a fill row in the ledger database.
type Record struct {
	Timestamp   time.Time
	OrderID     string
	Symbol      string
	Side        string
	Quantity    float64
	Price       float64
	RealizedPnL float64
}

// Filter narrows fill queries.
type Filter struct {
	Symbol  string
	OrderID string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// FromDomain converts a domain fill into a ledger record.
func FromDomain(f orderv1.Fill, realizedPnL float64) *Record {
	return &Record{
		Timestamp:   f.Timestamp,
		OrderID:     f.OrderID,
		Symbol:      f.Symbol,
		Side:        string(f.Side),
		Quantity:    f.Quantity,
		Price:       f.Price,
		RealizedPnL: realizedPnL,
	}
}
