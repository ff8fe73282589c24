package position

import (
	"time"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
)

// Record represents a position row in the ledger database. Each write is a
// point-in-time snapshot of the net position after a fill.
type Record struct {
	Timestamp    time.Time
	Symbol       string
	Side         string
	Quantity     float64
	AveragePrice float64
	RealizedPnL  float64
}

// Filter narrows position queries.
type Filter struct {
	Symbol string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// FromDomain converts a domain position into a snapshot record. A nil
// position is recorded as a flat snapshot for the symbol.
func FromDomain(symbol string, pos *orderv1.Position, realizedPnL float64) *Record {
	record := &Record{
		Timestamp:   time.Now().UTC(),
		Symbol:      symbol,
		RealizedPnL: realizedPnL,
	}
	if pos != nil {
		record.Side = string(pos.Side)
		record.Quantity = pos.Quantity
		record.AveragePrice = pos.AveragePrice
		record.Timestamp = pos.UpdatedAt
	}
	return record
}
