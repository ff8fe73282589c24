package order

import (
	"time"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
)

// Record represents an order row in the ledger database.
type Record struct {
	Timestamp     time.Time
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          string
	Type          string
	Quantity      float64
	Price         float64
	Status        string
	FilledQty     float64
	AveragePrice  float64
	Reason        string
}

// Filter narrows order queries.
type Filter struct {
	Symbol string
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// FromDomain converts a domain order into a ledger record.
func FromDomain(o orderv1.Order) *Record {
	return &Record{
		Timestamp:     o.UpdatedAt,
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		Type:          string(o.Type),
		Quantity:      o.Quantity,
		Price:         o.Price,
		Status:        string(o.Status),
		FilledQty:     o.FilledQuantity,
		AveragePrice:  o.AveragePrice,
		Reason:        o.Reason,
	}
}
