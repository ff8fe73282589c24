package gateway

import (
	"context"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
)

// Gateway represents the execution venue the engine trades against.
type Gateway interface {
	// PlaceOrder submits an order to the venue and returns the venue's view
	// of it.
	PlaceOrder(ctx context.Context, req orderv1.PlaceOrderRequest) (orderv1.PlaceOrderResponse, error)

	// CancelOrder cancels a working order on the venue.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// QueryOrder returns the venue's current view of an order.
	QueryOrder(ctx context.Context, symbol, orderID string) (orderv1.PlaceOrderResponse, error)
}
