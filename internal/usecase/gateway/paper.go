package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// PriceSource provides the last traded price for a symbol. The buffer store
// satisfies it.
type PriceSource interface {
	LastPrice(symbol string) (float64, bool)
}

// Paper represents a paper trading venue. Orders fill immediately, market
// orders at the last buffered price, which keeps the full pipeline runnable
// without exchange credentials.
type Paper struct {
	logger logger.Interface
	prices PriceSource

	mu    sync.Mutex
	fills map[string]orderv1.PlaceOrderResponse
}

// NewPaper creates a paper trading gateway. prices may be nil; market orders
// then fill at their reference price.
func NewPaper(log logger.Interface, prices PriceSource) *Paper {
	return &Paper{
		logger: log,
		prices: prices,
		fills:  make(map[string]orderv1.PlaceOrderResponse),
	}
}

// PlaceOrder fills the order in full. Limit orders fill at their limit price;
// market orders fill at the last traded price when one is buffered.
func (p *Paper) PlaceOrder(ctx context.Context, req orderv1.PlaceOrderRequest) (orderv1.PlaceOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return orderv1.PlaceOrderResponse{}, errors.NewErrorDetails(
			"paper gateway placement aborted: "+err.Error(),
			string(errors.ErrExecutionFailure),
			"",
		)
	}

	price := req.Price
	if req.Type == orderv1.TypeMarket && p.prices != nil {
		if last, ok := p.prices.LastPrice(req.Symbol); ok {
			price = last
		}
	}
	if price <= 0 {
		return orderv1.PlaceOrderResponse{}, errors.NewErrorDetails(
			"paper gateway has no price for "+req.Symbol,
			string(errors.GeneralValidationError),
			"price",
		)
	}

	resp := orderv1.PlaceOrderResponse{
		OrderID:     uuid.NewString(),
		Status:      orderv1.StatusFilled,
		ExecutedQty: req.Quantity,
		AvgPrice:    price,
	}

	p.mu.Lock()
	p.fills[resp.OrderID] = resp
	p.mu.Unlock()

	p.logger.Debug("paper order filled",
		logger.Field{Key: "order_id", Value: resp.OrderID},
		logger.Field{Key: "symbol", Value: req.Symbol},
		logger.Field{Key: "side", Value: string(req.Side)},
		logger.Field{Key: "quantity", Value: req.Quantity},
		logger.Field{Key: "price", Value: price},
	)

	return resp, nil
}

// CancelOrder cancels a previously placed order. Paper orders fill
// immediately, so this only verifies the order is known.
func (p *Paper) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewErrorDetails(
			"paper gateway cancel aborted: "+err.Error(),
			string(errors.ErrExecutionFailure),
			"",
		)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.fills[orderID]; !ok {
		return errors.NewErrorDetails(
			"unknown order id "+orderID,
			string(errors.GeneralNotFoundError),
			"order_id",
		)
	}
	return nil
}

// QueryOrder returns the stored fill for the order.
func (p *Paper) QueryOrder(ctx context.Context, symbol, orderID string) (orderv1.PlaceOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return orderv1.PlaceOrderResponse{}, errors.NewErrorDetails(
			"paper gateway query aborted: "+err.Error(),
			string(errors.ErrExecutionFailure),
			"",
		)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	resp, ok := p.fills[orderID]
	if !ok {
		return orderv1.PlaceOrderResponse{}, errors.NewErrorDetails(
			"unknown order id "+orderID,
			string(errors.GeneralNotFoundError),
			"order_id",
		)
	}
	return resp, nil
}
