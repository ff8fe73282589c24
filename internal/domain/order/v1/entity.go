package orderv1

import (
	"errors"
	"time"
)

var (
	// ErrTerminalTransition is returned when a transition out of a terminal
	// status is attempted.
	ErrTerminalTransition = errors.New("order is in a terminal status")
	// ErrInvalidTransition is returned when a status transition is not allowed
	// by the state machine.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrOrderNotFound is returned when an order id is unknown.
	ErrOrderNotFound = errors.New("order not found")
)

// Side represents the direction of an order.
type Side string

const (
	// SideBuy indicates a buy order.
	SideBuy Side = "BUY"
	// SideSell indicates a sell order.
	SideSell Side = "SELL"
)

// Opposite returns the opposing side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type represents the execution type of an order.
type Type string

const (
	// TypeMarket indicates a market order.
	TypeMarket Type = "MARKET"
	// TypeLimit indicates a limit order. Limit orders require a price.
	TypeLimit Type = "LIMIT"
)

// TradeStatus represents the lifecycle status of an orchestrator trade.
// A trade transitions PENDING -> {EXECUTED | CANCELLED | FAILED} exactly once.
type TradeStatus string

const (
	// TradePending indicates the trade is queued or in flight.
	TradePending TradeStatus = "PENDING"
	// TradeExecuted indicates the trade was handed to the gateway successfully.
	TradeExecuted TradeStatus = "EXECUTED"
	// TradeCancelled indicates the trade was rejected or cancelled.
	TradeCancelled TradeStatus = "CANCELLED"
	// TradeFailed indicates the gateway returned a failure or timed out.
	TradeFailed TradeStatus = "FAILED"
)

// IsTerminal reports whether the trade status is final.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeExecuted || s == TradeCancelled || s == TradeFailed
}

// TradeOrder represents a trade intent owned by the orchestrator until it is
// dispatched to the order manager.
type TradeOrder struct {
	ID        string
	Symbol    string
	Side      Side
	Type      Type
	Quantity  float64
	Price     float64 // required for LIMIT, reference price for MARKET
	Priority  int     // [1, 10], higher drains first
	Status    TradeStatus
	Reason    string
	Timestamp time.Time
}

// Notional returns the order notional at its price.
func (t *TradeOrder) Notional() float64 {
	return t.Price * t.Quantity
}

// Status represents the execution-level status of an order.
type Status string

const (
	// StatusNew indicates the order is accepted and working.
	StatusNew Status = "NEW"
	// StatusPartiallyFilled indicates the order is partially executed and still working.
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	// StatusFilled indicates the order is fully executed. Terminal.
	StatusFilled Status = "FILLED"
	// StatusCanceled indicates the order was cancelled. Terminal.
	StatusCanceled Status = "CANCELED"
	// StatusRejected indicates the order was rejected. Terminal.
	StatusRejected Status = "REJECTED"
	// StatusExpired indicates the order expired on the venue. Terminal.
	StatusExpired Status = "EXPIRED"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsWorking reports whether an order in this status is live on the venue.
func (s Status) IsWorking() bool {
	return s == StatusNew || s == StatusPartiallyFilled
}

// validTransitions encodes the execution state machine. Absence of a key means
// no transition is allowed out of that status.
var validTransitions = map[Status][]Status{
	StatusNew: {
		StatusPartiallyFilled,
		StatusFilled,
		StatusCanceled,
		StatusRejected,
		StatusExpired,
	},
	StatusPartiallyFilled: {
		StatusPartiallyFilled,
		StatusFilled,
		StatusCanceled,
		StatusExpired,
	},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order represents an execution-level order owned by the order manager.
type Order struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Side           Side
	Type           Type
	Quantity       float64
	Price          float64 // zero for market orders
	Status         Status
	FilledQuantity float64
	AveragePrice   float64
	Reason         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsWorking reports whether the order is live on the venue. Holds exactly when
// status is NEW or PARTIALLY_FILLED.
func (o *Order) IsWorking() bool {
	return o.Status.IsWorking()
}

// Transition moves the order into the given status, enforcing monotonicity:
// there is no way out of a terminal status.
func (o *Order) Transition(to Status) error {
	if o.Status.IsTerminal() {
		return ErrTerminalTransition
	}
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Fill represents an execution against an order.
type Fill struct {
	OrderID   string
	Symbol    string
	Side      Side
	Quantity  float64
	Price     float64
	Timestamp time.Time
}

// PlaceOrderRequest is the request handed to the execution gateway.
type PlaceOrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          Type
	Quantity      float64
	Price         float64
}

// PlaceOrderResponse is the gateway's answer to a placement request.
type PlaceOrderResponse struct {
	OrderID     string
	Status      Status
	ExecutedQty float64
	AvgPrice    float64
}
