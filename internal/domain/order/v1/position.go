package orderv1

import (
	"time"
)

// Position represents the net position for a symbol. There is at most one per
// symbol; it is mutated only by fills and removed when quantity reaches zero.
type Position struct {
	Symbol       string
	Side         Side
	Quantity     float64
	AveragePrice float64
	UpdatedAt    time.Time
}

// Notional returns the position notional at its average price.
func (p *Position) Notional() float64 {
	return p.Quantity * p.AveragePrice
}

// UnrealizedPnL returns the mark-to-market profit at the given price.
func (p *Position) UnrealizedPnL(markPrice float64) float64 {
	diff := markPrice - p.AveragePrice
	if p.Side == SideSell {
		diff = -diff
	}
	return diff * p.Quantity
}

// ApplyFill applies a fill to the position and returns the updated position
// and the realized PnL of the fill. A nil result means the position is closed.
//
// A same-side fill accumulates at a volume-weighted average price. An
// opposite-side fill is resolved in one of three explicit cases: partial
// close, exact close, or flip to the opposite side at the fill price.
func ApplyFill(pos *Position, fill Fill) (*Position, float64) {
	if pos == nil {
		return &Position{
			Symbol:       fill.Symbol,
			Side:         fill.Side,
			Quantity:     fill.Quantity,
			AveragePrice: fill.Price,
			UpdatedAt:    fill.Timestamp,
		}, 0
	}

	if fill.Side == pos.Side {
		total := pos.Quantity + fill.Quantity
		vwap := (pos.AveragePrice*pos.Quantity + fill.Price*fill.Quantity) / total
		return &Position{
			Symbol:       pos.Symbol,
			Side:         pos.Side,
			Quantity:     total,
			AveragePrice: vwap,
			UpdatedAt:    fill.Timestamp,
		}, 0
	}

	direction := 1.0
	if pos.Side == SideSell {
		direction = -1.0
	}

	switch {
	case fill.Quantity < pos.Quantity:
		// Partial close: average price is unchanged.
		realized := (fill.Price - pos.AveragePrice) * fill.Quantity * direction
		return &Position{
			Symbol:       pos.Symbol,
			Side:         pos.Side,
			Quantity:     pos.Quantity - fill.Quantity,
			AveragePrice: pos.AveragePrice,
			UpdatedAt:    fill.Timestamp,
		}, realized

	case fill.Quantity == pos.Quantity:
		// Exact close.
		realized := (fill.Price - pos.AveragePrice) * fill.Quantity * direction
		return nil, realized

	default:
		// Flip: realize the full close, open the remainder on the fill side.
		realized := (fill.Price - pos.AveragePrice) * pos.Quantity * direction
		return &Position{
			Symbol:       pos.Symbol,
			Side:         fill.Side,
			Quantity:     fill.Quantity - pos.Quantity,
			AveragePrice: fill.Price,
			UpdatedAt:    fill.Timestamp,
		}, realized
	}
}
