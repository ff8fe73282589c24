package marketv1

import (
	"time"
)

// StreamKind identifies one of the exchange stream types a subscriber can
// attach to.
type StreamKind string

const (
	// StreamTrade carries individual executed trades.
	StreamTrade StreamKind = "trade"
	// StreamDepth carries order book snapshots.
	StreamDepth StreamKind = "depth"
	// StreamTicker carries rolling 24h ticker statistics.
	StreamTicker StreamKind = "ticker"
)

// Tick represents a single executed trade on the venue. Ticks are immutable;
// they are appended to a symbol buffer once and expire via eviction.
type Tick struct {
	Symbol     string
	Price      float64
	Quantity   float64
	BuyerMaker bool // true when the buyer was the passive side
	Timestamp  time.Time
}

// IsBuy reports whether the aggressor was the buyer.
func (t Tick) IsBuy() bool {
	return !t.BuyerMaker
}

// Notional returns the traded notional of the tick.
func (t Tick) Notional() float64 {
	return t.Price * t.Quantity
}

// SignedQuantity returns the quantity signed by aggressor direction, positive
// for buys and negative for sells.
func (t Tick) SignedQuantity() float64 {
	if t.IsBuy() {
		return t.Quantity
	}
	return -t.Quantity
}

// BookLevel represents a single price level in the order book.
type BookLevel struct {
	Price    float64
	Quantity float64
}

// DepthSnapshot represents the top of the order book for a symbol at a point
// in time. Levels are sorted best price first. A new snapshot replaces the
// previous one for its symbol.
type DepthSnapshot struct {
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
}

// BestBid returns the best bid level, if present.
func (d *DepthSnapshot) BestBid() (BookLevel, bool) {
	if len(d.Bids) == 0 {
		return BookLevel{}, false
	}
	return d.Bids[0], true
}

// BestAsk returns the best ask level, if present.
func (d *DepthSnapshot) BestAsk() (BookLevel, bool) {
	if len(d.Asks) == 0 {
		return BookLevel{}, false
	}
	return d.Asks[0], true
}

// MidPrice returns the mid point between the best bid and ask.
func (d *DepthSnapshot) MidPrice() (float64, bool) {
	bid, okBid := d.BestBid()
	ask, okAsk := d.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// SpreadBps returns the bid/ask spread expressed in basis points of the mid.
func (d *DepthSnapshot) SpreadBps() (float64, bool) {
	bid, okBid := d.BestBid()
	ask, okAsk := d.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	mid := (bid.Price + ask.Price) / 2
	if mid <= 0 {
		return 0, false
	}
	return (ask.Price - bid.Price) / mid * 10000, true
}

// TickerUpdate represents a rolling 24h statistics update for a symbol.
type TickerUpdate struct {
	Symbol    string
	LastPrice float64
	Volume24h float64
	Timestamp time.Time
}

// SymbolMetrics represents the derived per-symbol view the selector and
// signal generator read. It is recomputed on every tick or depth update and
// is always derivable from the current buffer contents.
type SymbolMetrics struct {
	Symbol             string
	LastPrice          float64
	SpreadBps          float64
	OFIScore           float64
	MomentumScore      float64
	MeanReversionScore float64
	Volatility         float64
	Volume24h          float64
	UpdatedAt          time.Time
}
