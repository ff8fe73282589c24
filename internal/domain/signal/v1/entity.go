package signalv1

import (
	"time"
)

// Feature is an optional feature value. Insufficient data yields an invalid
// Feature, which callers treat as neutral rather than as an error. This keeps
// "no data" distinct from "computed zero".
type Feature struct {
	value float64
	valid bool
}

// NewFeature returns a valid Feature holding v.
func NewFeature(v float64) Feature {
	return Feature{value: v, valid: true}
}

// NoFeature returns an invalid Feature.
func NoFeature() Feature {
	return Feature{}
}

// Valid reports whether the feature holds a computed value.
func (f Feature) Valid() bool {
	return f.valid
}

// Value returns the computed value. Only meaningful when Valid is true.
func (f Feature) Value() float64 {
	return f.value
}

// Or returns the computed value, or def when the feature is invalid.
func (f Feature) Or(def float64) float64 {
	if !f.valid {
		return def
	}
	return f.value
}

// SignalType represents the direction of a trading signal.
type SignalType string

const (
	// SignalBuy indicates a long signal.
	SignalBuy SignalType = "BUY"
	// SignalSell indicates a short signal.
	SignalSell SignalType = "SELL"
)

// TradingSignal represents a directional trading signal emitted by the
// generator. Signals are read-only once emitted; a newer signal supersedes an
// older one, it never mutates it.
type TradingSignal struct {
	Symbol     string
	Type       SignalType
	Strength   float64 // [-1, 1], sign matches Type
	Confidence float64 // [0, 1]
	Reason     string
	Timestamp  time.Time
}
