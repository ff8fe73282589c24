package features

import (
	"sort"
	"time"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
	signalv1 "github.com/tironinho/kronos-sub000/internal/domain/signal/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/buffer"
	"github.com/tironinho/kronos-sub000/pkg/config"
)

// Snapshot represents the full feature set computed for a symbol at a point
// in time. Invalid features mean "insufficient data", not zero.
type Snapshot struct {
	Symbol         string
	OFI            signalv1.Feature
	OFIZScore      signalv1.Feature
	Momentum       signalv1.Feature
	MeanReversion  signalv1.Feature
	QueueImbalance signalv1.Feature
	VPIN           signalv1.Feature
	Volatility     signalv1.Feature
	Skewness       signalv1.Feature
	Kurtosis       signalv1.Feature
	Timestamp      time.Time
}

// Engine computes microstructural features over buffer windows. Computation is
// CPU-bound and never blocks on I/O; all state lives in the buffer store.
type Engine struct {
	cfg     config.FeatureConfig
	store   *buffer.Store
	windows []time.Duration // OFI windows sorted shortest first
}

// NewEngine creates a feature engine bound to the given buffer store.
func NewEngine(cfg config.FeatureConfig, store *buffer.Store) *Engine {
	windows := make([]time.Duration, len(cfg.OFIWindows))
	copy(windows, cfg.OFIWindows)
	sort.Slice(windows, func(i, j int) bool { return windows[i] < windows[j] })

	return &Engine{
		cfg:     cfg,
		store:   store,
		windows: windows,
	}
}

// Compute derives the feature snapshot for a symbol from its current buffers
// and records the derived scores into the symbol metrics.
func (e *Engine) Compute(symbol string, now time.Time) Snapshot {
	snap := Snapshot{
		Symbol:    symbol,
		Timestamp: now,
	}

	longest := e.longestWindow()
	ticks := e.store.TicksSince(symbol, now.Add(-longest))

	var depth *marketv1.DepthSnapshot
	if d, ok := e.store.LatestDepth(symbol); ok {
		depth = &d
	}

	if len(ticks) >= e.cfg.MinObservations {
		snap.OFI = OFI(e.since(ticks, now.Add(-e.windows[0])))
		snap.OFIZScore = e.ofiZScore(ticks, now)
		snap.VPIN = VPIN(ticks, e.cfg.VPINBuckets)
		snap.Volatility = RealizedVolatility(e.since(ticks, now.Add(-e.cfg.VolatilityWindow)))
		snap.Skewness = Skewness(ticks)
		snap.Kurtosis = Kurtosis(ticks)
		snap.Momentum = Momentum(e.since(ticks, now.Add(-e.cfg.MomentumWindow)), e.cfg.MomentumMinVolume)
		snap.MeanReversion = MeanReversionDeviation(e.since(ticks, now.Add(-e.cfg.MeanRevWindow)), depth)
	}
	snap.QueueImbalance = QueueImbalance(depth, e.cfg.QueueDepthLevels)

	e.store.UpdateMetrics(symbol, func(m *marketv1.SymbolMetrics) {
		m.OFIScore = snap.OFI.Or(m.OFIScore)
		m.MomentumScore = snap.Momentum.Or(m.MomentumScore)
		m.MeanReversionScore = snap.MeanReversion.Or(m.MeanReversionScore)
		m.Volatility = snap.Volatility.Or(m.Volatility)
	})

	return snap
}

// ofiZScore scores the shortest-window OFI against the OFI values of every
// configured window.
func (e *Engine) ofiZScore(ticks []marketv1.Tick, now time.Time) signalv1.Feature {
	values := make([]float64, 0, len(e.windows))
	for _, w := range e.windows {
		ofi := OFI(e.since(ticks, now.Add(-w)))
		if !ofi.Valid() {
			return signalv1.NoFeature()
		}
		values = append(values, ofi.Value())
	}
	return ZScore(values)
}

func (e *Engine) longestWindow() time.Duration {
	longest := e.cfg.VolatilityWindow
	if e.cfg.MeanRevWindow > longest {
		longest = e.cfg.MeanRevWindow
	}
	if e.cfg.MomentumWindow > longest {
		longest = e.cfg.MomentumWindow
	}
	if n := len(e.windows); n > 0 && e.windows[n-1] > longest {
		longest = e.windows[n-1]
	}
	return longest
}

// since filters an already-sorted tick slice down to timestamp >= cutoff.
func (e *Engine) since(ticks []marketv1.Tick, cutoff time.Time) []marketv1.Tick {
	idx := len(ticks)
	for i, t := range ticks {
		if !t.Timestamp.Before(cutoff) {
			idx = i
			break
		}
	}
	return ticks[idx:]
}
