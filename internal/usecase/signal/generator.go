package signal

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	signalv1 "github.com/tironinho/kronos-sub000/internal/domain/signal/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/features"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Feature vote weights. OFI alone can carry a signal past the strength
// threshold when the imbalance is decisive; the remaining features push a
// borderline read over the line.
const (
	ofiWeight      = 0.6
	ofiConfidence  = 0.4
	ofiThreshold   = 0.5
	zWeight        = 0.3
	zConfidence    = 0.25
	momWeight      = 0.25
	momConfidence  = 0.2
	meanRevWeight  = 0.2
	meanRevConf    = 0.15
	queueWeight    = 0.2
	queueConf      = 0.15
	vpinToxicLevel = 0.6
	vpinPenalty    = 0.1
)

// Generator combines feature snapshots into directional trading signals. Per
// symbol it cycles IDLE -> SIGNAL_EMITTED -> (cooldown elapses) -> IDLE; while
// the cooldown runs no signal is emitted for that symbol no matter what the
// features say.
type Generator struct {
	cfg    config.SignalConfig
	logger logger.Interface

	mu       sync.Mutex
	lastEmit map[string]time.Time
}

// NewGenerator creates a signal generator.
func NewGenerator(cfg config.SignalConfig, log logger.Interface) *Generator {
	return &Generator{
		cfg:      cfg,
		logger:   log,
		lastEmit: make(map[string]time.Time),
	}
}

// Evaluate turns a feature snapshot into a signal, or nil when the combined
// strength or confidence does not clear the configured floors, or the symbol
// is cooling down. Invalid features are neutral; they contribute nothing.
func (g *Generator) Evaluate(snap features.Snapshot) *signalv1.TradingSignal {
	if g.coolingDown(snap.Symbol, snap.Timestamp) {
		return nil
	}

	var strength, confidence float64
	var reasons []string

	if snap.OFI.Valid() && math.Abs(snap.OFI.Value()) >= ofiThreshold {
		strength += ofiWeight * sign(snap.OFI.Value())
		confidence += ofiConfidence
		reasons = append(reasons, fmt.Sprintf("ofi=%.2f", snap.OFI.Value()))
	}

	if snap.OFIZScore.Valid() && math.Abs(snap.OFIZScore.Value()) >= g.cfg.ZScoreThreshold {
		strength += zWeight * sign(snap.OFIZScore.Value())
		confidence += zConfidence
		reasons = append(reasons, fmt.Sprintf("ofi_z=%.2f", snap.OFIZScore.Value()))
	}

	if snap.Momentum.Valid() && math.Abs(snap.Momentum.Value()) >= g.cfg.MinEdgeBps {
		strength += momWeight * sign(snap.Momentum.Value())
		confidence += momConfidence
		reasons = append(reasons, fmt.Sprintf("mom_bps=%.1f", snap.Momentum.Value()))
	}

	if snap.MeanReversion.Valid() && math.Abs(snap.MeanReversion.Value()) >= g.cfg.MeanRevTicks {
		// Price stretched away from its trailing average: fade the move.
		strength += meanRevWeight * -sign(snap.MeanReversion.Value())
		confidence += meanRevConf
		reasons = append(reasons, fmt.Sprintf("mean_rev=%.2f", snap.MeanReversion.Value()))
	}

	if snap.QueueImbalance.Valid() && math.Abs(snap.QueueImbalance.Value()) >= g.cfg.QueueImbThreshold {
		strength += queueWeight * sign(snap.QueueImbalance.Value())
		confidence += queueConf
		reasons = append(reasons, fmt.Sprintf("queue_imb=%.2f", snap.QueueImbalance.Value()))
	}

	if snap.VPIN.Valid() && snap.VPIN.Value() > vpinToxicLevel {
		// Toxic flow: keep the direction but trust it less.
		confidence -= vpinPenalty
		reasons = append(reasons, fmt.Sprintf("vpin=%.2f", snap.VPIN.Value()))
	}

	strength = clamp(strength, -1, 1)
	confidence = clamp(confidence, 0, 1)

	if math.Abs(strength) < g.cfg.MinStrength || confidence < g.cfg.MinConfidence {
		return nil
	}

	signalType := signalv1.SignalBuy
	if strength < 0 {
		signalType = signalv1.SignalSell
	}

	g.markEmitted(snap.Symbol, snap.Timestamp)

	sig := &signalv1.TradingSignal{
		Symbol:     snap.Symbol,
		Type:       signalType,
		Strength:   strength,
		Confidence: confidence,
		Reason:     strings.Join(reasons, " "),
		Timestamp:  snap.Timestamp,
	}

	g.logger.Info("signal emitted",
		logger.Field{Key: "symbol", Value: sig.Symbol},
		logger.Field{Key: "type", Value: string(sig.Type)},
		logger.Field{Key: "strength", Value: sig.Strength},
		logger.Field{Key: "confidence", Value: sig.Confidence},
		logger.Field{Key: "reason", Value: sig.Reason},
	)

	return sig
}

// coolingDown reports whether the symbol is inside its cooldown window.
func (g *Generator) coolingDown(symbol string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastEmit[symbol]
	if !ok {
		return false
	}
	return now.Sub(last) < g.cfg.Cooldown
}

func (g *Generator) markEmitted(symbol string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastEmit[symbol] = now
}

// SweepCooldowns drops cooldown entries that elapsed before now. The
// reconciler calls this periodically so the map does not grow with symbols
// that stopped trading.
func (g *Generator) SweepCooldowns(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for symbol, last := range g.lastEmit {
		if now.Sub(last) >= g.cfg.Cooldown {
			delete(g.lastEmit, symbol)
			removed++
		}
	}
	return removed
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
