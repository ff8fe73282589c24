package signal

import (
	"sort"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
	"github.com/tironinho/kronos-sub000/pkg/config"
)

// Selector narrows the working symbol set by ranking tracked symbols on
// volatility times 24h volume. When disabled it passes every tracked symbol
// through.
type Selector struct {
	cfg config.SelectorConfig
}

// NewSelector creates a symbol selector.
func NewSelector(cfg config.SelectorConfig) *Selector {
	return &Selector{cfg: cfg}
}

// Select ranks the given metrics snapshot and returns the selected symbols,
// best first.
func (s *Selector) Select(metrics []marketv1.SymbolMetrics) []string {
	if !s.cfg.Enabled {
		out := make([]string, len(metrics))
		for i, m := range metrics {
			out[i] = m.Symbol
		}
		return out
	}

	candidates := make([]marketv1.SymbolMetrics, 0, len(metrics))
	for _, m := range metrics {
		if m.Volatility < s.cfg.MinVolatility {
			continue
		}
		if m.Volume24h < s.cfg.MinVolume24h {
			continue
		}
		candidates = append(candidates, m)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Volatility*candidates[i].Volume24h >
			candidates[j].Volatility*candidates[j].Volume24h
	})

	n := s.cfg.TopN
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].Symbol
	}
	return out
}
