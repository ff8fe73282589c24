package buffer

import (
	"sync"
	"time"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
)

// symbolBuffers holds the rolling history and derived metrics for one symbol.
// All access goes through its own lock, so mutation for one symbol never
// blocks another.
type symbolBuffers struct {
	mu      sync.RWMutex
	ticks   *Ring[marketv1.Tick]
	depths  *Ring[marketv1.DepthSnapshot]
	metrics marketv1.SymbolMetrics
}

// Store shards tick and depth history by symbol. There is no cross-symbol
// state, which keeps per-symbol mutation serialized without a global lock.
type Store struct {
	mu       sync.RWMutex
	symbols  map[string]*symbolBuffers
	tickCap  int
	depthCap int
}

// NewStore creates a buffer store with the given per-symbol capacities.
func NewStore(tickCapacity, depthCapacity int) *Store {
	return &Store{
		symbols:  make(map[string]*symbolBuffers),
		tickCap:  tickCapacity,
		depthCap: depthCapacity,
	}
}

func (s *Store) buffers(symbol string) *symbolBuffers {
	s.mu.RLock()
	sb, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok {
		return sb
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sb, ok = s.symbols[symbol]; ok {
		return sb
	}
	sb = &symbolBuffers{
		ticks:  NewRing[marketv1.Tick](s.tickCap),
		depths: NewRing[marketv1.DepthSnapshot](s.depthCap),
		metrics: marketv1.SymbolMetrics{
			Symbol: symbol,
		},
	}
	s.symbols[symbol] = sb
	return sb
}

// AppendTick appends a tick to its symbol buffer.
func (s *Store) AppendTick(tick marketv1.Tick) {
	sb := s.buffers(tick.Symbol)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.ticks.Append(tick)
	sb.metrics.LastPrice = tick.Price
	sb.metrics.UpdatedAt = tick.Timestamp
}

// AppendDepth appends a depth snapshot to its symbol buffer.
func (s *Store) AppendDepth(depth marketv1.DepthSnapshot) {
	sb := s.buffers(depth.Symbol)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.depths.Append(depth)
	if bps, ok := depth.SpreadBps(); ok {
		sb.metrics.SpreadBps = bps
	}
	sb.metrics.UpdatedAt = depth.Timestamp
}

// TicksSince returns the ticks for symbol with timestamp >= since, oldest
// first. The returned slice is a snapshot; the buffer is not mutated.
func (s *Store) TicksSince(symbol string, since time.Time) []marketv1.Tick {
	sb := s.buffers(symbol)
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	all := sb.ticks.Items()
	idx := len(all)
	for i, t := range all {
		if !t.Timestamp.Before(since) {
			idx = i
			break
		}
	}
	out := make([]marketv1.Tick, len(all)-idx)
	copy(out, all[idx:])
	return out
}

// Ticks returns all buffered ticks for symbol, oldest first.
func (s *Store) Ticks(symbol string) []marketv1.Tick {
	sb := s.buffers(symbol)
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.ticks.Items()
}

// LastTick returns the most recent tick for symbol.
func (s *Store) LastTick(symbol string) (marketv1.Tick, bool) {
	sb := s.buffers(symbol)
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.ticks.Last()
}

// LastPrice returns the most recent traded price for symbol.
func (s *Store) LastPrice(symbol string) (float64, bool) {
	tick, ok := s.LastTick(symbol)
	if !ok {
		return 0, false
	}
	return tick.Price, true
}

// LatestDepth returns the most recent depth snapshot for symbol.
func (s *Store) LatestDepth(symbol string) (marketv1.DepthSnapshot, bool) {
	sb := s.buffers(symbol)
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.depths.Last()
}

// UpdateMetrics applies fn to the symbol metrics under the symbol lock.
func (s *Store) UpdateMetrics(symbol string, fn func(*marketv1.SymbolMetrics)) {
	sb := s.buffers(symbol)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	fn(&sb.metrics)
}

// Metrics returns a snapshot of the symbol metrics.
func (s *Store) Metrics(symbol string) marketv1.SymbolMetrics {
	sb := s.buffers(symbol)
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.metrics
}

// AllMetrics returns a consistent snapshot of every tracked symbol's metrics.
// Cross-symbol readers (the selector) rank over this snapshot instead of
// holding the symbol map locked.
func (s *Store) AllMetrics() []marketv1.SymbolMetrics {
	s.mu.RLock()
	buffers := make([]*symbolBuffers, 0, len(s.symbols))
	for _, sb := range s.symbols {
		buffers = append(buffers, sb)
	}
	s.mu.RUnlock()

	out := make([]marketv1.SymbolMetrics, 0, len(buffers))
	for _, sb := range buffers {
		sb.mu.RLock()
		out = append(out, sb.metrics)
		sb.mu.RUnlock()
	}
	return out
}

// Symbols returns the tracked symbol keys.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}
