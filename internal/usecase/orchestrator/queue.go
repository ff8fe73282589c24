package orchestrator

import (
	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
)

// tradeQueue holds pending trades ordered by priority descending. Within a
// priority band insertion order is preserved: push scans from the front and
// inserts before the first entry with strictly lower priority, so an equal
// priority trade always lands behind its peers.
type tradeQueue struct {
	items []*orderv1.TradeOrder
}

func newTradeQueue() *tradeQueue {
	return &tradeQueue{}
}

// push inserts the trade at its priority position, FIFO within the band.
func (q *tradeQueue) push(trade *orderv1.TradeOrder) {
	idx := len(q.items)
	for i, item := range q.items {
		if item.Priority < trade.Priority {
			idx = i
			break
		}
	}
	q.items = append(q.items, nil)
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = trade
}

// pop removes and returns the front trade, or nil when empty.
func (q *tradeQueue) pop() *orderv1.TradeOrder {
	if len(q.items) == 0 {
		return nil
	}
	trade := q.items[0]
	q.items = q.items[1:]
	return trade
}

// popAtOrAbove removes and returns the front trade whose priority is at least
// min, or nil when there is none. The front of the queue is always the
// highest-priority entry, so only the head needs to be inspected.
func (q *tradeQueue) popAtOrAbove(min int) *orderv1.TradeOrder {
	if len(q.items) == 0 || q.items[0].Priority < min {
		return nil
	}
	return q.pop()
}

// remove extracts the trade with the given id, or nil if it is not queued.
func (q *tradeQueue) remove(id string) *orderv1.TradeOrder {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item
		}
	}
	return nil
}

// removeBySymbol extracts every queued trade for the symbol. An empty symbol
// extracts everything.
func (q *tradeQueue) removeBySymbol(symbol string) []*orderv1.TradeOrder {
	var removed []*orderv1.TradeOrder
	kept := q.items[:0]
	for _, item := range q.items {
		if symbol == "" || item.Symbol == symbol {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return removed
}

func (q *tradeQueue) len() int {
	return len(q.items)
}

// notionalForSymbol sums the notional of queued trades for the symbol.
func (q *tradeQueue) notionalForSymbol(symbol string) float64 {
	var total float64
	for _, item := range q.items {
		if item.Symbol == symbol {
			total += item.Notional()
		}
	}
	return total
}

// countAtOrAbove counts queued trades with priority at least min.
func (q *tradeQueue) countAtOrAbove(min int) int {
	count := 0
	for _, item := range q.items {
		if item.Priority >= min {
			count++
		}
	}
	return count
}
