package marketdata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
)

// envelope is the combined-stream frame: the stream name routes the payload.
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type tradeMessage struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	IsBuyerMaker bool   `json:"m"`
	TradeTime    int64  `json:"T"`
}

type depthMessage struct {
	Symbol    string     `json:"s"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
	EventTime int64      `json:"E"`
}

type tickerMessage struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	Volume    string `json:"v"`
	EventTime int64  `json:"E"`
}

// subscribeCommand is the protocol-level subscribe frame.
type subscribeCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// streamName builds the stream identifier for a kind and symbol.
func streamName(kind marketv1.StreamKind, symbol string) string {
	return fmt.Sprintf("%s@%s", strings.ToLower(symbol), string(kind))
}

// kindFromStream extracts the stream kind from a stream identifier.
func kindFromStream(stream string) (marketv1.StreamKind, bool) {
	idx := strings.IndexByte(stream, '@')
	if idx < 0 {
		return "", false
	}
	switch marketv1.StreamKind(stream[idx+1:]) {
	case marketv1.StreamTrade:
		return marketv1.StreamTrade, true
	case marketv1.StreamDepth:
		return marketv1.StreamDepth, true
	case marketv1.StreamTicker:
		return marketv1.StreamTicker, true
	}
	return "", false
}

func parseTrade(data json.RawMessage) (marketv1.Tick, error) {
	var msg tradeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return marketv1.Tick{}, err
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return marketv1.Tick{}, fmt.Errorf("invalid trade price %q: %w", msg.Price, err)
	}
	qty, err := strconv.ParseFloat(msg.Quantity, 64)
	if err != nil {
		return marketv1.Tick{}, fmt.Errorf("invalid trade quantity %q: %w", msg.Quantity, err)
	}

	return marketv1.Tick{
		Symbol:     msg.Symbol,
		Price:      price,
		Quantity:   qty,
		BuyerMaker: msg.IsBuyerMaker,
		Timestamp:  time.UnixMilli(msg.TradeTime),
	}, nil
}

func parseDepth(data json.RawMessage) (marketv1.DepthSnapshot, error) {
	var msg depthMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return marketv1.DepthSnapshot{}, err
	}

	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return marketv1.DepthSnapshot{}, fmt.Errorf("invalid bids: %w", err)
	}
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return marketv1.DepthSnapshot{}, fmt.Errorf("invalid asks: %w", err)
	}

	return marketv1.DepthSnapshot{
		Symbol:    msg.Symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.UnixMilli(msg.EventTime),
	}, nil
}

func parseTicker(data json.RawMessage) (marketv1.TickerUpdate, error) {
	var msg tickerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return marketv1.TickerUpdate{}, err
	}

	last, err := strconv.ParseFloat(msg.LastPrice, 64)
	if err != nil {
		return marketv1.TickerUpdate{}, fmt.Errorf("invalid last price %q: %w", msg.LastPrice, err)
	}
	volume, err := strconv.ParseFloat(msg.Volume, 64)
	if err != nil {
		return marketv1.TickerUpdate{}, fmt.Errorf("invalid volume %q: %w", msg.Volume, err)
	}

	return marketv1.TickerUpdate{
		Symbol:    msg.Symbol,
		LastPrice: last,
		Volume24h: volume,
		Timestamp: time.UnixMilli(msg.EventTime),
	}, nil
}

func parseLevels(raw [][]string) ([]marketv1.BookLevel, error) {
	levels := make([]marketv1.BookLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, err
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, err
		}
		levels = append(levels, marketv1.BookLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}
