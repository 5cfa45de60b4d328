package monitor

import (
	"fmt"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

// EventType tags a position lifecycle transition.
type EventType string

const (
	EventOpened   EventType = "opened"
	EventReduced  EventType = "reduced"
	EventClosed   EventType = "closed"
	EventSnapshot EventType = "snapshot"
	EventEmpty    EventType = "empty"
)

// Event is one lifecycle notification ready for delivery.
type Event struct {
	Type    EventType
	Coin    string
	Address string
	Message string
}

// eventID derives the stable identity used for deduplication. Two candidate
// events describe the same underlying transition exactly when their ids are
// equal: same type, coin, linked fill (hash + timestamp + size) and resulting
// position (size + entry price).
func eventID(t EventType, coin string, fill *hyperliquid.Fill, pos *Position) string {
	txHash := "N/A"
	var fillTime int64
	fillSize := ""
	if fill != nil {
		txHash = fill.TxHash()
		fillTime = fill.Time
		fillSize = fill.Sz
	}
	var size, entry float64
	if pos != nil {
		size = pos.Size
		entry = pos.EntryPrice
	}
	return fmt.Sprintf("%s:%s:%s:%d:%v:%v:%s", t, coin, txHash, fillTime, size, entry, fillSize)
}

// tradeDetails carries the fill facts rendered into alert messages.
type tradeDetails struct {
	Price    float64
	Size     float64
	Time     int64
	TxHash   string
	Leverage float64
}

// buildTradeDetails merges a position and its (possibly nil) relevant fill.
func buildTradeDetails(pos Position, fill *hyperliquid.Fill) tradeDetails {
	td := tradeDetails{
		TxHash:   "N/A",
		Leverage: pos.Leverage(),
	}
	if fill != nil {
		td.Price = hyperliquid.Float(fill.Px)
		td.Size = hyperliquid.Float(fill.Sz)
		td.Time = fill.Time
		td.TxHash = fill.TxHash()
	}
	if td.Price <= 0 {
		td.Price = pos.EntryPrice
	}
	return td
}
