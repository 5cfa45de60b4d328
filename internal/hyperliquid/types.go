package hyperliquid

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The API returns most numeric fields as JSON strings ("szi": "-0.01").
// Float and Int are the only coercion path from those fields into the rest of
// the program: bad or empty input yields the zero value, never an error.

// Float parses a loosely typed numeric field, returning 0 on failure.
func Float(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// Int parses a loosely typed integer field, returning 0 on failure.
func Int(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return i
}

// Leverage is either {"type":"cross","value":20} or a bare number depending
// on endpoint version.
type Leverage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// UnmarshalJSON accepts both the object and bare-number encodings.
func (l *Leverage) UnmarshalJSON(data []byte) error {
	type leverageObj Leverage
	var obj leverageObj
	if err := json.Unmarshal(data, &obj); err == nil {
		*l = Leverage(obj)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Leverage{Value: v}
	return nil
}

// RawPosition is one open position as returned inside assetPositions.
type RawPosition struct {
	Coin          string   `json:"coin"`
	Szi           string   `json:"szi"`
	EntryPx       string   `json:"entryPx"`
	PositionValue string   `json:"positionValue"`
	UnrealizedPnl string   `json:"unrealizedPnl"`
	LiquidationPx string   `json:"liquidationPx"`
	MarginUsed    string   `json:"marginUsed"`
	Leverage      Leverage `json:"leverage"`
}

type assetPosition struct {
	Position RawPosition `json:"position"`
}

type marginSummary struct {
	AccountValue string `json:"accountValue"`
	TotalRawUsd  string `json:"totalRawUsd"`
}

// UserState is the position snapshot for one wallet.
type UserState struct {
	AssetPositions []assetPosition `json:"assetPositions"`
	MarginSummary  marginSummary   `json:"marginSummary"`
	Withdrawable   string          `json:"withdrawable"`
}

// Positions returns the raw positions in snapshot order.
func (u *UserState) Positions() []RawPosition {
	out := make([]RawPosition, 0, len(u.AssetPositions))
	for _, ap := range u.AssetPositions {
		out = append(out, ap.Position)
	}
	return out
}

// AccountValue extracts the wallet balance, preferring the margin summary
// account value, then withdrawable, then total raw USD.
func (u *UserState) AccountValue() float64 {
	if v := Float(u.MarginSummary.AccountValue); v != 0 {
		return v
	}
	if v := Float(u.Withdrawable); v != 0 {
		return v
	}
	return Float(u.MarginSummary.TotalRawUsd)
}

// Fill is a single executed trade. Side is "B" for buy, "A" for sell.
// Dir is the exchange's direction label ("Open Long", "Close Short", ...).
// StartPosition is the signed position size immediately before the fill.
type Fill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Dir           string `json:"dir"`
	Time          int64  `json:"time"`
	Hash          string `json:"hash"`
	StartPosition string `json:"startPosition"`
}

// TxHash returns the fill's transaction hash or "N/A" when absent.
func (f Fill) TxHash() string {
	if f.Hash != "" {
		return f.Hash
	}
	return "N/A"
}

// EndPosition recomputes the signed position size right after this fill.
func (f Fill) EndPosition() float64 {
	start := Float(f.StartPosition)
	size := Float(f.Sz)
	switch f.Side {
	case "B":
		return start + size
	case "A":
		return start - size
	}
	return start
}

// Candle is one entry from a candleSnapshot response.
type Candle struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
}
