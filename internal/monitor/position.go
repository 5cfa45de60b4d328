package monitor

import (
	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

// SizeEpsilon is the tolerance for treating a position size as zero. All
// sign and size comparisons in this package go through it; it is part of the
// diff contract, not an implementation detail.
const SizeEpsilon = 1e-9

// Position is a parsed open position, replaced wholesale from each snapshot.
type Position struct {
	Coin             string  `json:"coin"`
	Size             float64 `json:"szi"`
	EntryPrice       float64 `json:"entryPx"`
	Value            float64 `json:"positionValue"`
	UnrealizedPnl    float64 `json:"unrealizedPnl"`
	LiquidationPrice float64 `json:"liquidationPx"`
	MarginUsed       float64 `json:"marginUsed"`
	LeverageValue    float64 `json:"leverage"`
}

// PositionFromRaw coerces a raw snapshot entry into a Position.
func PositionFromRaw(raw hyperliquid.RawPosition) Position {
	return Position{
		Coin:             raw.Coin,
		Size:             hyperliquid.Float(raw.Szi),
		EntryPrice:       hyperliquid.Float(raw.EntryPx),
		Value:            hyperliquid.Float(raw.PositionValue),
		UnrealizedPnl:    hyperliquid.Float(raw.UnrealizedPnl),
		LiquidationPrice: hyperliquid.Float(raw.LiquidationPx),
		MarginUsed:       hyperliquid.Float(raw.MarginUsed),
		LeverageValue:    raw.Leverage.Value,
	}
}

// Sign returns -1, 0 or +1 for the position direction, zero within epsilon.
func Sign(size float64) int {
	switch {
	case size > SizeEpsilon:
		return 1
	case size < -SizeEpsilon:
		return -1
	}
	return 0
}

// IsLong reports a positive position.
func (p Position) IsLong() bool { return Sign(p.Size) > 0 }

// AbsSize returns the unsigned position size.
func (p Position) AbsSize() float64 {
	if p.Size < 0 {
		return -p.Size
	}
	return p.Size
}

// AbsValue returns the unsigned notional value.
func (p Position) AbsValue() float64 {
	if p.Value < 0 {
		return -p.Value
	}
	return p.Value
}

// EffectiveEntryPrice derives the entry price: the exchange-reported entryPx
// when present, else notional value over size.
func (p Position) EffectiveEntryPrice() float64 {
	if p.EntryPrice > 0 {
		return p.EntryPrice
	}
	size := p.AbsSize()
	if size <= SizeEpsilon {
		return 0
	}
	if derived := p.AbsValue() / size; derived > 0 {
		return derived
	}
	return 0
}

// Leverage derives the effective leverage: the reported value when present,
// else notional over margin used.
func (p Position) Leverage() float64 {
	if p.LeverageValue > 0 {
		return p.LeverageValue
	}
	if p.MarginUsed > 0 {
		return p.AbsValue() / p.MarginUsed
	}
	return 0
}

// CoinMeta records the last emitted event identity per coin. At most one of
// the open/close markers is live after a transition: closing clears the
// open/reduce markers and opening clears the close/reduce markers.
type CoinMeta struct {
	LastOpenID   string `json:"last_open_id,omitempty"`
	LastCloseID  string `json:"last_close_id,omitempty"`
	LastReduceID string `json:"last_reduce_id,omitempty"`
}

// WalletMeta is the per-wallet bookkeeping that survives restarts.
type WalletMeta struct {
	EmptyNotified    bool                 `json:"empty_notified"`
	LastSnapshotHash string               `json:"last_snapshot_hash,omitempty"`
	Coins            map[string]*CoinMeta `json:"coins"`
}

// coin returns the meta entry for a coin, creating it if needed.
func (m *WalletMeta) coin(name string) *CoinMeta {
	if m.Coins == nil {
		m.Coins = make(map[string]*CoinMeta)
	}
	cm := m.Coins[name]
	if cm == nil {
		cm = &CoinMeta{}
		m.Coins[name] = cm
	}
	return cm
}

// WalletEntry is the persisted state for one wallet.
type WalletEntry struct {
	Positions map[string]Position `json:"positions"`
	Meta      WalletMeta          `json:"meta"`
}

// normalize fills in nil maps after deserialization.
func (w *WalletEntry) normalize() {
	if w.Positions == nil {
		w.Positions = make(map[string]Position)
	}
	if w.Meta.Coins == nil {
		w.Meta.Coins = make(map[string]*CoinMeta)
	}
}
