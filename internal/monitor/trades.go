package monitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
	"github.com/web3guy0/hypertrack/internal/metrics"
)

// TradeFeed turns raw fill pushes into one Telegram alert per trade. Fills
// executed before the feed started are ignored, and a bounded set of recent
// trade keys drops duplicate deliveries from reconnect replays.
type TradeFeed struct {
	notifier Notifier
	since    time.Time
	limit    int

	mu    sync.Mutex
	keys  map[tradeKey]struct{}
	order []tradeKey
}

// tradeKey identifies one fill across redeliveries.
type tradeKey struct {
	hash  string
	size  string
	price string
}

// NewTradeFeed creates a trade feed reporting fills executed after since.
// limit bounds the dedup set; values below 1 are raised to 1.
func NewTradeFeed(notifier Notifier, since time.Time, limit int) *TradeFeed {
	if limit < 1 {
		limit = 1
	}
	return &TradeFeed{
		notifier: notifier,
		since:    since,
		limit:    limit,
		keys:     make(map[tradeKey]struct{}),
	}
}

// HandleFills reports every new fill in the batch.
func (f *TradeFeed) HandleFills(address string, fills []hyperliquid.Fill) {
	for _, fill := range fills {
		f.handleFill(address, fill)
	}
}

func (f *TradeFeed) handleFill(address string, fill hyperliquid.Fill) {
	executed := time.UnixMilli(fill.Time)
	if executed.Before(f.since) {
		log.Debug().Str("coin", fill.Coin).Time("executed", executed).
			Msg("Ignoring historical fill")
		return
	}

	key := tradeKey{hash: fill.Hash, size: fill.Sz, price: fill.Px}
	if !f.remember(key) {
		log.Debug().Str("coin", fill.Coin).Str("hash", fill.Hash).
			Msg("Skipping duplicate fill")
		return
	}

	metrics.EventsEmitted.WithLabelValues("trade").Inc()
	if f.notifier.Send(formatTrade(address, fill)) {
		log.Info().Str("coin", fill.Coin).Str("address", address).
			Str("hash", fill.Hash).Msg("Sent trade notification")
	} else {
		log.Warn().Str("coin", fill.Coin).Str("address", address).
			Str("hash", fill.Hash).Msg("Failed to send trade notification")
	}
}

// remember records the key, evicting the oldest entry once the set is full.
// Returns false when the key was already present.
func (f *TradeFeed) remember(key tradeKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, seen := f.keys[key]; seen {
		return false
	}
	if len(f.order) >= f.limit {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.keys, oldest)
	}
	f.order = append(f.order, key)
	f.keys[key] = struct{}{}
	return true
}

// reportedSide flips the fill side for display: the wallet's buys read as
// SELL and its sells as BUY.
func reportedSide(side string) string {
	switch side {
	case "B":
		return "SELL"
	case "A":
		return "BUY"
	}
	return side
}

// formatTrade renders a per-fill alert.
func formatTrade(address string, fill hyperliquid.Fill) string {
	direction := fill.Dir
	if direction == "" {
		direction = "N/A"
	}
	return strings.Join([]string{
		"🔔 <b>New trade detected</b>",
		"",
		walletHeader(address),
		"",
		fmt.Sprintf("<b>Coin:</b> %s", fill.Coin),
		fmt.Sprintf("<b>Side:</b> %s", reportedSide(fill.Side)),
		fmt.Sprintf("<b>Size:</b> %s", fill.Sz),
		fmt.Sprintf("<b>Price:</b> %s", fill.Px),
		fmt.Sprintf("<b>Type:</b> %s", direction),
		fmt.Sprintf("<b>Tx Hash:</b> <code>%s</code>", fill.TxHash()),
		fmt.Sprintf("<b>Time:</b> %s", formatTimestamp(fill.Time)),
	}, "\n")
}

// SnapshotMessage renders the current book of one wallet without touching
// stored state. The trade feed sends this once per wallet on startup.
func SnapshotMessage(address string, state *hyperliquid.UserState, mids map[string]float64) string {
	positions := make(map[string]Position)
	for _, raw := range state.Positions() {
		pos := PositionFromRaw(raw)
		if pos.AbsSize() <= SizeEpsilon {
			continue
		}
		positions[pos.Coin] = pos
	}

	balance := state.AccountValue()
	if len(positions) == 0 {
		return formatEmptyWallet(address, balance)
	}
	return formatWalletSnapshot(address, positions, mids, balance)
}
