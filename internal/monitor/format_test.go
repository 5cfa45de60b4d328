package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0, 2))
	assert.Equal(t, "1,234,567.89", formatNumber(1234567.89, 2))
	assert.Equal(t, "1,000", formatNumber(1000, 2))
	assert.Equal(t, "0.005", formatNumber(0.005, 8))
	assert.Equal(t, "-12,345.6", formatNumber(-12345.6, 4))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "N/A", formatPrice(0))
	assert.Equal(t, "N/A", formatPrice(-1))
	assert.Equal(t, "50,000", formatPrice(50000))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "N/A", formatTimestamp(0))
	// 2024-01-01 00:00:00 UTC is 08:00 in the display zone.
	assert.Equal(t, "2024-01-01 08:00:00 UTC+8", formatTimestamp(1704067200000))
}

func TestFormatLeverage(t *testing.T) {
	assert.Equal(t, "N/A", formatLeverage(0))
	assert.Equal(t, "2.50x", formatLeverage(2.5))
}

func TestFormatClosedRealizedPnl(t *testing.T) {
	previous := Position{Coin: "BTC", Size: 0.01, EntryPrice: 50000, Value: 500}
	td := tradeDetails{Price: 51000, TxHash: "0xabc", Time: 1704067200000}

	message := formatClosed(testAddr, previous, td, 1000, 51000)
	assert.Contains(t, message, "Position Closed")
	assert.Contains(t, message, "LONG")
	// (51000 - 50000) * 0.01 = 10, 2% on entry notional.
	assert.Contains(t, message, "<code>10</code> (2%)")
}

func TestFormatWalletSnapshotStableOrder(t *testing.T) {
	positions := map[string]Position{
		"ETH": {Coin: "ETH", Size: 1, EntryPrice: 3000, Value: 3000},
		"BTC": {Coin: "BTC", Size: 0.01, EntryPrice: 50000, Value: 500},
		"SOL": {Coin: "SOL", Size: -10, EntryPrice: 150, Value: 1500},
	}
	mids := map[string]float64{"BTC": 50100, "ETH": 3100, "SOL": 140}

	first := formatWalletSnapshot(testAddr, positions, mids, 1000)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, formatWalletSnapshot(testAddr, positions, mids, 1000),
			"map iteration order must not leak into the summary")
	}

	btcAt := strings.Index(first, "BTC/USDC")
	ethAt := strings.Index(first, "ETH/USDC")
	solAt := strings.Index(first, "SOL/USDC")
	assert.True(t, btcAt >= 0 && btcAt < ethAt && ethAt < solAt, "coins render sorted")
	assert.Contains(t, first, "cross-SHORT")
}

func TestFormatWalletSnapshotEmpty(t *testing.T) {
	assert.Equal(t, "", formatWalletSnapshot(testAddr, nil, nil, 0))
}

func TestFormatEmptyWallet(t *testing.T) {
	message := formatEmptyWallet(testAddr, 250.5)
	assert.Contains(t, message, "No open positions")
	assert.Contains(t, message, "$250.5")
	assert.Contains(t, message, testAddr)
}
