package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

func TestFindRelevantFillMatchesTransition(t *testing.T) {
	fills := []hyperliquid.Fill{
		fill("BTC", 50000, 0.01, "B", 100, "0xopen", 0),       // flat -> open
		fill("BTC", 51000, 0.005, "A", 200, "0xreduce", 0.01), // open -> smaller
		fill("BTC", 52000, 0.005, "A", 300, "0xclose", 0.005), // open -> flat
	}

	open := findRelevantFill("BTC", fills, EventOpened)
	require.NotNil(t, open)
	assert.Equal(t, "0xopen", open.Hash)

	reduce := findRelevantFill("BTC", fills, EventReduced)
	require.NotNil(t, reduce)
	assert.Equal(t, "0xreduce", reduce.Hash)

	closed := findRelevantFill("BTC", fills, EventClosed)
	require.NotNil(t, closed)
	assert.Equal(t, "0xclose", closed.Hash)
}

func TestFindRelevantFillFallsBackToLatest(t *testing.T) {
	fills := []hyperliquid.Fill{
		fill("BTC", 50000, 0.01, "B", 100, "0xold", 0.5),
		fill("BTC", 51000, 0.01, "B", 200, "0xnew", 0.51),
	}

	// Neither fill crosses flat, so a close lookup falls back to the
	// most recent fill for the coin.
	got := findRelevantFill("BTC", fills, EventClosed)
	require.NotNil(t, got)
	assert.Equal(t, "0xnew", got.Hash)

	assert.Nil(t, findRelevantFill("ETH", fills, EventClosed))
}

func TestOrderAveragePriceHashLinked(t *testing.T) {
	fills := []hyperliquid.Fill{
		fill("BTC", 100, 1, "B", 100, "0xsame", 0),
		fill("BTC", 200, 1, "B", 100, "0xsame", 1),
		fill("BTC", 300, 2, "B", 100, "0xsame", 2),
		fill("BTC", 999, 5, "B", 500, "0xother", 4),
	}
	reference := fills[0]

	// (100*1 + 200*1 + 300*2) / 4 = 225
	assert.InDelta(t, 225, OrderAveragePrice("BTC", &reference, fills), 1e-9)
}

func TestOrderAveragePriceTimestampLinked(t *testing.T) {
	fills := []hyperliquid.Fill{
		fill("BTC", 100, 1, "B", 700, "", 0),
		fill("BTC", 300, 1, "B", 700, "", 1),
		fill("BTC", 999, 1, "B", 800, "", 2),
	}
	reference := fills[0]

	assert.InDelta(t, 200, OrderAveragePrice("BTC", &reference, fills), 1e-9)
}

func TestOrderAveragePriceFallsBackToReference(t *testing.T) {
	reference := fill("BTC", 123, 1, "B", 700, "0xonly", 0)

	// No other fills share the hash: the reference alone sets the average.
	assert.InDelta(t, 123, OrderAveragePrice("BTC", &reference, nil), 1e-9)
	assert.Equal(t, 0.0, OrderAveragePrice("BTC", nil, nil))
}

func TestFullCloseAveragePriceGreedyAllocation(t *testing.T) {
	previous := Position{Coin: "BTC", Size: 2, EntryPrice: 100, Value: 200}
	fills := []hyperliquid.Fill{
		fill("BTC", 110, 1, "A", 300, "0xc1", 2), // newest reducing fill
		fill("BTC", 100, 1, "A", 200, "0xc2", 1),
		fill("BTC", 90, 1, "B", 100, "0xb1", 0), // a buy never reduces a long
	}

	// One unit at 110 and one at 100: average 105.
	assert.InDelta(t, 105, FullCloseAveragePrice("BTC", fills, previous), 1e-9)
}

func TestFullCloseAveragePriceCapsAtPositionSize(t *testing.T) {
	previous := Position{Coin: "BTC", Size: 1.5, EntryPrice: 100, Value: 150}
	fills := []hyperliquid.Fill{
		fill("BTC", 120, 3, "A", 300, "0xbig", 1.5),
	}

	// The 3-unit fill only contributes the 1.5 units actually held.
	assert.InDelta(t, 120, FullCloseAveragePrice("BTC", fills, previous), 1e-9)
}

func TestFullCloseAveragePriceShortDirection(t *testing.T) {
	previous := Position{Coin: "ETH", Size: -2, EntryPrice: 3000, Value: 6000}
	fills := []hyperliquid.Fill{
		fill("ETH", 2900, 2, "B", 300, "0xbb", -2), // buy moves a short toward zero
		fill("ETH", 3100, 2, "A", 200, "0xaa", 0),  // the opening sell must not count
	}

	assert.InDelta(t, 2900, FullCloseAveragePrice("ETH", fills, previous), 1e-9)
}

func TestFullCloseAveragePriceNoQualifyingFills(t *testing.T) {
	previous := Position{Coin: "BTC", Size: 1, EntryPrice: 100, Value: 100}
	fills := []hyperliquid.Fill{
		fill("BTC", 110, 1, "B", 300, "0xb", 1), // increases, never reduces
	}

	assert.Equal(t, 0.0, FullCloseAveragePrice("BTC", fills, previous))
	assert.Equal(t, 0.0, FullCloseAveragePrice("BTC", nil, Position{Coin: "BTC"}))
}
