package trader

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

func TestRoundSizeFloorsToStep(t *testing.T) {
	step := decimal.RequireFromString("0.0005")

	assert.InDelta(t, 0.0025, RoundSize(0.0027, step), 1e-12)
	assert.InDelta(t, 0.0025, RoundSize(0.0025, step), 1e-12)
	assert.InDelta(t, 0, RoundSize(0.0004, step), 1e-12)
	assert.Equal(t, 0.0, RoundSize(0, step))
	assert.Equal(t, 0.0, RoundSize(-1, step))
}

func TestRoundSizeZeroStepFallsBack(t *testing.T) {
	assert.InDelta(t, 0.1234, RoundSize(0.12345, decimal.Zero), 1e-12)
}

func TestRoundPriceFloorsToTick(t *testing.T) {
	assert.InDelta(t, 65432.1, RoundPrice(65432.19), 1e-9)
	assert.InDelta(t, 65432.1, RoundPrice(65432.1), 1e-9)
	assert.Equal(t, 0.0, RoundPrice(0))
	assert.Equal(t, 0.0, RoundPrice(-5))
}

func TestLimitPrice(t *testing.T) {
	slip := decimal.RequireFromString("0.01")

	// Buys pay up, sells give up, both floored to the tick.
	assert.InDelta(t, 101.0, LimitPrice(100, slip, true), 1e-9)
	assert.InDelta(t, 99.0, LimitPrice(100, slip, false), 1e-9)
	assert.Equal(t, 0.0, LimitPrice(0, slip, true))
}

func TestLimitPriceNegativeSlippageIgnored(t *testing.T) {
	slip := decimal.RequireFromString("-0.5")
	assert.InDelta(t, 100.0, LimitPrice(100, slip, true), 1e-9)
	assert.InDelta(t, 100.0, LimitPrice(100, slip, false), 1e-9)
}

func TestTargetSize(t *testing.T) {
	notional := decimal.RequireFromString("100")

	assert.InDelta(t, 0.002, TargetSize(notional, 50000, true), 1e-12)
	assert.InDelta(t, -0.002, TargetSize(notional, 50000, false), 1e-12)
	assert.Equal(t, 0.0, TargetSize(notional, 0, true))
}

func TestClosesFromCandlesSortsByCloseTime(t *testing.T) {
	candles := []hyperliquid.Candle{
		{CloseTime: 3000, Close: "103"},
		{CloseTime: 1000, Close: "101"},
		{CloseTime: 2000, Close: "102"},
	}
	assert.Equal(t, []float64{101, 102, 103}, closesFromCandles(candles))
	assert.Empty(t, closesFromCandles(nil))
}

func TestIntervalMillis(t *testing.T) {
	assert.Equal(t, int64(60_000), intervalMillis("1m"))
	assert.Equal(t, int64(900_000), intervalMillis("15m"))
	assert.Equal(t, int64(3_600_000), intervalMillis("1h"))
	assert.Equal(t, int64(86_400_000), intervalMillis("1d"))
	assert.Equal(t, int64(60_000), intervalMillis(""))
}
