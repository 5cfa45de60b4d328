package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 4.0, SMA(prices, 3))
	assert.Equal(t, 3.0, SMA(prices, 5))
	// Short series averages what is there.
	assert.Equal(t, 3.0, SMA(prices, 10))
	assert.Equal(t, 0.0, SMA(nil, 3))
}

func TestMomentum(t *testing.T) {
	// short SMA 115, long SMA 107.5.
	prices := []float64{100, 100, 110, 120}
	assert.InDelta(t, (115.0-107.5)/107.5, Momentum(prices, 2, 4), 1e-12)
	assert.Equal(t, 0.0, Momentum([]float64{0, 0}, 1, 2))
}

func TestReturns(t *testing.T) {
	assert.Nil(t, Returns([]float64{100}))

	got := Returns([]float64{100, 110, 99})
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, -0.1, got[1], 1e-12)

	// A zero price cannot produce a return.
	assert.Len(t, Returns([]float64{100, 0, 50}), 1)
}

func TestSharpe(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe([]float64{0.01}, 365))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01, 0.01}, 365), "zero variance scores zero")
	assert.Greater(t, Sharpe([]float64{0.01, 0.02, 0.01, 0.03}, 365), 0.0)
	assert.Less(t, Sharpe([]float64{-0.01, -0.02, -0.01, -0.03}, 365), 0.0)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0.1, 0.1}))
	// Up 10% then down 50%: trough is half the peak.
	assert.InDelta(t, -0.5, MaxDrawdown([]float64{0.1, -0.5}), 1e-12)
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.0, Volatility([]float64{5}))
	assert.Equal(t, 0.0, Volatility([]float64{5, 5, 5}))
	assert.Greater(t, Volatility([]float64{1, 9}), 0.0)
}
