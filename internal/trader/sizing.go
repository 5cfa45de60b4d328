package trader

import "github.com/shopspring/decimal"

// priceTick is the limit price granularity accepted by the exchange.
var priceTick = decimal.RequireFromString("0.1")

// RoundSize snaps an order size down to a whole number of step units.
// Sizes are never rounded up: an order must not exceed the computed delta.
func RoundSize(size float64, step decimal.Decimal) float64 {
	if size <= 0 {
		return 0
	}
	if step.IsZero() || step.IsNegative() {
		step = decimal.RequireFromString("0.0001")
	}
	snapped := decimal.NewFromFloat(size).Div(step).Floor().Mul(step)
	f, _ := snapped.Float64()
	return f
}

// RoundPrice snaps a limit price down to the exchange tick.
func RoundPrice(price float64) float64 {
	if price <= 0 {
		return 0
	}
	snapped := decimal.NewFromFloat(price).Div(priceTick).Floor().Mul(priceTick)
	f, _ := snapped.Float64()
	return f
}

// LimitPrice derives the aggressive limit for an IOC order from the mid:
// buys pay up by the slippage fraction, sells give it up, and the result
// lands on the price tick. Negative slippage is treated as zero.
func LimitPrice(mid float64, slippage decimal.Decimal, isBuy bool) float64 {
	if mid <= 0 {
		return 0
	}
	slip, _ := slippage.Float64()
	if slip < 0 {
		slip = 0
	}
	var raw float64
	if isBuy {
		raw = mid * (1 + slip)
	} else {
		factor := 1 - slip
		if factor < 0 {
			factor = 0
		}
		raw = mid * factor
	}
	return RoundPrice(raw)
}

// TargetSize converts the notional cap into a signed coin size at the
// given mid price.
func TargetSize(maxNotional decimal.Decimal, mid float64, isLong bool) float64 {
	if mid <= 0 {
		return 0
	}
	notional, _ := maxNotional.Float64()
	size := notional / mid
	if !isLong {
		size = -size
	}
	return size
}
