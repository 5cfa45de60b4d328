package indicators

import "math"

// SMA calculates Simple Moving Average over the trailing period
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return average(prices)
	}
	return average(prices[len(prices)-period:])
}

// Momentum is the relative spread between the short and long moving
// averages: (shortMA - longMA) / longMA. Zero when the long MA is zero.
func Momentum(prices []float64, shortPeriod, longPeriod int) float64 {
	longMA := SMA(prices, longPeriod)
	if longMA == 0 {
		return 0
	}
	shortMA := SMA(prices, shortPeriod)
	return (shortMA - longMA) / longMA
}

// Returns converts a price series into simple period returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, prices[i]/prices[i-1]-1)
	}
	return out
}

// Sharpe computes the annualized Sharpe ratio of a return series given
// how many periods fit in a year. Zero-variance series score 0.
func Sharpe(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	return average(returns) / std * math.Sqrt(periodsPerYear)
}

// MaxDrawdown returns the largest peak-to-trough loss of the equity curve
// implied by a return series, as a negative fraction.
func MaxDrawdown(returns []float64) float64 {
	equity := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// Volatility calculates price volatility (standard deviation)
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	return stddev(prices)
}

func average(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64) float64 {
	avg := average(data)
	sumSquares := 0.0
	for _, v := range data {
		sumSquares += (v - avg) * (v - avg)
	}
	return math.Sqrt(sumSquares / float64(len(data)))
}
