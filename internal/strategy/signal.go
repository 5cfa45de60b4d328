package strategy

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/indicators"
)

// Signal is the desired directional exposure for one coin.
type Signal string

const (
	Long  Signal = "long"
	Short Signal = "short"
	Flat  Signal = "flat"
)

// Params are the moving-average crossover thresholds. Momentum is the
// relative spread between the short and long SMA of closing prices.
type Params struct {
	ShortWindow    int
	LongWindow     int
	LongThreshold  float64
	ShortThreshold float64
	NeutralBand    float64
}

// Engine turns close-price history into signals with hysteresis: momentum
// inside the dead zone between the neutral band and the entry thresholds
// carries the previous signal forward instead of flipping, so a value
// hovering near a threshold cannot whipsaw the position.
type Engine struct {
	params Params

	mu   sync.Mutex
	last map[string]Signal
}

func NewEngine(params Params) *Engine {
	return &Engine{
		params: params,
		last:   make(map[string]Signal),
	}
}

// Evaluate computes the signal for one coin from its close series.
// Fewer closes than the long window yields Flat without touching the
// remembered signal.
func (e *Engine) Evaluate(coin string, closes []float64) Signal {
	p := e.params
	if len(closes) < p.LongWindow {
		log.Debug().Str("coin", coin).Int("need", p.LongWindow).Int("have", len(closes)).
			Msg("Not enough data for MA calculation")
		return Flat
	}

	momentum := indicators.Momentum(closes, p.ShortWindow, p.LongWindow)
	log.Info().Str("coin", coin).
		Float64("short_ma", indicators.SMA(closes, p.ShortWindow)).
		Float64("long_ma", indicators.SMA(closes, p.LongWindow)).
		Float64("momentum", momentum).
		Msg("Momentum computed")

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.last[coin]
	if !ok {
		prev = Flat
	}

	var signal Signal
	switch {
	case abs(momentum) <= p.NeutralBand:
		signal = Flat
	case momentum >= p.LongThreshold:
		signal = Long
	case momentum <= -p.ShortThreshold:
		signal = Short
	default:
		signal = prev
	}

	e.last[coin] = signal
	return signal
}

// Last returns the remembered signal for a coin, Flat when unseen.
func (e *Engine) Last(coin string) Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.last[coin]; ok {
		return s
	}
	return Flat
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
