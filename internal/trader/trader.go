package trader

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/config"
	"github.com/web3guy0/hypertrack/internal/hyperliquid"
	"github.com/web3guy0/hypertrack/internal/indicators"
	"github.com/web3guy0/hypertrack/internal/metrics"
	"github.com/web3guy0/hypertrack/internal/monitor"
	"github.com/web3guy0/hypertrack/internal/strategy"
)

// Trader drives the exchange from moving-average momentum signals. One
// iteration evaluates every configured coin, adjusts exposure toward the
// target notional and sleeps until the next poll.
type Trader struct {
	cfg      *config.Config
	client   *hyperliquid.Client
	exchange *hyperliquid.Exchange
	engine   *strategy.Engine
	notifier monitor.Notifier
}

// New wires a trading loop. The exchange may be nil in dry-run mode;
// orders are then logged instead of submitted.
func New(cfg *config.Config, client *hyperliquid.Client, exchange *hyperliquid.Exchange, notifier monitor.Notifier) *Trader {
	return &Trader{
		cfg:      cfg,
		client:   client,
		exchange: exchange,
		engine: strategy.NewEngine(strategy.Params{
			ShortWindow:    cfg.ShortWindow,
			LongWindow:     cfg.LongWindow,
			LongThreshold:  cfg.LongThreshold,
			ShortThreshold: cfg.ShortThreshold,
			NeutralBand:    cfg.NeutralBand,
		}),
		notifier: notifier,
	}
}

// Run executes trading iterations until the context is cancelled or the
// configured iteration cap is reached. Zero iterations means run forever.
func (t *Trader) Run(ctx context.Context) error {
	log.Info().Bool("dry_run", t.cfg.DryRun).Msg("Starting trading loop")

	iteration := 0
	for t.cfg.Iterations == 0 || iteration < t.cfg.Iterations {
		iteration++
		log.Info().Int("iteration", iteration).Msg("Trading iteration")

		for _, coin := range t.cfg.Coins {
			if err := t.processCoin(ctx, coin); err != nil {
				log.Error().Err(err).Str("coin", coin).Msg("Error processing coin")
			}
			if err := sleep(ctx, t.cfg.SleepBetween); err != nil {
				return err
			}
		}

		log.Info().Dur("sleep", t.cfg.PollInterval).Msg("Iteration complete")
		if err := sleep(ctx, t.cfg.PollInterval); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trader) processCoin(ctx context.Context, coin string) error {
	log.Info().Str("coin", coin).Msg("Evaluating coin")

	closes, err := t.fetchCloses(ctx, coin)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(closes) == 0 {
		log.Warn().Str("coin", coin).Msg("No candle data returned")
		return nil
	}

	signal := t.engine.Evaluate(coin, closes)
	t.logAnalytics(coin, closes)

	state, err := t.client.UserState(ctx, t.effectiveAddress())
	if err != nil {
		return fmt.Errorf("fetch user state: %w", err)
	}
	current := extractPosition(coin, state)

	log.Info().Str("coin", coin).Str("signal", string(signal)).
		Float64("position", current).Msg("Signal computed")

	if t.cfg.DryRun {
		t.notify(fmt.Sprintf("[DRY RUN] Signal for %s: %s", coin, signal))
		return nil
	}

	if err := t.exchange.UpdateLeverage(ctx, coin, t.cfg.Leverage); err != nil {
		log.Debug().Err(err).Str("coin", coin).Msg("Failed to update leverage")
	}

	switch signal {
	case strategy.Long:
		return t.targetPosition(ctx, coin, true, current)
	case strategy.Short:
		return t.targetPosition(ctx, coin, false, current)
	default:
		return t.flattenPosition(ctx, coin, current)
	}
}

// fetchCloses pulls the lookback window of candles and returns closing
// prices in chronological order.
func (t *Trader) fetchCloses(ctx context.Context, coin string) ([]float64, error) {
	end := time.Now().UnixMilli()
	start := end - int64(t.cfg.Lookback)*intervalMillis(t.cfg.CandleInterval)

	candles, err := t.client.CandlesSnapshot(ctx, coin, t.cfg.CandleInterval, start, end)
	if err != nil {
		return nil, err
	}
	return closesFromCandles(candles), nil
}

// closesFromCandles extracts closing prices sorted by candle close time.
// The snapshot endpoint does not guarantee chronological order.
func closesFromCandles(candles []hyperliquid.Candle) []float64 {
	sorted := append([]hyperliquid.Candle(nil), candles...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CloseTime < sorted[j].CloseTime
	})

	closes := make([]float64, 0, len(sorted))
	for _, candle := range sorted {
		closes = append(closes, hyperliquid.Float(candle.Close))
	}
	return closes
}

func (t *Trader) targetPosition(ctx context.Context, coin string, isLong bool, current float64) error {
	mid, err := t.midPrice(ctx, coin)
	if err != nil {
		return err
	}
	if mid <= 0 {
		log.Warn().Str("coin", coin).Msg("No mid price")
		return nil
	}

	minSize, _ := t.cfg.MinTradeSize.Float64()
	delta := TargetSize(t.cfg.MaxPositionUSD, mid, isLong) - current
	if math.Abs(delta) < minSize {
		log.Info().Str("coin", coin).Float64("delta", delta).
			Msg("Delta below min trade size")
		return nil
	}

	isBuy := delta > 0
	size := RoundSize(math.Abs(delta), t.cfg.MinTradeSize)
	if size < minSize {
		log.Info().Str("coin", coin).Float64("size", size).
			Msg("Rounded order size below min trade size")
		return nil
	}

	if err := t.submitOrder(ctx, coin, isBuy, size, mid, false); err != nil {
		return err
	}
	side := "SELL"
	if isBuy {
		side = "BUY"
	}
	t.notify(fmt.Sprintf("Placed order on %s: %s %.4f", coin, side, size))
	return nil
}

func (t *Trader) flattenPosition(ctx context.Context, coin string, current float64) error {
	minSize, _ := t.cfg.MinTradeSize.Float64()
	if math.Abs(current) < minSize {
		log.Info().Str("coin", coin).Float64("position", current).Msg("Position already flat")
		return nil
	}

	size := RoundSize(math.Abs(current), t.cfg.MinTradeSize)
	if size < minSize {
		log.Info().Str("coin", coin).Float64("size", size).
			Msg("Rounded flat size below min trade size")
		return nil
	}

	mid, err := t.midPrice(ctx, coin)
	if err != nil {
		return err
	}
	if mid <= 0 {
		log.Warn().Str("coin", coin).Msg("No mid price")
		return nil
	}

	log.Info().Str("coin", coin).Float64("position", current).Msg("Flattening position")
	if err := t.submitOrder(ctx, coin, current < 0, size, mid, true); err != nil {
		return err
	}
	t.notify(fmt.Sprintf("Flattened %s position of %.4f", coin, current))
	return nil
}

func (t *Trader) submitOrder(ctx context.Context, coin string, isBuy bool, size, mid float64, reduceOnly bool) error {
	limitPx := LimitPrice(mid, t.cfg.Slippage, isBuy)
	if limitPx <= 0 {
		log.Warn().Str("coin", coin).Msg("Cannot determine limit price, skipping order")
		return nil
	}

	log.Info().Str("coin", coin).Bool("is_buy", isBuy).
		Float64("size", size).Float64("limit_px", limitPx).Msg("Placing order")

	ack, err := t.exchange.SubmitOrder(ctx, hyperliquid.OrderRequest{
		Coin:       coin,
		IsBuy:      isBuy,
		Size:       size,
		LimitPx:    limitPx,
		ReduceOnly: reduceOnly,
		ClientID:   uuid.NewString(),
	})
	if err != nil {
		metrics.Orders.WithLabelValues("error").Inc()
		return fmt.Errorf("submit order: %w", err)
	}
	metrics.Orders.WithLabelValues("ok").Inc()
	log.Info().Interface("response", ack).Msg("Exchange response")
	return nil
}

func (t *Trader) midPrice(ctx context.Context, coin string) (float64, error) {
	mids, err := t.client.AllMids(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch mids: %w", err)
	}
	return mids[coin], nil
}

func (t *Trader) effectiveAddress() string {
	if t.cfg.AccountAddress != "" {
		return t.cfg.AccountAddress
	}
	if t.cfg.VaultAddress != "" {
		return t.cfg.VaultAddress
	}
	if t.exchange != nil {
		return t.exchange.WalletAddress()
	}
	return ""
}

func (t *Trader) logAnalytics(coin string, closes []float64) {
	if !t.cfg.AnalyticsEnabled {
		return
	}
	returns := indicators.Returns(closes)
	if len(returns) == 0 {
		return
	}
	window := t.cfg.AnalyticsWindow
	if window > len(returns) {
		window = len(returns)
	}
	windowed := returns[len(returns)-window:]

	periodsPerYear := float64(365*24*3600) / (float64(intervalMillis(t.cfg.CandleInterval)) / 1000)
	log.Info().Str("coin", coin).Int("window", window).
		Float64("sharpe", indicators.Sharpe(windowed, periodsPerYear)).
		Float64("max_drawdown_pct", indicators.MaxDrawdown(windowed)*100).
		Msg("Analytics")
}

func (t *Trader) notify(message string) {
	if t.notifier == nil {
		return
	}
	t.notifier.Send(message)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// extractPosition returns the signed size held in coin, zero when absent.
func extractPosition(coin string, state *hyperliquid.UserState) float64 {
	if state == nil {
		return 0
	}
	for _, raw := range state.Positions() {
		if raw.Coin == coin {
			return hyperliquid.Float(raw.Szi)
		}
	}
	return 0
}

// intervalMillis parses a candle interval like "15m", "1h" or "1d".
// Unknown units fall back to minutes.
func intervalMillis(interval string) int64 {
	if interval == "" {
		return 60_000
	}
	unit := interval[len(interval)-1]
	value, err := strconv.ParseInt(interval[:len(interval)-1], 10, 64)
	if err != nil || value <= 0 {
		value = 1
	}
	seconds := int64(60)
	switch unit {
	case 'm':
		seconds = 60
	case 'h':
		seconds = 3600
	case 'd':
		seconds = 86400
	}
	return value * seconds * 1000
}
