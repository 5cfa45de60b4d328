// Hypertrack - Hyperliquid wallet monitor and momentum trader
//
// Three run modes share one binary:
//
//	positions  - watch a set of wallets and push position lifecycle
//	             alerts (opened / reduced / closed / snapshots) to Telegram
//	trades     - stream every fill of the watched wallets as an
//	             individual Telegram alert
//	live-trade - run the moving-average momentum loop against the
//	             exchange, or log intended orders in dry-run mode
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/config"
	"github.com/web3guy0/hypertrack/internal/hyperliquid"
	"github.com/web3guy0/hypertrack/internal/metrics"
	"github.com/web3guy0/hypertrack/internal/monitor"
	"github.com/web3guy0/hypertrack/internal/notify"
	"github.com/web3guy0/hypertrack/internal/state"
	"github.com/web3guy0/hypertrack/internal/trader"
)

const version = "1.2.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	mode := flag.String("mode", "positions", "run mode: positions, trades or live-trade")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("version", version).Str("mode", *mode).Msg("🚀 Hypertrack starting")

	if cfg.MetricsAddr != "" {
		go metrics.Serve(cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "positions":
		runMonitor(ctx, cfg)
	case "trades":
		runTrades(ctx, cfg)
	case "live-trade":
		runTrader(ctx, cfg)
	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}
}

func runMonitor(ctx context.Context, cfg *config.Config) {
	if err := cfg.ValidateMonitor(); err != nil {
		log.Fatal().Err(err).Msg("Invalid monitor configuration")
	}

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	local, err := state.NewLocal(cfg.StatePath, cfg.RedisKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local state store")
	}

	var remote *state.RedisStore
	if cfg.RedisURL != "" {
		remote, err = state.NewRedis(cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, starting on local state only")
			remote = nil
		}
	}

	store := state.NewStore(remote, local)
	store.OnDegraded = func(cause error) {
		notifier.Send(fmt.Sprintf(
			"⚠️ <b>State store degraded</b>\nRedis unavailable, using local copy.\n<code>%v</code>", cause))
	}

	client := hyperliquid.NewClient(cfg.HyperliquidAPIURL)
	mon := monitor.New(client, notifier, store, monitor.Options{
		Addresses:        cfg.WalletAddresses,
		MessageDelay:     cfg.MessageDelay,
		FullScanInterval: cfg.FullScanInterval,
		DebounceDelay:    cfg.DebounceDelay,
	})

	ws := hyperliquid.NewWSClient(cfg.HyperliquidWSURL)
	for _, address := range cfg.WalletAddresses {
		addr := address
		ws.Subscribe(addr, func() {
			mon.ScheduleCheck(ctx, addr)
		})
	}
	if err := ws.Start(); err != nil {
		log.Warn().Err(err).Msg("Websocket unavailable, relying on periodic scans")
	}

	log.Info().Int("wallets", len(cfg.WalletAddresses)).
		Dur("full_scan", cfg.FullScanInterval).Msg("✅ Position monitor online")

	// Startup snapshot so every wallet reports its current book once.
	go mon.ProcessAll(ctx, monitor.ReasonSnapshot)
	go mon.RunScheduler(ctx)

	<-ctx.Done()
	log.Info().Msg("🛑 Received shutdown signal")

	mon.Stop()
	ws.Stop()
	log.Info().Msg("👋 Goodbye!")
}

func runTrades(ctx context.Context, cfg *config.Config) {
	if err := cfg.ValidateMonitor(); err != nil {
		log.Fatal().Err(err).Msg("Invalid monitor configuration")
	}

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	client := hyperliquid.NewClient(cfg.HyperliquidAPIURL)
	feed := monitor.NewTradeFeed(notifier, time.Now(), cfg.RecentTradesLimit)

	// One snapshot per wallet before the stream starts, so the chat shows
	// the book the incoming trades act on.
	mids, err := client.AllMids(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch current prices for startup snapshot")
		mids = map[string]float64{}
	}
	for _, address := range cfg.WalletAddresses {
		state, err := client.UserState(ctx, address)
		if err != nil {
			log.Error().Err(err).Str("address", address).Msg("Error fetching wallet data")
			continue
		}
		notifier.Send(monitor.SnapshotMessage(address, state, mids))
	}

	ws := hyperliquid.NewWSClient(cfg.HyperliquidWSURL)
	for _, address := range cfg.WalletAddresses {
		addr := address
		ws.SubscribeFills(addr, func(fills []hyperliquid.Fill) {
			feed.HandleFills(addr, fills)
		})
	}
	if err := ws.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start websocket stream")
	}

	log.Info().Int("wallets", len(cfg.WalletAddresses)).
		Int("dedup_limit", cfg.RecentTradesLimit).Msg("✅ Trade monitor online")

	<-ctx.Done()
	log.Info().Msg("🛑 Received shutdown signal")

	ws.Stop()
	log.Info().Msg("👋 Goodbye!")
}

func runTrader(ctx context.Context, cfg *config.Config) {
	if err := cfg.ValidateTrader(); err != nil {
		log.Fatal().Err(err).Msg("Invalid trader configuration")
	}

	var notifier monitor.Notifier = notify.Logger{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		notifier = telegram
	}

	client := hyperliquid.NewClient(cfg.HyperliquidAPIURL)

	var exchange *hyperliquid.Exchange
	if !cfg.DryRun {
		var err error
		exchange, err = hyperliquid.NewExchange(client, cfg.PrivateKey, cfg.VaultAddress)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize exchange")
		}
	}

	t := trader.New(cfg, client, exchange, notifier)
	if err := t.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Trading loop failed")
	}
	log.Info().Msg("👋 Goodbye!")
}
