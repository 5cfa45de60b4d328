package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot, loaded once at startup and
// passed by reference into the monitor and trader. No package-level mutable
// state.
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Wallets to monitor
	WalletAddresses []string

	// Mode
	DryRun bool
	Debug  bool

	// Hyperliquid API
	HyperliquidAPIURL string
	HyperliquidWSURL  string

	// Trading account
	PrivateKey     string
	AccountAddress string
	VaultAddress   string

	// State store
	RedisURL  string
	RedisKey  string
	StatePath string

	// Monitor timing
	FullScanInterval time.Duration
	MessageDelay     time.Duration
	DebounceDelay    time.Duration

	// Trade stream
	RecentTradesLimit int

	// Strategy
	Coins          []string
	CandleInterval string
	Lookback       int
	ShortWindow    int
	LongWindow     int
	LongThreshold  float64
	ShortThreshold float64
	NeutralBand    float64

	// Order sizing
	MaxPositionUSD   decimal.Decimal
	Leverage         int
	MinTradeSize     decimal.Decimal
	Slippage         decimal.Decimal
	PollInterval     time.Duration
	SleepBetween     time.Duration
	Iterations       int
	AnalyticsEnabled bool
	AnalyticsWindow  int

	// Metrics
	MetricsAddr string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		WalletAddresses: parseWalletAddresses(os.Getenv("WALLET_ADDRESSES")),

		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		HyperliquidAPIURL: getEnv("HYPERLIQUID_API_URL", "https://api.hyperliquid.xyz"),
		HyperliquidWSURL:  getEnv("HYPERLIQUID_WS_URL", "wss://api.hyperliquid.xyz/ws"),

		PrivateKey:     os.Getenv("HYPERLIQUID_PRIVATE_KEY"),
		AccountAddress: os.Getenv("HYPERLIQUID_ACCOUNT_ADDRESS"),
		VaultAddress:   os.Getenv("HYPERLIQUID_VAULT_ADDRESS"),

		RedisURL:  getEnv("STATE_REDIS_URL", os.Getenv("REDIS_URL")),
		RedisKey:  getEnv("STATE_REDIS_KEY", "hyperliquid:position_state"),
		StatePath: getEnv("STATE_PATH", "data/position_state.db"),

		FullScanInterval: getEnvDuration("FULL_SCAN_INTERVAL", 4*time.Hour),
		MessageDelay:     getEnvDuration("MESSAGE_DELAY", 750*time.Millisecond),
		DebounceDelay:    getEnvDuration("DEBOUNCE_DELAY", time.Second),

		RecentTradesLimit: getEnvInt("RECENT_TRADES_LIMIT", 1000),

		Coins:          parseCoinList(getEnv("TRADING_COINS", "BTC")),
		CandleInterval: getEnv("CANDLE_INTERVAL", "1h"),
		Lookback:       getEnvInt("LOOKBACK", 240),
		ShortWindow:    getEnvInt("SHORT_WINDOW", 24),
		LongWindow:     getEnvInt("LONG_WINDOW", 96),
		LongThreshold:  getEnvFloat("LONG_THRESHOLD", 0.002),
		ShortThreshold: getEnvFloat("SHORT_THRESHOLD", 0.002),
		NeutralBand:    getEnvFloat("NEUTRAL_BAND", 0.0005),

		MaxPositionUSD:   getEnvDecimal("MAX_POSITION_USD", decimal.NewFromInt(100)),
		Leverage:         getEnvInt("LEVERAGE", 2),
		MinTradeSize:     getEnvDecimal("MIN_TRADE_SIZE", decimal.NewFromFloat(0.0005)),
		Slippage:         getEnvDecimal("SLIPPAGE", decimal.NewFromFloat(0.01)),
		PollInterval:     getEnvDuration("POLL_INTERVAL", 5*time.Minute),
		SleepBetween:     getEnvDuration("SLEEP_BETWEEN", time.Second),
		Iterations:       getEnvInt("ITERATIONS", 0),
		AnalyticsEnabled: getEnvBool("ANALYTICS", false),
		AnalyticsWindow:  getEnvInt("ANALYTICS_WINDOW", 120),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.LongWindow <= cfg.ShortWindow {
		return nil, fmt.Errorf("LONG_WINDOW (%d) must be greater than SHORT_WINDOW (%d)", cfg.LongWindow, cfg.ShortWindow)
	}
	if cfg.Lookback < cfg.LongWindow+10 {
		cfg.Lookback = cfg.LongWindow + 10
	}
	if cfg.RecentTradesLimit < 1 {
		cfg.RecentTradesLimit = 1
	}

	return cfg, nil
}

// ValidateMonitor checks the fields the position monitor needs to start.
func (c *Config) ValidateMonitor() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if len(c.WalletAddresses) == 0 {
		return fmt.Errorf("WALLET_ADDRESSES is required")
	}
	return nil
}

// ValidateTrader checks the fields the live trading loop needs to start.
func (c *Config) ValidateTrader() error {
	if !c.DryRun && c.PrivateKey == "" {
		return fmt.Errorf("HYPERLIQUID_PRIVATE_KEY is required for live trading")
	}
	if len(c.Coins) == 0 {
		return fmt.Errorf("TRADING_COINS is required")
	}
	if c.LongThreshold <= 0 || c.ShortThreshold <= 0 {
		return fmt.Errorf("thresholds must be positive")
	}
	return nil
}

// parseWalletAddresses accepts a comma separated list, optionally wrapped in
// brackets and quotes ("[0xabc, 0xdef]"), keeps only valid hex addresses,
// normalises them to checksum form and drops duplicates.
func parseWalletAddresses(raw string) []string {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	if raw == "" {
		return nil
	}

	seen := make(map[string]bool)
	var addresses []string
	for _, part := range strings.Split(raw, ",") {
		addr := strings.Trim(strings.TrimSpace(part), `"'`)
		if addr == "" {
			continue
		}
		if !common.IsHexAddress(addr) {
			continue
		}
		normalized := common.HexToAddress(addr).Hex()
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		addresses = append(addresses, normalized)
	}
	return addresses
}

func parseCoinList(raw string) []string {
	var coins []string
	for _, part := range strings.Split(raw, ",") {
		coin := strings.ToUpper(strings.TrimSpace(part))
		if coin != "" {
			coins = append(coins, coin)
		}
	}
	return coins
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
