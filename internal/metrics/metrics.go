// Package metrics exposes Prometheus metrics for the monitor and trader.
//
//   - hypertrack_events_total{type}        – lifecycle events emitted
//   - hypertrack_alerts_total{result}      – alert sends (ok|error|dry_run)
//   - hypertrack_api_retries_total{call}   – exchange API retry attempts
//   - hypertrack_orders_total{result}      – order submissions (ok|error)
//   - hypertrack_open_positions{address}   – open position count per wallet
//   - hypertrack_account_value_usd{address} – account value per wallet
//
// Registered in init() and served at /metrics when METRICS_ADDR is set.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypertrack_events_total",
			Help: "Lifecycle events emitted",
		},
		[]string{"type"},
	)

	AlertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypertrack_alerts_total",
			Help: "Telegram alert deliveries",
		},
		[]string{"result"}, // ok|error|dry_run
	)

	APIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypertrack_api_retries_total",
			Help: "Exchange API retry attempts",
		},
		[]string{"call"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hypertrack_orders_total",
			Help: "Order submissions by outcome",
		},
		[]string{"result"}, // ok|error
	)

	OpenPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hypertrack_open_positions",
			Help: "Open positions per monitored wallet",
		},
		[]string{"address"},
	)

	AccountValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hypertrack_account_value_usd",
			Help: "Account value per monitored wallet",
		},
		[]string{"address"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsEmitted,
		AlertsSent,
		APIRetries,
		Orders,
		OpenPositions,
		AccountValue,
	)
}

// Serve starts the /metrics endpoint. Blocking; run in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server stopped")
	}
}
