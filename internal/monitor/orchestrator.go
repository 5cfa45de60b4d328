package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
	"github.com/web3guy0/hypertrack/internal/metrics"
)

// RunReason selects how a monitoring cycle treats summaries: incremental
// reasons emit deltas only, snapshot reasons evaluate wallet summaries.
type RunReason string

const (
	ReasonWebsocket RunReason = "websocket event"
	ReasonPoll      RunReason = "order poll"
	ReasonFullScan  RunReason = "full position scan"
	ReasonSnapshot  RunReason = "snapshot"
)

func (r RunReason) includesSnapshot() bool {
	return r == ReasonFullScan || r == ReasonSnapshot
}

// Exchange is the read side of the exchange collaborator.
type Exchange interface {
	UserState(ctx context.Context, address string) (*hyperliquid.UserState, error)
	UserFills(ctx context.Context, address string) ([]hyperliquid.Fill, error)
	AllMids(ctx context.Context) (map[string]float64, error)
}

// Notifier delivers one formatted alert; failures are non-fatal.
type Notifier interface {
	Send(text string) bool
}

// Store persists the serialized wallet state blob.
type Store interface {
	Load() ([]byte, error)
	Save(blob []byte) error
}

// Monitor orchestrates position monitoring for a set of wallets. All
// load→diff→save sequences run under one lock, fully serializing concurrent
// triggers; network fetches happen before the lock, event delivery after.
type Monitor struct {
	addresses    []string
	exchange     Exchange
	notifier     Notifier
	store        Store
	messageDelay time.Duration
	scanInterval time.Duration
	debounce     time.Duration

	stateMu        sync.Mutex
	snapshotForced bool
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	stopCh  chan struct{}
	stopped sync.Once
}

// Options configures a Monitor.
type Options struct {
	Addresses        []string
	MessageDelay     time.Duration
	FullScanInterval time.Duration
	DebounceDelay    time.Duration
}

// New creates a monitor
func New(exchange Exchange, notifier Notifier, store Store, opts Options) *Monitor {
	return &Monitor{
		addresses:      opts.Addresses,
		exchange:       exchange,
		notifier:       notifier,
		store:          store,
		messageDelay:   opts.MessageDelay,
		scanInterval:   opts.FullScanInterval,
		debounce:       opts.DebounceDelay,
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}
}

// Stop cancels the scheduler and pending debounce timers. In-flight network
// calls are waited out, not interrupted.
func (m *Monitor) Stop() {
	m.stopped.Do(func() {
		close(m.stopCh)
		m.debounceMu.Lock()
		for _, timer := range m.debounceTimers {
			timer.Stop()
		}
		m.debounceMu.Unlock()
	})
}

// RunScheduler runs the periodic full scan until the context or Stop cancels
// it. The wait polls cancellation rather than sleeping the whole interval.
func (m *Monitor) RunScheduler(ctx context.Context) {
	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", m.scanInterval).Msg("Full scan scheduler active")
	for {
		select {
		case <-ticker.C:
			m.ProcessAll(ctx, ReasonFullScan)
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		}
	}
}

// ScheduleCheck coalesces a burst of push events for one wallet into a
// single incremental run after the debounce delay.
func (m *Monitor) ScheduleCheck(ctx context.Context, address string) {
	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()

	if timer, ok := m.debounceTimers[address]; ok {
		timer.Stop()
	}
	m.debounceTimers[address] = time.AfterFunc(m.debounce, func() {
		select {
		case <-m.stopCh:
			return
		default:
		}
		m.processAddresses(ctx, []string{address}, ReasonWebsocket)
	})
}

// ProcessAll runs one monitoring cycle over every configured wallet.
func (m *Monitor) ProcessAll(ctx context.Context, reason RunReason) {
	m.processAddresses(ctx, m.addresses, reason)
}

type walletFetch struct {
	state *hyperliquid.UserState
	fills []hyperliquid.Fill
	err   error
}

func (m *Monitor) processAddresses(ctx context.Context, addresses []string, reason RunReason) {
	if len(addresses) == 0 {
		return
	}

	includeSnapshot := reason.includesSnapshot()
	suppressEvents := reason.includesSnapshot()

	mids, err := m.exchange.AllMids(ctx)
	if err != nil {
		log.Error().Err(err).Str("reason", string(reason)).Msg("Failed to fetch current prices")
		return
	}

	// Fetch everything the diff needs before taking the state lock; a
	// failed wallet is skipped for this cycle without aborting the batch.
	fetched := make(map[string]walletFetch, len(addresses))
	for _, address := range addresses {
		var f walletFetch
		f.state, f.err = m.exchange.UserState(ctx, address)
		if f.err == nil {
			f.fills, f.err = m.exchange.UserFills(ctx, address)
		}
		if f.err != nil {
			log.Error().Err(f.err).Str("address", address).Str("reason", string(reason)).
				Msg("Error fetching wallet data")
		}
		fetched[address] = f
	}

	var pending []Event

	m.stateMu.Lock()
	forceSnapshot := reason == ReasonSnapshot || (reason == ReasonFullScan && !m.snapshotForced)
	if forceSnapshot {
		m.snapshotForced = true
	}

	state, err := m.loadState()
	if err != nil {
		log.Warn().Err(err).Msg("Error loading position state, starting fresh")
		state = make(map[string]*WalletEntry)
	}

	for _, address := range addresses {
		f := fetched[address]
		if f.err != nil {
			continue
		}

		entry := state[address]
		if entry == nil {
			entry = &WalletEntry{}
		}
		entry.normalize()

		positions, events := Diff(DiffInput{
			Address:         address,
			Previous:        entry.Positions,
			Snapshot:        f.state.Positions(),
			Fills:           f.fills,
			Mids:            mids,
			Balance:         f.state.AccountValue(),
			IncludeSnapshot: includeSnapshot,
			ForceSnapshot:   forceSnapshot || entry.Meta.LastSnapshotHash == "",
			SuppressEvents:  suppressEvents,
		}, &entry.Meta)

		entry.Positions = positions
		state[address] = entry
		pending = append(pending, events...)

		metrics.OpenPositions.WithLabelValues(address).Set(float64(len(positions)))
		metrics.AccountValue.WithLabelValues(address).Set(f.state.AccountValue())
	}

	if err := m.saveState(state); err != nil {
		log.Error().Err(err).Msg("Error saving position state")
	}
	m.stateMu.Unlock()

	m.drain(pending)
}

// drain delivers events outside the critical section with fixed pacing.
// Send failures are logged and never block the remaining queue.
func (m *Monitor) drain(events []Event) {
	for _, event := range events {
		metrics.EventsEmitted.WithLabelValues(string(event.Type)).Inc()
		if m.notifier.Send(event.Message) {
			log.Info().Str("type", string(event.Type)).Str("coin", event.Coin).
				Str("address", event.Address).Msg("Sent notification")
		} else {
			log.Warn().Str("type", string(event.Type)).Str("coin", event.Coin).
				Str("address", event.Address).Msg("Failed to send notification")
		}
		select {
		case <-time.After(m.messageDelay):
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) loadState() (map[string]*WalletEntry, error) {
	blob, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	state := make(map[string]*WalletEntry)
	if len(blob) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode position state: %w", err)
	}
	for _, entry := range state {
		if entry != nil {
			entry.normalize()
		}
	}
	return state, nil
}

func (m *Monitor) saveState(state map[string]*WalletEntry) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode position state: %w", err)
	}
	return m.store.Save(blob)
}
