package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

type fakeExchange struct {
	mu     sync.Mutex
	states map[string]*hyperliquid.UserState
	fills  map[string][]hyperliquid.Fill
	mids   map[string]float64
	midErr error
}

func (f *fakeExchange) UserState(_ context.Context, address string) (*hyperliquid.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[address]
	if !ok {
		return nil, errors.New("unknown address")
	}
	return state, nil
}

func (f *fakeExchange) UserFills(_ context.Context, address string) ([]hyperliquid.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fills[address], nil
}

func (f *fakeExchange) AllMids(_ context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mids, f.midErr
}

func (f *fakeExchange) setPositions(address string, positions ...hyperliquid.RawPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := userStateWith(positions...)
	f.states[address] = state
}

func userStateWith(positions ...hyperliquid.RawPosition) *hyperliquid.UserState {
	blob := map[string]interface{}{
		"marginSummary": map[string]interface{}{"accountValue": "1000"},
	}
	assets := make([]map[string]interface{}, 0, len(positions))
	for _, p := range positions {
		assets = append(assets, map[string]interface{}{"position": p})
	}
	blob["assetPositions"] = assets

	raw, _ := json.Marshal(blob)
	var state hyperliquid.UserState
	_ = json.Unmarshal(raw, &state)
	return &state
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Send(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return true
}

func (f *fakeNotifier) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type memStore struct {
	mu   sync.Mutex
	blob []byte
}

func (s *memStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob, nil
}

func (s *memStore) Save(blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = append([]byte(nil), blob...)
	return nil
}

func newTestMonitor(addresses ...string) (*Monitor, *fakeExchange, *fakeNotifier, *memStore) {
	exchange := &fakeExchange{
		states: make(map[string]*hyperliquid.UserState),
		fills:  make(map[string][]hyperliquid.Fill),
		mids:   map[string]float64{"BTC": 50100, "ETH": 3100},
	}
	for _, address := range addresses {
		exchange.setPositions(address)
	}
	notifier := &fakeNotifier{}
	store := &memStore{}
	mon := New(exchange, notifier, store, Options{Addresses: addresses})
	return mon, exchange, notifier, store
}

func TestProcessAllDeliversLifecycle(t *testing.T) {
	addr := "0x2222222222222222222222222222222222222222"
	mon, exchange, notifier, store := newTestMonitor(addr)
	defer mon.Stop()
	ctx := context.Background()

	// Empty wallet first: one notification.
	mon.ProcessAll(ctx, ReasonWebsocket)
	require.Len(t, notifier.sent(), 1)
	assert.Contains(t, notifier.sent()[0], "No open positions")

	// A position appears.
	exchange.setPositions(addr, rawPosition("BTC", 0.01, 50000, 500))
	exchange.mu.Lock()
	exchange.fills[addr] = []hyperliquid.Fill{fill("BTC", 50000, 0.01, "B", 1000, "0xabc", 0)}
	exchange.mu.Unlock()

	mon.ProcessAll(ctx, ReasonWebsocket)
	messages := notifier.sent()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1], "Position Opened")

	// Re-running the same cycle stays silent.
	mon.ProcessAll(ctx, ReasonWebsocket)
	assert.Len(t, notifier.sent(), 2)

	// State survived in the store.
	blob, err := store.Load()
	require.NoError(t, err)
	var state map[string]*WalletEntry
	require.NoError(t, json.Unmarshal(blob, &state))
	require.Contains(t, state, addr)
	assert.InDelta(t, 0.01, state[addr].Positions["BTC"].Size, 1e-12)
}

func TestFirstFullScanForcesSnapshot(t *testing.T) {
	addr := "0x3333333333333333333333333333333333333333"
	mon, exchange, notifier, _ := newTestMonitor(addr)
	defer mon.Stop()
	ctx := context.Background()

	exchange.setPositions(addr, rawPosition("BTC", 0.01, 50000, 500))

	mon.ProcessAll(ctx, ReasonFullScan)
	messages := notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Position Snapshot")

	// A second full scan over unchanged state is hash-gated.
	mon.ProcessAll(ctx, ReasonFullScan)
	assert.Len(t, notifier.sent(), 1)
}

func TestStartupSnapshotArmsFullScanGate(t *testing.T) {
	addr := "0x8888888888888888888888888888888888888888"
	mon, exchange, notifier, _ := newTestMonitor(addr)
	defer mon.Stop()
	ctx := context.Background()

	exchange.setPositions(addr, rawPosition("BTC", 0.01, 50000, 500))

	// The startup snapshot delivers once and counts as the forced scan.
	mon.ProcessAll(ctx, ReasonSnapshot)
	require.Len(t, notifier.sent(), 1)

	// The first scheduled full scan over an unchanged book is hash-gated
	// instead of re-sending an identical snapshot.
	mon.ProcessAll(ctx, ReasonFullScan)
	assert.Len(t, notifier.sent(), 1)
}

func TestSnapshotReasonBypassesHashGate(t *testing.T) {
	addr := "0x4444444444444444444444444444444444444444"
	mon, exchange, notifier, _ := newTestMonitor(addr)
	defer mon.Stop()
	ctx := context.Background()

	exchange.setPositions(addr, rawPosition("BTC", 0.01, 50000, 500))

	mon.ProcessAll(ctx, ReasonSnapshot)
	mon.ProcessAll(ctx, ReasonSnapshot)
	assert.Len(t, notifier.sent(), 2, "explicit snapshots always deliver")
}

func TestSnapshotRunSuppressesDeltaEvents(t *testing.T) {
	addr := "0x5555555555555555555555555555555555555555"
	mon, exchange, notifier, _ := newTestMonitor(addr)
	defer mon.Stop()
	ctx := context.Background()

	exchange.setPositions(addr, rawPosition("BTC", 0.01, 50000, 500))

	mon.ProcessAll(ctx, ReasonFullScan)
	messages := notifier.sent()
	require.Len(t, messages, 1)
	assert.NotContains(t, messages[0], "Position Opened")

	// The suppressed open still recorded its marker: the next incremental
	// run does not replay it.
	mon.ProcessAll(ctx, ReasonPoll)
	assert.Len(t, notifier.sent(), 1)
}

func TestMidsFailureSkipsCycle(t *testing.T) {
	addr := "0x6666666666666666666666666666666666666666"
	mon, exchange, notifier, store := newTestMonitor(addr)
	defer mon.Stop()
	ctx := context.Background()

	exchange.mu.Lock()
	exchange.midErr = errors.New("boom")
	exchange.mu.Unlock()

	mon.ProcessAll(ctx, ReasonWebsocket)
	assert.Empty(t, notifier.sent())

	blob, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, blob, "a failed cycle must not touch stored state")
}

func TestLoadStateRoundTrip(t *testing.T) {
	addr := "0x7777777777777777777777777777777777777777"
	mon, _, _, _ := newTestMonitor(addr)
	defer mon.Stop()

	state := map[string]*WalletEntry{
		addr: {
			Positions: map[string]Position{
				"BTC": {Coin: "BTC", Size: 0.25, EntryPrice: 40000},
			},
			Meta: WalletMeta{
				LastSnapshotHash: "deadbeef",
				Coins:            map[string]*CoinMeta{"BTC": {LastOpenID: "id"}},
			},
		},
	}
	require.NoError(t, mon.saveState(state))

	loaded, err := mon.loadState()
	require.NoError(t, err)
	require.Contains(t, loaded, addr)
	assert.Equal(t, 0.25, loaded[addr].Positions["BTC"].Size)
	assert.Equal(t, "deadbeef", loaded[addr].Meta.LastSnapshotHash)
	assert.Equal(t, "id", loaded[addr].Meta.Coins["BTC"].LastOpenID)
}
