package hyperliquid

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSClient maintains a websocket connection to the exchange and dispatches
// user events to per-address callbacks.
type WSClient struct {
	url  string
	conn *websocket.Conn

	mu            sync.RWMutex
	addresses     []string
	callbacks     map[string]func()
	fillCallbacks map[string]func([]Fill)
	running       bool
	stopCh        chan struct{}
}

type wsSubscription struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type wsRequest struct {
	Method       string         `json:"method"`
	Subscription wsSubscription `json:"subscription"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// NewWSClient creates a websocket client
func NewWSClient(url string) *WSClient {
	return &WSClient{
		url:           url,
		callbacks:     make(map[string]func()),
		fillCallbacks: make(map[string]func([]Fill)),
		stopCh:        make(chan struct{}),
	}
}

// Subscribe registers a callback invoked whenever fills or order updates
// arrive for the address. Must be called before Start. Lookup is case
// insensitive: the push feed reports addresses in lowercase.
func (c *WSClient) Subscribe(address string, cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addAddress(address)
	c.callbacks[strings.ToLower(address)] = cb
}

// SubscribeFills registers a callback receiving the parsed fills of each
// userFills push for the address. The initial snapshot batch the feed sends
// on subscribe replays history and is not delivered. Must be called before
// Start.
func (c *WSClient) SubscribeFills(address string, cb func(fills []Fill)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addAddress(address)
	c.fillCallbacks[strings.ToLower(address)] = cb
}

// addAddress records an address for wire subscriptions, once. Callers hold mu.
func (c *WSClient) addAddress(address string) {
	for _, known := range c.addresses {
		if strings.EqualFold(known, address) {
			return
		}
	}
	c.addresses = append(c.addresses, address)
}

// Start connects and begins reading. Reconnects with a delay until Stop.
func (c *WSClient) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	if err := c.connect(); err != nil {
		return err
	}

	go c.run()
	log.Info().Str("url", c.url).Msg("Websocket monitoring started")
	return nil
}

// Stop closes the connection and halts the read loop.
func (c *WSClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	if c.conn != nil {
		c.conn.Close()
	}
	log.Info().Msg("Websocket monitoring stopped")
}

func (c *WSClient) isRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *WSClient) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	addresses := append([]string(nil), c.addresses...)
	c.mu.Unlock()

	for _, addr := range addresses {
		for _, subType := range []string{"userEvents", "userFills"} {
			req := wsRequest{
				Method:       "subscribe",
				Subscription: wsSubscription{Type: subType, User: addr},
			}
			if err := conn.WriteJSON(req); err != nil {
				conn.Close()
				return fmt.Errorf("subscribe %s for %s: %w", subType, addr, err)
			}
		}
		log.Info().Str("address", addr).Msg("Subscribed to websocket streams")
	}
	return nil
}

func (c *WSClient) run() {
	for c.isRunning() {
		c.readMessages()

		if !c.isRunning() {
			return
		}
		log.Warn().Msg("Websocket disconnected, reconnecting...")

		select {
		case <-c.stopCh:
			return
		case <-time.After(5 * time.Second):
		}
		if err := c.connect(); err != nil {
			log.Error().Err(err).Msg("Websocket reconnect failed")
		}
	}
}

func (c *WSClient) readMessages() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isRunning() {
				log.Error().Err(err).Msg("Websocket read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage fires the address callback when the payload carries fills or
// order updates. Everything else (pongs, subscription acks) is ignored.
func (c *WSClient) handleMessage(data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Channel != "userEvents" && msg.Channel != "userFills" {
		return
	}

	var payload struct {
		User         string          `json:"user"`
		IsSnapshot   bool            `json:"isSnapshot"`
		Fills        json.RawMessage `json:"fills"`
		OrderUpdates json.RawMessage `json:"orderUpdates"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return
	}
	if len(payload.Fills) == 0 && len(payload.OrderUpdates) == 0 {
		return
	}

	c.mu.RLock()
	cb := c.callbacks[strings.ToLower(payload.User)]
	fillCb := c.fillCallbacks[strings.ToLower(payload.User)]
	c.mu.RUnlock()

	if cb != nil {
		cb()
	}
	if fillCb != nil && !payload.IsSnapshot && len(payload.Fills) > 0 {
		var fills []Fill
		if err := json.Unmarshal(payload.Fills, &fills); err != nil {
			log.Debug().Err(err).Msg("Unparseable fills payload")
			return
		}
		if len(fills) > 0 {
			fillCb(fills)
		}
	}
}
