package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/metrics"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
	apiTimeout = 30 * time.Second
)

// Client queries the Hyperliquid info endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new info client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: apiTimeout},
	}
}

// APIError is a non-2xx response from the exchange.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hyperliquid: status %d: %s", e.Status, e.Body)
}

// transient reports whether an error is worth retrying: network failures and
// server-side or rate-limit statuses.
func transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == 429
	}
	// Anything that is not an APIError came from the transport.
	return true
}

// post sends one request to path and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postRetry wraps post with the standard retry ladder: maxRetries attempts,
// delay doubling each time, transient errors only. The last error propagates.
func (c *Client) postRetry(ctx context.Context, name, path string, payload interface{}, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = c.post(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !transient(lastErr) || attempt == maxRetries-1 {
			break
		}
		wait := retryDelay * (1 << attempt)
		metrics.APIRetries.WithLabelValues(name).Inc()
		log.Warn().
			Err(lastErr).
			Str("call", name).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("API call failed, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxRetries, lastErr)
}

// UserState fetches the position snapshot for a wallet.
func (c *Client) UserState(ctx context.Context, address string) (*UserState, error) {
	var state UserState
	payload := map[string]string{"type": "clearinghouseState", "user": address}
	if err := c.postRetry(ctx, "user_state", "/info", payload, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// UserFills fetches recent fills for a wallet, most recent first per the API.
func (c *Client) UserFills(ctx context.Context, address string) ([]Fill, error) {
	var fills []Fill
	payload := map[string]string{"type": "userFills", "user": address}
	if err := c.postRetry(ctx, "user_fills", "/info", payload, &fills); err != nil {
		return nil, err
	}
	return fills, nil
}

// AllMids fetches the current mid price for every coin.
func (c *Client) AllMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	payload := map[string]string{"type": "allMids"}
	if err := c.postRetry(ctx, "all_mids", "/info", payload, &raw); err != nil {
		return nil, err
	}
	mids := make(map[string]float64, len(raw))
	for coin, price := range raw {
		mids[coin] = Float(price)
	}
	return mids, nil
}

// CandlesSnapshot fetches closing candles for a coin over [start, end] ms.
func (c *Client) CandlesSnapshot(ctx context.Context, coin, interval string, start, end int64) ([]Candle, error) {
	var candles []Candle
	payload := map[string]interface{}{
		"type": "candleSnapshot",
		"req": map[string]interface{}{
			"coin":      coin,
			"interval":  interval,
			"startTime": start,
			"endTime":   end,
		},
	}
	if err := c.postRetry(ctx, "candles_snapshot", "/info", payload, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}
