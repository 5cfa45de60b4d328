package hyperliquid

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
)

// Exchange submits signed actions to the trading endpoint. All orders are
// limit IOC; price and size are already rounded by the caller.
type Exchange struct {
	client        *Client
	privateKey    *ecdsa.PrivateKey
	walletAddress common.Address
	vaultAddress  string
}

// OrderRequest is a single limit IOC order.
type OrderRequest struct {
	Coin       string
	IsBuy      bool
	Size       float64
	LimitPx    float64
	ReduceOnly bool
	ClientID   string
}

// OrderAck is the exchange response to an order action.
type OrderAck struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// NewExchange creates an exchange client from a hex encoded private key.
func NewExchange(client *Client, privateKeyHex, vaultAddress string) (*Exchange, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Exchange{
		client:        client,
		privateKey:    key,
		walletAddress: crypto.PubkeyToAddress(key.PublicKey),
		vaultAddress:  vaultAddress,
	}, nil
}

// WalletAddress returns the address derived from the signing key.
func (e *Exchange) WalletAddress() string {
	return e.walletAddress.Hex()
}

// SubmitOrder places a limit IOC order.
func (e *Exchange) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderAck, error) {
	order := map[string]interface{}{
		"a": req.Coin,
		"b": req.IsBuy,
		"p": fmt.Sprintf("%g", req.LimitPx),
		"s": fmt.Sprintf("%g", req.Size),
		"r": req.ReduceOnly,
		"t": map[string]interface{}{"limit": map[string]string{"tif": "Ioc"}},
	}
	if req.ClientID != "" {
		order["c"] = req.ClientID
	}
	action := map[string]interface{}{
		"type":   "order",
		"orders": []interface{}{order},
	}

	var ack OrderAck
	if err := e.submit(ctx, "order", action, &ack); err != nil {
		return nil, err
	}
	log.Info().
		Str("coin", req.Coin).
		Bool("buy", req.IsBuy).
		Float64("size", req.Size).
		Float64("limit_px", req.LimitPx).
		Bool("reduce_only", req.ReduceOnly).
		Str("status", ack.Status).
		Msg("Order submitted")
	return &ack, nil
}

// UpdateLeverage sets cross leverage for a coin.
func (e *Exchange) UpdateLeverage(ctx context.Context, coin string, leverage int) error {
	action := map[string]interface{}{
		"type":     "updateLeverage",
		"coin":     coin,
		"isCross":  true,
		"leverage": leverage,
	}
	return e.submit(ctx, "update_leverage", action, nil)
}

// submit signs an action with the wallet key and posts it. The nonce is the
// current millisecond timestamp; the signature covers the serialized action
// plus nonce and vault address.
func (e *Exchange) submit(ctx context.Context, name string, action map[string]interface{}, out interface{}) error {
	nonce := time.Now().UnixMilli()

	sig, err := e.sign(action, nonce)
	if err != nil {
		return fmt.Errorf("sign %s action: %w", name, err)
	}

	payload := map[string]interface{}{
		"action":    action,
		"nonce":     nonce,
		"signature": sig,
	}
	if e.vaultAddress != "" {
		payload["vaultAddress"] = e.vaultAddress
	}
	return e.client.postRetry(ctx, name, "/exchange", payload, out)
}

func (e *Exchange) sign(action map[string]interface{}, nonce int64) (map[string]interface{}, error) {
	serialized, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}

	msg := make([]byte, 0, len(serialized)+8+len(e.vaultAddress))
	msg = append(msg, serialized...)
	msg = append(msg, []byte(fmt.Sprintf(":%d:%s", nonce, e.vaultAddress))...)
	digest := crypto.Keccak256(msg)

	sig, err := crypto.Sign(digest, e.privateKey)
	if err != nil {
		return nil, err
	}

	// Split into r/s/v the way the exchange expects.
	return map[string]interface{}{
		"r": "0x" + hex.EncodeToString(sig[:32]),
		"s": "0x" + hex.EncodeToString(sig[32:64]),
		"v": int(sig[64]) + 27,
	}, nil
}
