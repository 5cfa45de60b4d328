package hyperliquid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatCoercion(t *testing.T) {
	assert.Equal(t, 1.5, Float("1.5"))
	assert.Equal(t, -0.25, Float("-0.25"))
	assert.Equal(t, 0.0, Float(""))
	assert.Equal(t, 0.0, Float("garbage"))
}

func TestLeverageUnmarshalBothEncodings(t *testing.T) {
	var object Leverage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"cross","value":20}`), &object))
	assert.Equal(t, "cross", object.Type)
	assert.Equal(t, 20.0, object.Value)

	var bare Leverage
	require.NoError(t, json.Unmarshal([]byte(`5`), &bare))
	assert.Equal(t, 5.0, bare.Value)
}

func TestFillEndPosition(t *testing.T) {
	buy := Fill{Side: "B", Sz: "0.5", StartPosition: "1"}
	assert.Equal(t, 1.5, buy.EndPosition())

	sell := Fill{Side: "A", Sz: "0.5", StartPosition: "1"}
	assert.Equal(t, 0.5, sell.EndPosition())

	unknown := Fill{Side: "?", Sz: "0.5", StartPosition: "1"}
	assert.Equal(t, 1.0, unknown.EndPosition())
}

func TestFillTxHash(t *testing.T) {
	assert.Equal(t, "0xabc", Fill{Hash: "0xabc"}.TxHash())
	assert.Equal(t, "N/A", Fill{}.TxHash())
}

func TestUserStateAccountValueChain(t *testing.T) {
	var state UserState
	require.NoError(t, json.Unmarshal([]byte(`{
		"marginSummary": {"accountValue": "1234.5"},
		"withdrawable": "100"
	}`), &state))
	assert.Equal(t, 1234.5, state.AccountValue())

	var fallback UserState
	require.NoError(t, json.Unmarshal([]byte(`{"withdrawable": "100"}`), &fallback))
	assert.Equal(t, 100.0, fallback.AccountValue())
}

func TestUserStatePositions(t *testing.T) {
	var state UserState
	require.NoError(t, json.Unmarshal([]byte(`{
		"assetPositions": [
			{"position": {"coin": "BTC", "szi": "0.01", "entryPx": "50000", "leverage": {"type":"cross","value":3}}},
			{"position": {"coin": "ETH", "szi": "-2", "entryPx": "3000", "leverage": 10}}
		]
	}`), &state))

	positions := state.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, "BTC", positions[0].Coin)
	assert.Equal(t, 3.0, positions[0].Leverage.Value)
	assert.Equal(t, 10.0, positions[1].Leverage.Value)
}
