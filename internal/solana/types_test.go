package solana

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTransactionJSON = `{
	"slot": 250000000,
	"blockTime": 1717000000,
	"transaction": {
		"message": {
			"accountKeys": [
				{"pubkey": "WalletAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "signer": true, "writable": true},
				{"pubkey": "PositionBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", "signer": false, "writable": true}
			]
		},
		"signatures": ["sig-1"]
	},
	"meta": {
		"err": null,
		"logMessages": ["Program log: Instruction: InitializePosition"],
		"preBalances": [5000000000, 0],
		"postBalances": [4000000000, 2039280],
		"preTokenBalances": [],
		"postTokenBalances": [
			{
				"accountIndex": 1,
				"mint": "MintCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC",
				"owner": "WalletAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
				"uiTokenAmount": {"uiAmount": 250.0, "uiAmountString": "250.000001", "decimals": 6}
			}
		]
	}
}`

func TestToRecord(t *testing.T) {
	var raw rawTransaction
	require.NoError(t, json.Unmarshal([]byte(sampleTransactionJSON), &raw))

	record := raw.toRecord("sig-1")

	assert.Equal(t, "sig-1", record.Signature)
	assert.Equal(t, uint64(250000000), record.Slot)
	require.NotNil(t, record.BlockTime)
	assert.Equal(t, int64(1717000000), *record.BlockTime)
	assert.True(t, record.Success)

	require.Len(t, record.AccountKeys, 2)
	assert.True(t, record.AccountKeys[0].Signer)
	assert.False(t, record.AccountKeys[1].Signer)
	assert.True(t, record.AccountKeys[1].Writable)

	assert.Equal(t, []uint64{5000000000, 0}, record.PreBalances)
	require.Len(t, record.PostTokenBals, 1)
	// The string form is preferred over the rounded float form.
	assert.Equal(t, 250.000001, record.PostTokenBals[0].UIAmount)
	assert.Equal(t, 6, record.PostTokenBals[0].Decimals)
}

func TestToRecord_FailedTransaction(t *testing.T) {
	var raw rawTransaction
	require.NoError(t, json.Unmarshal([]byte(sampleTransactionJSON), &raw))
	raw.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	record := raw.toRecord("sig-1")
	assert.False(t, record.Success)
}

func TestToRecord_MissingMeta(t *testing.T) {
	raw := rawTransaction{Slot: 1}
	record := raw.toRecord("sig-2")

	assert.True(t, record.Success)
	assert.Empty(t, record.LogMessages)
	assert.Empty(t, record.PreTokenBals)
}

func TestUITokenAmount_PrefersStringForm(t *testing.T) {
	float := 1.5
	assert.Equal(t, 1.500001, rawUITokenAmount{UIAmount: &float, UIAmountString: "1.500001"}.amount())
	assert.Equal(t, 1.5, rawUITokenAmount{UIAmount: &float}.amount())
	assert.Equal(t, 0.0, rawUITokenAmount{}.amount())
}
