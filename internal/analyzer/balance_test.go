package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wnt/lptrack/internal/models"
)

const (
	mintA = "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	mintB = "MintBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

func TestBalanceDeltas_RoundTrip(t *testing.T) {
	// A drains 10 -> 4, B appears 0 -> 250. Each mint also shows a small
	// movement on a second account, which must not produce duplicates.
	tx := &models.TransactionRecord{
		PreTokenBals: []models.TokenBalance{
			{AccountIndex: 1, Mint: mintA, Decimals: 6, UIAmount: 10},
			{AccountIndex: 4, Mint: mintA, Decimals: 6, UIAmount: 1},
		},
		PostTokenBals: []models.TokenBalance{
			{AccountIndex: 1, Mint: mintA, Decimals: 6, UIAmount: 4},
			{AccountIndex: 4, Mint: mintA, Decimals: 6, UIAmount: 1.5},
			{AccountIndex: 2, Mint: mintB, Decimals: 9, UIAmount: 250},
			{AccountIndex: 5, Mint: mintB, Decimals: 9, UIAmount: 2},
		},
	}

	changes := BalanceDeltas(tx)

	assert.Len(t, changes, 2)
	byMint := map[string]models.BalanceChange{}
	for _, c := range changes {
		byMint[c.Mint] = c
	}
	assert.InDelta(t, -6.0, byMint[mintA].Delta, 1e-9)
	assert.InDelta(t, 250.0, byMint[mintB].Delta, 1e-9)
}

func TestBalanceDeltas_ClosedAccount(t *testing.T) {
	tx := &models.TransactionRecord{
		PreTokenBals: []models.TokenBalance{
			{AccountIndex: 2, Mint: mintA, Decimals: 6, UIAmount: 3.5},
			{AccountIndex: 3, Mint: mintB, Decimals: 6, UIAmount: 0}, // dust-free close, skipped
		},
	}

	changes := BalanceDeltas(tx)

	assert.Len(t, changes, 1)
	assert.Equal(t, mintA, changes[0].Mint)
	assert.InDelta(t, -3.5, changes[0].Delta, 1e-9)
}

func TestBalanceDeltas_NegligibleMovementIgnored(t *testing.T) {
	tx := &models.TransactionRecord{
		PreTokenBals: []models.TokenBalance{
			{AccountIndex: 1, Mint: mintA, UIAmount: 5},
		},
		PostTokenBals: []models.TokenBalance{
			{AccountIndex: 1, Mint: mintA, UIAmount: 5 + 1e-8},
		},
	}

	assert.Empty(t, BalanceDeltas(tx))
}

func TestNativeDelta(t *testing.T) {
	wallet := "WaLLetXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"
	tx := &models.TransactionRecord{
		AccountKeys: []models.AccountEntry{
			{Pubkey: wallet, Signer: true, Writable: true},
			{Pubkey: "other"},
		},
		PreBalances:  []uint64{2_000_000_000, 500},
		PostBalances: []uint64{1_500_000_000, 500},
	}

	assert.InDelta(t, -0.5, NativeDelta(tx, wallet), 1e-9)
	assert.Zero(t, NativeDelta(tx, "not-in-transaction"))
}
