package analyzer

import (
	"math"

	"github.com/wnt/lptrack/internal/constants"
	"github.com/wnt/lptrack/internal/models"
)

// Epsilon below which a ui-amount delta is treated as no movement.
const Epsilon = 1e-6

// BalanceDeltas computes per-asset ui-amount changes between the pre- and
// post-state of a transaction. When the same mint moved across several token
// accounts (intermediate routing accounts, ATA churn) only the single change
// with the largest magnitude survives per mint: that is the economically
// meaningful movement.
func BalanceDeltas(tx *models.TransactionRecord) []models.BalanceChange {
	preByIndex := make(map[int]models.TokenBalance, len(tx.PreTokenBals))
	for _, pre := range tx.PreTokenBals {
		preByIndex[pre.AccountIndex] = pre
	}

	var changes []models.BalanceChange
	seenPost := make(map[int]bool, len(tx.PostTokenBals))

	for _, post := range tx.PostTokenBals {
		seenPost[post.AccountIndex] = true

		delta := post.UIAmount
		if pre, ok := preByIndex[post.AccountIndex]; ok {
			delta = post.UIAmount - pre.UIAmount
		}
		if math.Abs(delta) <= Epsilon {
			continue
		}

		changes = append(changes, models.BalanceChange{
			AccountIndex: post.AccountIndex,
			Mint:         post.Mint,
			Decimals:     post.Decimals,
			Delta:        delta,
		})
	}

	// Token accounts that disappeared entirely count as a drain to zero.
	for _, pre := range tx.PreTokenBals {
		if seenPost[pre.AccountIndex] {
			continue
		}
		if math.Abs(pre.UIAmount) <= Epsilon {
			continue
		}
		changes = append(changes, models.BalanceChange{
			AccountIndex: pre.AccountIndex,
			Mint:         pre.Mint,
			Decimals:     pre.Decimals,
			Delta:        -pre.UIAmount,
		})
	}

	return dominantPerMint(changes)
}

// dominantPerMint keeps, per mint, only the change with the largest absolute
// magnitude, preserving discovery order of the survivors.
func dominantPerMint(changes []models.BalanceChange) []models.BalanceChange {
	best := make(map[string]int, len(changes))
	for i, change := range changes {
		j, ok := best[change.Mint]
		if !ok || math.Abs(change.Delta) > math.Abs(changes[j].Delta) {
			best[change.Mint] = i
		}
	}

	var result []models.BalanceChange
	for i, change := range changes {
		if best[change.Mint] == i {
			result = append(result, change)
		}
	}
	return result
}

// NativeDelta computes the wallet's own SOL balance change for a transaction,
// in whole SOL. Returns 0 when the wallet is not among the transaction's
// accounts.
func NativeDelta(tx *models.TransactionRecord, wallet string) float64 {
	idx := tx.AccountIndexOf(wallet)
	if idx < 0 || idx >= len(tx.PreBalances) || idx >= len(tx.PostBalances) {
		return 0
	}
	return (float64(tx.PostBalances[idx]) - float64(tx.PreBalances[idx])) / constants.LamportsPerSOL
}
