package classifier

import (
	"regexp"

	"github.com/wnt/lptrack/internal/models"
)

var (
	positionLogRe = regexp.MustCompile(`(?i)position:?\s+([1-9A-HJ-NP-Za-km-z]{32,44})`)
	poolLogRe     = regexp.MustCompile(`(?i)(?:lb_pair|pair|pool):?\s+([1-9A-HJ-NP-Za-km-z]{32,44})`)
)

// ExtractPositionID recovers the account address representing the position
// affected by the transaction. The address is stable across every transaction
// touching that position, so it serves as the ledger identifier. Returns ""
// when no candidate is found.
func ExtractPositionID(tx *models.TransactionRecord, kind models.EventKind) string {
	// An explicit log line beats every structural guess.
	for _, line := range tx.LogMessages {
		if m := positionLogRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}

	if kind == models.EventPositionOpen {
		// On open, the position's own token account is the writable
		// non-signer holding a fresh non-zero post balance.
		for _, post := range tx.PostTokenBals {
			if post.UIAmount == 0 {
				continue
			}
			if acc, ok := accountAt(tx, post.AccountIndex); ok && acc.Writable && !acc.Signer {
				return acc.Pubkey
			}
		}
		return ""
	}

	// Otherwise prefer a writable non-signer that held tokens either before
	// or after the transaction.
	holding := make(map[int]bool, len(tx.PreTokenBals)+len(tx.PostTokenBals))
	for _, bal := range tx.PreTokenBals {
		holding[bal.AccountIndex] = true
	}
	for _, bal := range tx.PostTokenBals {
		holding[bal.AccountIndex] = true
	}

	for i, acc := range tx.AccountKeys {
		if holding[i] && acc.Writable && !acc.Signer {
			return acc.Pubkey
		}
	}

	// Last resort: first writable non-signer among the leading accounts.
	limit := len(tx.AccountKeys)
	if limit > 5 {
		limit = 5
	}
	for _, acc := range tx.AccountKeys[:limit] {
		if acc.Writable && !acc.Signer {
			return acc.Pubkey
		}
	}

	return ""
}

func extractPoolID(tx *models.TransactionRecord) string {
	for _, line := range tx.LogMessages {
		if m := poolLogRe.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func accountAt(tx *models.TransactionRecord, index int) (models.AccountEntry, bool) {
	if index < 0 || index >= len(tx.AccountKeys) {
		return models.AccountEntry{}, false
	}
	return tx.AccountKeys[index], true
}
