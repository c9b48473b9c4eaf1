package models

import "time"

// TransactionRecord is the immutable view of one on-chain transaction as
// returned by the RPC history source. It is fetched once and never mutated.
type TransactionRecord struct {
	Signature     string
	BlockTime     *int64
	Slot          uint64
	AccountKeys   []AccountEntry
	LogMessages   []string
	PreBalances   []uint64
	PostBalances  []uint64
	PreTokenBals  []TokenBalance
	PostTokenBals []TokenBalance
	Success       bool
}

// AccountEntry is one account referenced by a transaction, in message order.
type AccountEntry struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// TokenBalance is a pre- or post-transaction SPL token balance snapshot.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
	Decimals     int
}

// Time returns the block time, or the zero time when the chain did not
// report one.
func (t *TransactionRecord) Time() time.Time {
	if t.BlockTime == nil {
		return time.Time{}
	}
	return time.Unix(*t.BlockTime, 0)
}

// AccountIndexOf returns the message index of the given address, or -1.
func (t *TransactionRecord) AccountIndexOf(address string) int {
	for i, acc := range t.AccountKeys {
		if acc.Pubkey == address {
			return i
		}
	}
	return -1
}
