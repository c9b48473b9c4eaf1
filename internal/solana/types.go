package solana

import (
	"strconv"

	"github.com/wnt/lptrack/internal/models"
)

// Raw shapes of the getTransaction RPC response (jsonParsed encoding). Only
// the fields the reconciliation core needs are mapped.

type rawTransaction struct {
	Slot        uint64   `json:"slot"`
	BlockTime   *int64   `json:"blockTime"`
	Transaction rawTx    `json:"transaction"`
	Meta        *rawMeta `json:"meta"`
}

type rawTx struct {
	Message    rawMessage `json:"message"`
	Signatures []string   `json:"signatures"`
}

type rawMessage struct {
	AccountKeys []rawAccountKey `json:"accountKeys"`
}

type rawAccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

type rawMeta struct {
	Err               interface{}       `json:"err"`
	LogMessages       []string          `json:"logMessages"`
	PreBalances       []uint64          `json:"preBalances"`
	PostBalances      []uint64          `json:"postBalances"`
	PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
}

type rawTokenBalance struct {
	AccountIndex  int              `json:"accountIndex"`
	Mint          string           `json:"mint"`
	Owner         string           `json:"owner"`
	UITokenAmount rawUITokenAmount `json:"uiTokenAmount"`
}

type rawUITokenAmount struct {
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
	Decimals       int      `json:"decimals"`
}

type rawSignatureInfo struct {
	Signature string      `json:"signature"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

func (r *rawTransaction) toRecord(signature string) *models.TransactionRecord {
	record := &models.TransactionRecord{
		Signature: signature,
		BlockTime: r.BlockTime,
		Slot:      r.Slot,
		Success:   true,
	}

	for _, key := range r.Transaction.Message.AccountKeys {
		record.AccountKeys = append(record.AccountKeys, models.AccountEntry{
			Pubkey:   key.Pubkey,
			Signer:   key.Signer,
			Writable: key.Writable,
		})
	}

	if r.Meta != nil {
		record.Success = r.Meta.Err == nil
		record.LogMessages = r.Meta.LogMessages
		record.PreBalances = r.Meta.PreBalances
		record.PostBalances = r.Meta.PostBalances
		record.PreTokenBals = convertTokenBalances(r.Meta.PreTokenBalances)
		record.PostTokenBals = convertTokenBalances(r.Meta.PostTokenBalances)
	}

	return record
}

func convertTokenBalances(raw []rawTokenBalance) []models.TokenBalance {
	balances := make([]models.TokenBalance, 0, len(raw))
	for _, bal := range raw {
		balances = append(balances, models.TokenBalance{
			AccountIndex: bal.AccountIndex,
			Mint:         bal.Mint,
			Owner:        bal.Owner,
			UIAmount:     bal.UITokenAmount.amount(),
			Decimals:     bal.UITokenAmount.Decimals,
		})
	}
	return balances
}

// amount prefers the string form; the float form loses precision on large
// raw amounts but is still better than nothing.
func (a rawUITokenAmount) amount() float64 {
	if a.UIAmountString != "" {
		if v, err := strconv.ParseFloat(a.UIAmountString, 64); err == nil {
			return v
		}
	}
	if a.UIAmount != nil {
		return *a.UIAmount
	}
	return 0
}
