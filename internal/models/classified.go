package models

// EventKind is the position-lifecycle event a transaction was classified as.
type EventKind string

const (
	EventPositionOpen  EventKind = "position_open"
	EventFeeClaim      EventKind = "fee_claim"
	EventPositionClose EventKind = "position_close"
	EventRebalance     EventKind = "rebalance"
	EventUnknown       EventKind = "unknown"
)

// BalanceChange is the dominant per-asset movement observed in one
// transaction: the single largest-magnitude ui-amount delta per mint.
type BalanceChange struct {
	AccountIndex int
	Mint         string
	Decimals     int
	Delta        float64
}

// ClassifiedTransaction is a TransactionRecord plus the lifecycle event the
// classifier assigned to it. It is derived state, cached only within a single
// reconciliation pass.
type ClassifiedTransaction struct {
	Record       *TransactionRecord
	Kind         EventKind
	PositionID   string // empty when no identifier could be recovered
	PoolID       string
	TokenX       *BalanceChange // first two changes in discovery order
	TokenY       *BalanceChange
	NativeDelta  float64
	EstimatedUSD float64 // coarse estimate, not a quoted price
}
