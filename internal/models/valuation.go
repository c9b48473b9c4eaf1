package models

// PositionRef identifies a position to be valued. Pool may be empty when the
// history pass could not recover it; strategies that need it resolve it
// themselves.
type PositionRef struct {
	Position string
	Wallet   string
	Pool     string
}

// TokenLeg is one side of a position's liquidity.
type TokenLeg struct {
	Mint     string
	Symbol   string
	Amount   float64
	PriceUSD float64
	ValueUSD float64
}

// PositionValuation is the reconciled current value of one position. Errors
// holds every per-source failure met while building it; a zero TotalUSD with
// a non-empty Errors list means "could not determine", not "empty position".
type PositionValuation struct {
	Position      string
	Pool          string
	TokenX        TokenLeg
	TokenY        TokenLeg
	TotalUSD      float64
	UnclaimedFees float64
	OutOfRange    bool
	DailyFeeYield float64
	Source        string
	Errors        []string
}

// ActivePosition is a ledger entry believed still open from history alone.
type ActivePosition struct {
	Position     string
	Multiplicity int
}
