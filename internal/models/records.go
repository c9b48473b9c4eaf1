package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet is the persisted record of a tracked wallet.
type Wallet struct {
	gorm.Model
	Address          string    `gorm:"size:44;uniqueIndex;not null"`
	LastReconciledAt time.Time `gorm:"index"`
	TransactionCount int       `gorm:"default:0"`
	ActivePositions  int       `gorm:"default:0"`
	TotalValueUSD    float64   `gorm:"default:0"`
}

// EventRecord is a persisted classified transaction.
type EventRecord struct {
	gorm.Model
	WalletID        uint       `gorm:"index;not null"`
	Signature       string     `gorm:"size:88;uniqueIndex;not null"`
	BlockTime       *time.Time `gorm:"index"`
	Slot            uint64     `gorm:"index"`
	Kind            string     `gorm:"size:20;index;not null"`
	PositionAddress string     `gorm:"size:44;index"`
	PoolAddress     string     `gorm:"size:44;index"`
	TokenXMint      string     `gorm:"size:44"`
	TokenXDelta     float64    `gorm:"default:0"`
	TokenYMint      string     `gorm:"size:44"`
	TokenYDelta     float64    `gorm:"default:0"`
	NativeDelta     float64    `gorm:"default:0"`
	EstimatedUSD    float64    `gorm:"default:0"`
}

// PositionRecord is a persisted ledger entry for one position identifier.
type PositionRecord struct {
	gorm.Model
	WalletID        uint   `gorm:"index;not null"`
	PositionAddress string `gorm:"size:44;index;not null"`
	OpenCount       int    `gorm:"default:0"`
	CloseCount      int    `gorm:"default:0"`
	Multiplicity    int    `gorm:"default:0"`
	Active          bool   `gorm:"index"`
}

// ValuationRecord is a persisted snapshot of one position valuation.
type ValuationRecord struct {
	gorm.Model
	WalletID         uint    `gorm:"index;not null"`
	PositionAddress  string  `gorm:"size:44;index"`
	PoolAddress      string  `gorm:"size:44;index"`
	TokenXMint       string  `gorm:"size:44"`
	TokenXAmount     float64 `gorm:"default:0"`
	TokenXValueUSD   float64 `gorm:"default:0"`
	TokenYMint       string  `gorm:"size:44"`
	TokenYAmount     float64 `gorm:"default:0"`
	TokenYValueUSD   float64 `gorm:"default:0"`
	TotalUSD         float64 `gorm:"default:0"`
	UnclaimedFeesUSD float64 `gorm:"default:0"`
	OutOfRange       bool
	DailyFeeYield    float64 `gorm:"default:0"`
	Source           string  `gorm:"size:32"`
	SourceErrors     string  `gorm:"type:text"`
}
