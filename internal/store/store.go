package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wnt/lptrack/internal/config"
	"github.com/wnt/lptrack/internal/metrics"
	"github.com/wnt/lptrack/internal/models"
)

// Connect opens the postgres database and migrates the schema.
func Connect(cfg config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
	)

	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.EventRecord{},
		&models.PositionRecord{},
		&models.ValuationRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_event_records_wallet_blocktime ON event_records(wallet_id, block_time)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_valuation_records_wallet_position ON valuation_records(wallet_id, position_address)")

	return nil
}

// Store persists reconciliation outputs. The core itself never requires
// persistence; this is the caller-side sink for its results.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertWallet finds or creates the wallet row for an address.
func (s *Store) UpsertWallet(address string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.Where("address = ?", address).
		FirstOrCreate(&wallet, models.Wallet{Address: address}).Error
	if err != nil {
		metrics.RecordDatabaseOperation("upsert_wallet", "failed")
		return nil, fmt.Errorf("failed to upsert wallet %s: %w", address, err)
	}
	metrics.RecordDatabaseOperation("upsert_wallet", "success")
	return &wallet, nil
}

// SaveEvents persists classified transactions, skipping signatures already
// stored from a previous pass.
func (s *Store) SaveEvents(walletID uint, events []models.ClassifiedTransaction) error {
	if len(events) == 0 {
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			record := eventRecord(walletID, event)
			if err := tx.Create(record).Error; err != nil {
				if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
					continue
				}
				return fmt.Errorf("failed to save event %s: %w", event.Record.Signature, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordDatabaseOperation("save_events", "failed")
		return err
	}
	metrics.RecordDatabaseOperation("save_events", "success")
	return nil
}

// EventsForWallet loads every lifecycle event persisted for a wallet,
// oldest first. Resumed passes fold these under the fresh fetch so the
// active set still reflects the full history.
func (s *Store) EventsForWallet(walletID uint) ([]models.EventRecord, error) {
	var events []models.EventRecord
	err := s.db.Where("wallet_id = ?", walletID).Order("block_time ASC").Find(&events).Error
	if err != nil {
		metrics.RecordDatabaseOperation("load_events", "failed")
		return nil, fmt.Errorf("failed to load events for wallet %d: %w", walletID, err)
	}
	metrics.RecordDatabaseOperation("load_events", "success")
	return events, nil
}

// ReplacePositions rewrites the wallet's ledger rows from a fresh fold.
// Ledger entries are rebuilt from scratch each pass, so stale rows go first.
func (s *Store) ReplacePositions(walletID uint, ledgerEntries map[string]models.PositionRecord) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wallet_id = ?", walletID).Delete(&models.PositionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear position records: %w", err)
		}
		for address, entry := range ledgerEntries {
			record := entry
			record.WalletID = walletID
			record.PositionAddress = address
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to save position record %s: %w", address, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordDatabaseOperation("replace_positions", "failed")
		return err
	}
	metrics.RecordDatabaseOperation("replace_positions", "success")
	return nil
}

// SaveValuations appends a valuation snapshot per position.
func (s *Store) SaveValuations(walletID uint, valuations []*models.PositionValuation) error {
	if len(valuations) == 0 {
		return nil
	}

	records := make([]models.ValuationRecord, 0, len(valuations))
	for _, valuation := range valuations {
		records = append(records, models.ValuationRecord{
			WalletID:         walletID,
			PositionAddress:  valuation.Position,
			PoolAddress:      valuation.Pool,
			TokenXMint:       valuation.TokenX.Mint,
			TokenXAmount:     valuation.TokenX.Amount,
			TokenXValueUSD:   valuation.TokenX.ValueUSD,
			TokenYMint:       valuation.TokenY.Mint,
			TokenYAmount:     valuation.TokenY.Amount,
			TokenYValueUSD:   valuation.TokenY.ValueUSD,
			TotalUSD:         valuation.TotalUSD,
			UnclaimedFeesUSD: valuation.UnclaimedFees,
			OutOfRange:       valuation.OutOfRange,
			DailyFeeYield:    valuation.DailyFeeYield,
			Source:           valuation.Source,
			SourceErrors:     strings.Join(valuation.Errors, "; "),
		})
	}

	if err := s.db.Create(&records).Error; err != nil {
		metrics.RecordDatabaseOperation("save_valuations", "failed")
		return fmt.Errorf("failed to save valuations: %w", err)
	}
	metrics.RecordDatabaseOperation("save_valuations", "success")
	return nil
}

// UpdateWalletSummary stores the headline numbers of a finished pass.
func (s *Store) UpdateWalletSummary(walletID uint, transactionCount, activePositions int, totalValueUSD float64) error {
	err := s.db.Model(&models.Wallet{}).Where("id = ?", walletID).Updates(map[string]interface{}{
		"transaction_count":  transactionCount,
		"active_positions":   activePositions,
		"total_value_usd":    totalValueUSD,
		"last_reconciled_at": time.Now().UTC(),
	}).Error
	if err != nil {
		metrics.RecordDatabaseOperation("update_wallet", "failed")
		return fmt.Errorf("failed to update wallet summary: %w", err)
	}
	metrics.RecordDatabaseOperation("update_wallet", "success")
	return nil
}

func eventRecord(walletID uint, event models.ClassifiedTransaction) *models.EventRecord {
	record := &models.EventRecord{
		WalletID:        walletID,
		Signature:       event.Record.Signature,
		Slot:            event.Record.Slot,
		Kind:            string(event.Kind),
		PositionAddress: event.PositionID,
		PoolAddress:     event.PoolID,
		NativeDelta:     event.NativeDelta,
		EstimatedUSD:    event.EstimatedUSD,
	}
	if event.Record.BlockTime != nil {
		blockTime := time.Unix(*event.Record.BlockTime, 0).UTC()
		record.BlockTime = &blockTime
	}
	if event.TokenX != nil {
		record.TokenXMint = event.TokenX.Mint
		record.TokenXDelta = event.TokenX.Delta
	}
	if event.TokenY != nil {
		record.TokenYMint = event.TokenY.Mint
		record.TokenYDelta = event.TokenY.Delta
	}
	return record
}
