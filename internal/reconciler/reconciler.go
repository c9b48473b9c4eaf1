package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wnt/lptrack/internal/classifier"
	"github.com/wnt/lptrack/internal/ledger"
	"github.com/wnt/lptrack/internal/metrics"
	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/solana"
	"github.com/wnt/lptrack/internal/valuation"
)

// Store is the persistence sink for reconciliation outputs. It also feeds
// cursor resume: a resumed pass fetches only transactions newer than the
// cursor and folds the stored events underneath them.
type Store interface {
	UpsertWallet(address string) (*models.Wallet, error)
	EventsForWallet(walletID uint) ([]models.EventRecord, error)
	SaveEvents(walletID uint, events []models.ClassifiedTransaction) error
	ReplacePositions(walletID uint, ledgerEntries map[string]models.PositionRecord) error
	SaveValuations(walletID uint, valuations []*models.PositionValuation) error
	UpdateWalletSummary(walletID uint, transactionCount, activePositions int, totalValueUSD float64) error
}

// Result is everything one reconciliation pass produced for a wallet.
type Result struct {
	Wallet string
	// Classified holds the transactions fetched this pass; on a resumed
	// pass that is only the ones newer than the cursor.
	Classified        []models.ClassifiedTransaction
	Active            []models.ActivePosition
	UnidentifiedOpens int
	Valuations        []*models.PositionValuation
	TotalUSD          float64
	// Errors collects per-item failures (fetch, persistence) that did not
	// abort the pass.
	Errors []string
}

// Reconciler replays a wallet's transaction history into lifecycle events,
// folds them into the active-position set, and values what is still open.
type Reconciler struct {
	history        *solana.History
	classifier     *classifier.Classifier
	orchestrator   *valuation.Orchestrator
	store          Store // nil disables persistence and cursor resume
	signatureLimit int
	logger         zerolog.Logger
}

// New assembles a reconciler. Pass a nil store for one-shot runs that only
// report results.
func New(history *solana.History, cls *classifier.Classifier, orchestrator *valuation.Orchestrator,
	st Store, signatureLimit int, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		history:        history,
		classifier:     cls,
		orchestrator:   orchestrator,
		store:          st,
		signatureLimit: signatureLimit,
		logger:         logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile runs one full pass for a wallet. A non-empty cursor resumes
// from a previous pass: only transactions newer than it are fetched, and
// the events persisted before the cursor are folded back in. Only an
// unreachable history source fails the pass outright; every other failure
// is accumulated into the result.
func (r *Reconciler) Reconcile(ctx context.Context, wallet, cursor string) (*Result, error) {
	start := time.Now()
	log := r.logger.With().Str("wallet", wallet).Logger()
	result := &Result{Wallet: wallet}

	var walletRecord *models.Wallet
	if r.store != nil {
		record, err := r.store.UpsertWallet(wallet)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			walletRecord = record
		}
	}

	var prior []models.EventRecord
	until := ""
	if cursor != "" && walletRecord != nil {
		events, err := r.store.EventsForWallet(walletRecord.ID)
		if err != nil {
			// A bounded fetch without the stored events would drop
			// everything before the cursor; refetch in full instead.
			result.Errors = append(result.Errors, err.Error())
		} else {
			prior = events
			until = cursor
		}
	}

	signatures, err := r.history.ListSignatures(ctx, wallet, r.signatureLimit, until)
	if err != nil {
		return nil, fmt.Errorf("listing signatures for %s: %w", wallet, err)
	}
	if until != "" {
		log.Info().Str("cursor", cursor).Int("new_signatures", len(signatures)).
			Int("stored_events", len(prior)).Msg("Resuming from cursor")
	} else {
		log.Info().Int("signatures", len(signatures)).Msg("Fetched signature list")
	}

	poolByPosition := make(map[string]string)

	for _, item := range r.history.GetTransactionsInBulk(ctx, signatures) {
		if item.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("tx %s: %v", item.Signature, item.Err))
			continue
		}
		if item.Record == nil {
			continue
		}

		classified := r.classifier.Classify(item.Record, wallet)
		metrics.RecordClassification(string(classified.Kind))
		if classified.PositionID != "" && classified.PoolID != "" {
			poolByPosition[classified.PositionID] = classified.PoolID
		}
		result.Classified = append(result.Classified, classified)
	}

	led := ledger.Fold(result.Classified)
	for _, event := range prior {
		led.Add(&models.ClassifiedTransaction{
			Kind:       models.EventKind(event.Kind),
			PositionID: event.PositionAddress,
		})
		if event.PositionAddress != "" && event.PoolAddress != "" {
			poolByPosition[event.PositionAddress] = event.PoolAddress
		}
	}
	result.Active = led.Active()
	result.UnidentifiedOpens = led.UnidentifiedOpens()
	log.Info().
		Int("classified", len(result.Classified)).
		Int("active_positions", len(result.Active)).
		Int("unidentified_opens", result.UnidentifiedOpens).
		Msg("Folded transaction history")

	refs := make([]models.PositionRef, 0, len(result.Active))
	for _, active := range result.Active {
		refs = append(refs, models.PositionRef{
			Position: active.Position,
			Wallet:   wallet,
			Pool:     poolByPosition[active.Position],
		})
	}
	if len(refs) == 0 && result.UnidentifiedOpens > 0 {
		// No usable identifiers; a single wallet-level probe lets the
		// pool-scan fallback find whatever is actually open.
		refs = append(refs, models.PositionRef{Wallet: wallet})
	}

	result.Valuations = r.orchestrator.ValueAll(ctx, refs)
	for _, v := range result.Valuations {
		result.TotalUSD += v.TotalUSD
	}

	if walletRecord != nil {
		r.persist(walletRecord, led, result, len(prior)+len(result.Classified))
	}

	metrics.RecordWalletReconcile(time.Since(start).Seconds())
	log.Info().
		Float64("total_usd", result.TotalUSD).
		Int("errors", len(result.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("Wallet reconciled")

	return result, nil
}

// persist writes the pass's outputs. Persistence failures never abort the
// pass; they join the result's error list.
func (r *Reconciler) persist(wallet *models.Wallet, led *ledger.Ledger, result *Result, transactionCount int) {
	if err := r.store.SaveEvents(wallet.ID, result.Classified); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	positions := make(map[string]models.PositionRecord)
	for id, entry := range led.Entries() {
		positions[id] = models.PositionRecord{
			OpenCount:    entry.OpenCount,
			CloseCount:   entry.CloseCount,
			Multiplicity: entry.Multiplicity(),
			Active:       entry.Active(),
		}
	}
	if err := r.store.ReplacePositions(wallet.ID, positions); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	if err := r.store.SaveValuations(wallet.ID, result.Valuations); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	if err := r.store.UpdateWalletSummary(wallet.ID, transactionCount, len(result.Active), result.TotalUSD); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
}
