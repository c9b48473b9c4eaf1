package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/wnt/lptrack/internal/logger"
	"github.com/wnt/lptrack/internal/queue"
	"github.com/wnt/lptrack/internal/reconciler"
)

// Worker pulls wallets off the queue and reconciles them one at a time.
type Worker struct {
	id         string
	queue      *queue.Client
	reconciler *reconciler.Reconciler
	logger     zerolog.Logger
	stopped    atomic.Bool // written by Stop from the manager goroutine
}

// NewWorker creates a new worker instance
func NewWorker(id string, queueClient *queue.Client, rec *reconciler.Reconciler, baseLogger zerolog.Logger) *Worker {
	return &Worker{
		id:         id,
		queue:      queueClient,
		reconciler: rec,
		logger:     logger.WithWorker(baseLogger, id),
	}
}

// Start begins the worker processing loop
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker received shutdown signal")
			return ctx.Err()
		default:
			if w.stopped.Load() {
				w.logger.Info().Msg("Worker stopped")
				return nil
			}

			if err := w.processWallet(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to process wallet")

				// Brief pause to avoid tight error loops
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Stop signals the worker to stop gracefully
func (w *Worker) Stop() {
	w.stopped.Store(true)
	w.logger.Info().Msg("Worker stop signal received")
}

// processWallet handles one queue item end to end: pop, mark in-flight,
// reconcile, record the resume cursor, and requeue on failure.
func (w *Worker) processWallet(ctx context.Context) error {
	wallet, err := w.queue.PopWallet(ctx)
	if err != nil {
		return fmt.Errorf("failed to pop wallet from queue: %w", err)
	}

	if wallet == "" {
		// Brief pause when queue is empty to avoid spinning
		select {
		case <-time.After(10 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	if err := w.queue.SetInFlight(ctx, wallet, w.id); err != nil {
		w.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to mark wallet as in-flight")
		if requeueErr := w.queue.PushWallet(ctx, wallet, 0); requeueErr != nil {
			w.logger.Error().Err(requeueErr).Str("wallet", wallet).Msg("Failed to requeue wallet after in-flight error")
		}
		return err
	}

	walletLogger := logger.WithWallet(w.logger, wallet)
	startTime := time.Now()

	cursor, err := w.queue.GetCursor(ctx, wallet)
	if err != nil {
		walletLogger.Error().Err(err).Msg("Failed to read wallet cursor")
		cursor = ""
	} else if cursor != "" {
		walletLogger.Debug().Str("cursor", cursor).Msg("Resuming from recorded cursor")
	}

	walletLogger.Info().Msg("Starting wallet reconciliation")
	result, err := w.reconciler.Reconcile(ctx, wallet, cursor)
	duration := time.Since(startTime)

	if removeErr := w.queue.RemoveInFlight(ctx, wallet); removeErr != nil {
		walletLogger.Error().Err(removeErr).Msg("Failed to remove wallet from in-flight tracking")
	}

	if err != nil {
		walletLogger.Error().Err(err).Dur("duration", duration).Msg("Failed to reconcile wallet")

		// Re-queue with lower priority (higher score) on failure
		if requeueErr := w.queue.PushWallet(ctx, wallet, float64(time.Now().Unix())); requeueErr != nil {
			walletLogger.Error().Err(requeueErr).Msg("Failed to requeue failed wallet")
		}
		return fmt.Errorf("wallet reconciliation failed: %w", err)
	}

	if len(result.Classified) > 0 {
		newest := result.Classified[0].Record.Signature
		if cursorErr := w.queue.SetCursor(ctx, wallet, newest); cursorErr != nil {
			walletLogger.Error().Err(cursorErr).Msg("Failed to record wallet cursor")
		}
	}

	walletLogger.Info().
		Dur("duration", duration).
		Int("active_positions", len(result.Active)).
		Float64("total_usd", result.TotalUSD).
		Msg("Wallet reconciliation completed")
	return nil
}
