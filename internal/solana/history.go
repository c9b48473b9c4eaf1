package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/rpc"
	"golang.org/x/sync/errgroup"
)

const signaturePageSize = 1000

// History reads a wallet's transaction history from the chain's RPC surface.
// Both operations are idempotent reads.
type History struct {
	client      *rpc.Client
	logger      zerolog.Logger
	concurrency int
	batchDelay  time.Duration
}

// NewHistory creates a history source. concurrency bounds the window used by
// bulk fetches; batchDelay is the politeness pause between windows.
func NewHistory(client *rpc.Client, logger zerolog.Logger, concurrency int, batchDelay time.Duration) *History {
	if concurrency < 1 {
		concurrency = 4
	}
	return &History{
		client:      client,
		logger:      logger.With().Str("component", "history").Logger(),
		concurrency: concurrency,
		batchDelay:  batchDelay,
	}
}

// ListSignatures returns up to limit transaction signatures for the address,
// newest first, paging through the RPC in batches. A non-empty until bounds
// the walk: only signatures newer than it are returned, which is how a
// resumed pass skips history it already processed.
func (h *History) ListSignatures(ctx context.Context, address string, limit int, until string) ([]string, error) {
	var signatures []string
	before := ""

	for limit <= 0 || len(signatures) < limit {
		opts := map[string]interface{}{
			"limit":      signaturePageSize,
			"commitment": "confirmed",
		}
		if before != "" {
			opts["before"] = before
		}
		if until != "" {
			opts["until"] = until
		}

		result, err := h.client.Call(ctx, "getSignaturesForAddress", []interface{}{address, opts})
		if err != nil {
			return nil, fmt.Errorf("failed to list signatures for %s: %w", address, err)
		}
		if result == nil {
			break
		}

		var page []rawSignatureInfo
		if err := json.Unmarshal(result, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signature page: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, info := range page {
			signatures = append(signatures, info.Signature)
			if limit > 0 && len(signatures) >= limit {
				return signatures, nil
			}
		}

		if len(page) < signaturePageSize {
			break
		}
		before = page[len(page)-1].Signature
	}

	return signatures, nil
}

// GetTransaction fetches one transaction body. Returns (nil, nil) when the
// node has no record of the signature.
func (h *History) GetTransaction(ctx context.Context, signature string) (*models.TransactionRecord, error) {
	result, err := h.client.Call(ctx, "getTransaction", []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", signature, err)
	}
	if result == nil {
		return nil, nil
	}

	var raw rawTransaction
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction %s: %w", signature, err)
	}

	return raw.toRecord(signature), nil
}

// BulkResult is the outcome of one signature in a bulk fetch.
type BulkResult struct {
	Signature string
	Record    *models.TransactionRecord
	Err       error
}

// GetTransactionsInBulk fetches many transaction bodies under the bounded
// concurrency window with a small pause between windows. Failures are
// isolated per signature; the batch never aborts on one item.
func (h *History) GetTransactionsInBulk(ctx context.Context, signatures []string) []BulkResult {
	results := make([]BulkResult, len(signatures))

	for start := 0; start < len(signatures); start += h.concurrency {
		end := start + h.concurrency
		if end > len(signatures) {
			end = len(signatures)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				record, err := h.GetTransaction(gctx, signatures[i])
				results[i] = BulkResult{Signature: signatures[i], Record: record, Err: err}
				return nil // errors stay per-item
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			// Abandon remaining windows; completed results are kept.
			for i := end; i < len(signatures); i++ {
				results[i] = BulkResult{Signature: signatures[i], Err: ctx.Err()}
			}
			break
		}

		if end < len(signatures) && h.batchDelay > 0 {
			select {
			case <-time.After(h.batchDelay):
			case <-ctx.Done():
			}
		}
	}

	return results
}
