package valuation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wnt/lptrack/internal/logger"
	"github.com/wnt/lptrack/internal/metrics"
	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/rpc"
)

// Strategy is one way of valuing a position. A nil valuation with ErrNoData
// means the source had nothing; any other error is a real source failure. A
// non-nil valuation is authoritative, including one with zero value (the
// position exists and is empty).
type Strategy interface {
	Name() string
	TryValue(ctx context.Context, ref models.PositionRef) (*models.PositionValuation, error)
}

// Orchestrator chains valuation strategies in fixed priority order and
// batch-values position sets with bounded concurrency.
type Orchestrator struct {
	strategies  []Strategy
	concurrency int
	batchDelay  time.Duration
	logger      zerolog.Logger
}

// NewOrchestrator creates an orchestrator over an ordered strategy chain.
func NewOrchestrator(strategies []Strategy, concurrency int, batchDelay time.Duration, logger zerolog.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Orchestrator{
		strategies:  strategies,
		concurrency: concurrency,
		batchDelay:  batchDelay,
		logger:      logger.With().Str("component", "valuation").Logger(),
	}
}

// Value runs the strategy chain for one position. It never returns nil: when
// every strategy comes up empty the result carries a zero total and the
// accumulated source errors, so callers can tell "could not determine" from
// "legitimately empty".
func (o *Orchestrator) Value(ctx context.Context, ref models.PositionRef) *models.PositionValuation {
	var sourceErrors []string
	log := logger.WithPosition(o.logger, ref.Position)

	for _, strategy := range o.strategies {
		if ctx.Err() != nil {
			sourceErrors = append(sourceErrors, ctx.Err().Error())
			break
		}

		valuation, err := strategy.TryValue(ctx, ref)
		if err != nil {
			if errors.Is(err, rpc.ErrNoData) {
				log.Debug().Str("strategy", strategy.Name()).Msg("strategy had no data")
				continue
			}
			sourceErrors = append(sourceErrors, fmt.Sprintf("%s: %v", strategy.Name(), err))
			log.Warn().Err(err).Str("strategy", strategy.Name()).Msg("valuation strategy failed")
			continue
		}
		if valuation == nil {
			continue
		}

		valuation.Errors = append(sourceErrors, valuation.Errors...)
		metrics.RecordValuation(strategy.Name(), "success")
		log.Debug().Str("strategy", strategy.Name()).
			Float64("total_usd", valuation.TotalUSD).Msg("position valued")
		return valuation
	}

	metrics.RecordValuation("none", "failed")
	return &models.PositionValuation{
		Position: ref.Position,
		Pool:     ref.Pool,
		Source:   "none",
		Errors:   sourceErrors,
	}
}

// ValueAll values every position with a bounded concurrency window and a
// small delay between windows. Failures stay isolated per item; the result
// slice always matches refs in length and order.
func (o *Orchestrator) ValueAll(ctx context.Context, refs []models.PositionRef) []*models.PositionValuation {
	results := make([]*models.PositionValuation, len(refs))

	for start := 0; start < len(refs); start += o.concurrency {
		end := start + o.concurrency
		if end > len(refs) {
			end = len(refs)
		}

		if ctx.Err() != nil {
			for i := start; i < len(refs); i++ {
				results[i] = &models.PositionValuation{
					Position: refs[i].Position,
					Pool:     refs[i].Pool,
					Source:   "none",
					Errors:   []string{ctx.Err().Error()},
				}
			}
			return results
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			group.Go(func() error {
				results[i] = o.Value(groupCtx, refs[i])
				return nil
			})
		}
		_ = group.Wait()

		if end < len(refs) && o.batchDelay > 0 {
			select {
			case <-time.After(o.batchDelay):
			case <-ctx.Done():
			}
		}
	}

	return results
}
