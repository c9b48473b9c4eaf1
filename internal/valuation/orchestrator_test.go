package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/rpc"
)

type stubStrategy struct {
	name  string
	calls int
	fn    func(ref models.PositionRef) (*models.PositionValuation, error)
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) TryValue(_ context.Context, ref models.PositionRef) (*models.PositionValuation, error) {
	s.calls++
	return s.fn(ref)
}

func noDataStrategy(name string) *stubStrategy {
	return &stubStrategy{name: name, fn: func(models.PositionRef) (*models.PositionValuation, error) {
		return nil, rpc.ErrNoData
	}}
}

func newTestOrchestrator(strategies ...Strategy) *Orchestrator {
	return NewOrchestrator(strategies, 2, 0, zerolog.Nop())
}

func TestValue_FallbackOrder(t *testing.T) {
	// First three sources are empty; the bin-math source prices
	// X=1.2 at pool price 200 with a stable Y leg of 300.
	pricer := NewPriceResolver(150)
	first := noDataStrategy("indexed_accounts")
	second := noDataStrategy("token_accounts")
	third := noDataStrategy("protocol_api")
	fourth := &stubStrategy{name: "bin_math", fn: func(ref models.PositionRef) (*models.PositionValuation, error) {
		return buildValuation(pricer, ref.Position, "pool", unknownMint, usdcMint,
			1.2, 300, 0, 0, 200, "bin_math"), nil
	}}

	got := newTestOrchestrator(first, second, third, fourth).
		Value(context.Background(), models.PositionRef{Position: "pos-1"})

	require.NotNil(t, got)
	assert.InDelta(t, 540.0, got.TotalUSD, 1e-9)
	assert.Equal(t, "bin_math", got.Source)
	assert.Empty(t, got.Errors)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

func TestValue_TotalIsAlwaysSumOfLegs(t *testing.T) {
	pricer := NewPriceResolver(150)
	got := buildValuation(pricer, "pos", "pool", unknownMint, usdcMint, 3, 7, 0, 0, 2, "test")
	assert.InDelta(t, got.TokenX.ValueUSD+got.TokenY.ValueUSD, got.TotalUSD, 1e-12)
}

func TestValue_ExplicitZeroHaltsChain(t *testing.T) {
	// A source that confirms the position exists with zero value is
	// authoritative; later sources must not run.
	zero := &stubStrategy{name: "protocol_api", fn: func(ref models.PositionRef) (*models.PositionValuation, error) {
		return &models.PositionValuation{Position: ref.Position, Source: "protocol_api"}, nil
	}}
	later := noDataStrategy("bin_math")

	got := newTestOrchestrator(zero, later).
		Value(context.Background(), models.PositionRef{Position: "pos-1"})

	assert.Equal(t, 0.0, got.TotalUSD)
	assert.Equal(t, "protocol_api", got.Source)
	assert.Empty(t, got.Errors)
	assert.Equal(t, 0, later.calls)
}

func TestValue_AccumulatesSourceErrors(t *testing.T) {
	failing := &stubStrategy{name: "indexed_accounts", fn: func(models.PositionRef) (*models.PositionValuation, error) {
		return nil, errors.New("boom")
	}}
	pricer := NewPriceResolver(150)
	succeeding := &stubStrategy{name: "protocol_api", fn: func(ref models.PositionRef) (*models.PositionValuation, error) {
		return buildValuation(pricer, ref.Position, "pool", unknownMint, usdcMint,
			1, 1, 0, 0, 5, "protocol_api"), nil
	}}

	got := newTestOrchestrator(failing, succeeding).
		Value(context.Background(), models.PositionRef{Position: "pos-1"})

	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "indexed_accounts")
	assert.Contains(t, got.Errors[0], "boom")
	assert.Greater(t, got.TotalUSD, 0.0)
}

func TestValue_ExhaustedChainReportsErrors(t *testing.T) {
	failing := &stubStrategy{name: "protocol_api", fn: func(models.PositionRef) (*models.PositionValuation, error) {
		return nil, errors.New("upstream down")
	}}
	empty := noDataStrategy("bin_math")

	got := newTestOrchestrator(failing, empty).
		Value(context.Background(), models.PositionRef{Position: "pos-1"})

	assert.Equal(t, 0.0, got.TotalUSD)
	assert.Equal(t, "none", got.Source)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "upstream down")
}

func TestValueAll_PartialFailureIsolation(t *testing.T) {
	// Two of five positions hit a transient source failure; the batch
	// still returns five results in order.
	pricer := NewPriceResolver(150)
	flaky := &stubStrategy{name: "protocol_api", fn: func(ref models.PositionRef) (*models.PositionValuation, error) {
		if ref.Position == "pos-2" || ref.Position == "pos-4" {
			return nil, errors.New("transient failure")
		}
		return buildValuation(pricer, ref.Position, "pool", unknownMint, usdcMint,
			1, 1, 0, 0, 5, "protocol_api"), nil
	}}

	refs := []models.PositionRef{
		{Position: "pos-1"}, {Position: "pos-2"}, {Position: "pos-3"},
		{Position: "pos-4"}, {Position: "pos-5"},
	}
	results := newTestOrchestrator(flaky).ValueAll(context.Background(), refs)

	require.Len(t, results, 5)
	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, refs[i].Position, result.Position)
	}
	for _, i := range []int{1, 3} {
		assert.Equal(t, 0.0, results[i].TotalUSD)
		assert.NotEmpty(t, results[i].Errors)
	}
	for _, i := range []int{0, 2, 4} {
		assert.Greater(t, results[i].TotalUSD, 0.0)
		assert.Empty(t, results[i].Errors)
	}
}

func TestValueAll_CancellationKeepsCompletedResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pricer := NewPriceResolver(150)
	strategy := &stubStrategy{name: "protocol_api", fn: func(ref models.PositionRef) (*models.PositionValuation, error) {
		if ref.Position == "pos-2" {
			cancel()
		}
		return buildValuation(pricer, ref.Position, "pool", unknownMint, usdcMint,
			1, 1, 0, 0, 5, "protocol_api"), nil
	}}

	orchestrator := NewOrchestrator([]Strategy{strategy}, 1, time.Millisecond, zerolog.Nop())
	refs := []models.PositionRef{{Position: "pos-1"}, {Position: "pos-2"}, {Position: "pos-3"}}
	results := orchestrator.ValueAll(ctx, refs)

	require.Len(t, results, 3)
	assert.Greater(t, results[0].TotalUSD, 0.0)
	assert.NotEmpty(t, results[2].Errors)
}
