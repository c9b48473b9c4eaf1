package valuation

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/wnt/lptrack/internal/constants"
	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/rpc"
	"github.com/wnt/lptrack/internal/services"
)

// buildValuation assembles a PositionValuation from resolved leg amounts.
// TotalUSD is always the sum of the two leg values.
func buildValuation(pricer *PriceResolver, position, pool, mintX, mintY string,
	amountX, amountY, feeX, feeY, poolPrice float64, source string) *models.PositionValuation {

	priceX, priceY := pricer.LegPrices(mintX, mintY, poolPrice)
	valuation := &models.PositionValuation{
		Position: position,
		Pool:     pool,
		TokenX: models.TokenLeg{
			Mint:     mintX,
			Symbol:   pricer.Symbol(mintX),
			Amount:   amountX,
			PriceUSD: priceX,
			ValueUSD: amountX * priceX,
		},
		TokenY: models.TokenLeg{
			Mint:     mintY,
			Symbol:   pricer.Symbol(mintY),
			Amount:   amountY,
			PriceUSD: priceY,
			ValueUSD: amountY * priceY,
		},
		UnclaimedFees: feeX*priceX + feeY*priceY,
		Source:        source,
	}
	valuation.TotalUSD = valuation.TokenX.ValueUSD + valuation.TokenY.ValueUSD
	return valuation
}

// binMathStrategy values a position from raw program state alone: the
// position account, its pair, and the bin arrays it spans. The only strategy
// that works when both the hosted API and the indexer are stale.
type binMathStrategy struct {
	chain  *ChainReader
	pricer *PriceResolver
}

func (s *binMathStrategy) Name() string { return "bin_math" }

func (s *binMathStrategy) TryValue(ctx context.Context, ref models.PositionRef) (*models.PositionValuation, error) {
	if ref.Position == "" {
		return nil, rpc.ErrNoData
	}
	address, err := solana.PublicKeyFromBase58(ref.Position)
	if err != nil {
		return nil, fmt.Errorf("position %q is not a valid address: %w", ref.Position, err)
	}
	state, err := s.chain.PositionState(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.valueFromState(ctx, state)
}

// valueFromState prices an already-decoded position account. Unclaimed fees
// are not derivable from principal bin state, so this path reports them as 0.
func (s *binMathStrategy) valueFromState(ctx context.Context, state *positionState) (*models.PositionValuation, error) {
	pair, err := s.chain.PairState(ctx, state.LbPair)
	if err != nil {
		return nil, err
	}
	decimalsX, err := s.chain.MintDecimals(ctx, pair.TokenXMint)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", pair.TokenXMint, err)
	}
	decimalsY, err := s.chain.MintDecimals(ctx, pair.TokenYMint)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", pair.TokenYMint, err)
	}

	rawX, rawY, err := binLiquidityAmounts(ctx, s.chain, state)
	if err != nil {
		return nil, err
	}

	poolPrice := priceOfBin(pair.ActiveBinID, pair.BinStep, decimalsX, decimalsY)
	valuation := buildValuation(s.pricer,
		state.Address.String(), state.LbPair.String(),
		pair.TokenXMint.String(), pair.TokenYMint.String(),
		rawX/pow10(decimalsX), rawY/pow10(decimalsY), 0, 0,
		poolPrice, s.Name())
	valuation.OutOfRange = outOfRange(pair.ActiveBinID, state.LowerBinID, state.UpperBinID)
	return valuation, nil
}

// indexedAccountsStrategy asks the accounts index for every position record
// owned by the wallet and prices the matching record from its raw state.
type indexedAccountsStrategy struct {
	chain   *ChainReader
	binMath *binMathStrategy
}

func (s *indexedAccountsStrategy) Name() string { return "indexed_accounts" }

func (s *indexedAccountsStrategy) TryValue(ctx context.Context, ref models.PositionRef) (*models.PositionValuation, error) {
	if ref.Wallet == "" || ref.Position == "" {
		return nil, rpc.ErrNoData
	}
	owner, err := solana.PublicKeyFromBase58(ref.Wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet %q is not a valid address: %w", ref.Wallet, err)
	}
	records, err := s.chain.PositionsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Address.String() == ref.Position {
			return s.binMath.valueFromState(ctx, record)
		}
	}
	return nil, rpc.ErrNoData
}

// directTokenStrategy reads the SPL token accounts owned by the position's
// own address and uses them as leg balances when both legs are present.
type directTokenStrategy struct {
	chain  *ChainReader
	pricer *PriceResolver
}

func (s *directTokenStrategy) Name() string { return "token_accounts" }

func (s *directTokenStrategy) TryValue(ctx context.Context, ref models.PositionRef) (*models.PositionValuation, error) {
	if ref.Position == "" {
		return nil, rpc.ErrNoData
	}
	address, err := solana.PublicKeyFromBase58(ref.Position)
	if err != nil {
		return nil, fmt.Errorf("position %q is not a valid address: %w", ref.Position, err)
	}
	state, err := s.chain.PositionState(ctx, address)
	if err != nil {
		return nil, err
	}
	pair, err := s.chain.PairState(ctx, state.LbPair)
	if err != nil {
		return nil, err
	}

	holdings, err := s.chain.TokenAccountsOwnedBy(ctx, address)
	if err != nil {
		return nil, err
	}

	var amountX, amountY float64
	var decimalsX, decimalsY uint8
	for _, holding := range holdings {
		switch holding.Mint {
		case pair.TokenXMint.String():
			amountX += holding.UIAmount
			decimalsX = holding.Decimals
		case pair.TokenYMint.String():
			amountY += holding.UIAmount
			decimalsY = holding.Decimals
		}
	}
	if amountX == 0 || amountY == 0 {
		return nil, rpc.ErrNoData
	}

	poolPrice := priceOfBin(pair.ActiveBinID, pair.BinStep, decimalsX, decimalsY)
	valuation := buildValuation(s.pricer,
		ref.Position, state.LbPair.String(),
		pair.TokenXMint.String(), pair.TokenYMint.String(),
		amountX, amountY, 0, 0, poolPrice, s.Name())
	valuation.OutOfRange = outOfRange(pair.ActiveBinID, state.LowerBinID, state.UpperBinID)
	return valuation, nil
}

// protocolAPIStrategy values a position through the hosted read API:
// position metadata, then the owner-scoped listing within its pair.
type protocolAPIStrategy struct {
	api    *services.MeteoraClient
	pricer *PriceResolver
}

func (s *protocolAPIStrategy) Name() string { return "protocol_api" }

func (s *protocolAPIStrategy) TryValue(ctx context.Context, ref models.PositionRef) (*models.PositionValuation, error) {
	if ref.Position == "" {
		return nil, rpc.ErrNoData
	}
	position, err := s.api.GetPosition(ctx, ref.Position)
	if err != nil {
		return nil, err
	}
	pair, err := s.api.GetPair(ctx, position.PairAddress)
	if err != nil {
		return nil, err
	}
	listing, err := s.api.GetUserPositionsInPair(ctx, position.PairAddress, position.Owner)
	if err != nil {
		return nil, err
	}

	for _, entry := range listing {
		if entry.Address != ref.Position {
			continue
		}
		valuation := buildValuation(s.pricer,
			ref.Position, position.PairAddress,
			pair.MintX, pair.MintY,
			entry.TotalXAmount, entry.TotalYAmount,
			entry.FeeXPending, entry.FeeYPending,
			pair.CurrentPrice, s.Name())
		valuation.OutOfRange = outOfRange(pair.ActiveBinID, entry.LowerBinID, entry.UpperBinID)
		valuation.DailyFeeYield = entry.DailyFeeYield
		return valuation, nil
	}
	return nil, rpc.ErrNoData
}

// poolScanStrategy is the wallet-level last resort: probe a candidate pool
// list for owner-scoped positions and aggregate whatever turns up. It only
// answers refs that carry no position identifier; valuing a known position
// from an aggregate over every position the wallet holds would attribute
// other positions' liquidity to it.
type poolScanStrategy struct {
	api       *services.MeteoraClient
	pricer    *PriceResolver
	seedPools []string
	topPools  int
}

func (s *poolScanStrategy) Name() string { return "pool_scan" }

func (s *poolScanStrategy) TryValue(ctx context.Context, ref models.PositionRef) (*models.PositionValuation, error) {
	if ref.Wallet == "" || ref.Position != "" {
		return nil, rpc.ErrNoData
	}

	pools := append([]string{}, s.seedPools...)
	if s.topPools > 0 {
		top, err := s.api.GetTopPairs(ctx, s.topPools)
		if err == nil {
			for _, pair := range top {
				pools = append(pools, pair.Address)
			}
		}
	}

	aggregate := &models.PositionValuation{
		Position: ref.Position,
		Source:   s.Name(),
	}
	found := false
	for _, pool := range pools {
		listing, err := s.api.GetUserPositionsInPair(ctx, pool, ref.Wallet)
		if err != nil {
			continue
		}
		pair, err := s.api.GetPair(ctx, pool)
		if err != nil {
			continue
		}
		for _, entry := range listing {
			hit := buildValuation(s.pricer, entry.Address, pool,
				pair.MintX, pair.MintY,
				entry.TotalXAmount, entry.TotalYAmount,
				entry.FeeXPending, entry.FeeYPending,
				pair.CurrentPrice, s.Name())
			if !found {
				aggregate.Pool = pool
				aggregate.TokenX = hit.TokenX
				aggregate.TokenY = hit.TokenY
				aggregate.OutOfRange = outOfRange(pair.ActiveBinID, entry.LowerBinID, entry.UpperBinID)
			} else {
				aggregate.TokenX.Amount += hit.TokenX.Amount
				aggregate.TokenX.ValueUSD += hit.TokenX.ValueUSD
				aggregate.TokenY.Amount += hit.TokenY.Amount
				aggregate.TokenY.ValueUSD += hit.TokenY.ValueUSD
			}
			aggregate.UnclaimedFees += hit.UnclaimedFees
			aggregate.DailyFeeYield += entry.DailyFeeYield
			found = true
		}
	}
	if !found {
		return nil, rpc.ErrNoData
	}
	aggregate.TotalUSD = aggregate.TokenX.ValueUSD + aggregate.TokenY.ValueUSD
	return aggregate, nil
}

// DefaultStrategies wires the production strategy chain in priority order.
func DefaultStrategies(chain *ChainReader, api *services.MeteoraClient, pricer *PriceResolver) []Strategy {
	binMath := &binMathStrategy{chain: chain, pricer: pricer}
	return []Strategy{
		&indexedAccountsStrategy{chain: chain, binMath: binMath},
		&directTokenStrategy{chain: chain, pricer: pricer},
		&protocolAPIStrategy{api: api, pricer: pricer},
		binMath,
		&poolScanStrategy{api: api, pricer: pricer, seedPools: constants.SeedPools, topPools: 10},
	}
}
