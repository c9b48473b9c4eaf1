package valuation

import (
	"context"
	"fmt"
	"math"
	"math/big"
)

// priceOfBin returns the ui price of token X denominated in token Y at the
// given bin, per the constant-ratio bin formula price = (1 + binStep/1e4)^bin.
func priceOfBin(binID int32, binStep uint16, decimalsX, decimalsY uint8) float64 {
	base := 1.0 + float64(binStep)/10000.0
	return math.Pow(base, float64(binID)) * pow10(decimalsX) / pow10(decimalsY)
}

// outOfRange reports whether the pool's active bin fell outside the
// position's bin span.
func outOfRange(activeBin, lowerBin, upperBin int32) bool {
	return activeBin < lowerBin || activeBin > upperBin
}

// binArrayIndex returns the index of the bin array holding binID. Bin ids
// can be negative, so this is a floor division.
func binArrayIndex(binID int32) int64 {
	id := int64(binID)
	index := id / binsPerArray
	if id%binsPerArray != 0 && id < 0 {
		index--
	}
	return index
}

// shareFraction returns share/supply as a float, 0 when the supply is empty.
func shareFraction(share, supply *big.Int) float64 {
	if supply.Sign() == 0 || share.Sign() == 0 {
		return 0
	}
	quotient := new(big.Float).Quo(new(big.Float).SetInt(share), new(big.Float).SetInt(supply))
	fraction, _ := quotient.Float64()
	return fraction
}

// binLiquidityAmounts walks every bin of the position's span, pro-rates each
// bin's reserves by the position's share of that bin's liquidity supply, and
// returns the summed raw token amounts.
func binLiquidityAmounts(ctx context.Context, reader *ChainReader, position *positionState) (rawX, rawY float64, err error) {
	arrays := make(map[int64][]binState)

	for binID := position.LowerBinID; binID <= position.UpperBinID; binID++ {
		index := binArrayIndex(binID)
		bins, ok := arrays[index]
		if !ok {
			bins, err = reader.BinArray(ctx, position.LbPair, index)
			if err != nil {
				return 0, 0, fmt.Errorf("bin array %d of pair %s: %w", index, position.LbPair, err)
			}
			arrays[index] = bins
		}

		local := int64(binID) - index*binsPerArray
		bin := bins[local]
		fraction := shareFraction(position.Shares[binID-position.LowerBinID], bin.LiquiditySupply)
		if fraction == 0 {
			continue
		}
		rawX += fraction * float64(bin.AmountX)
		rawY += fraction * float64(bin.AmountY)
	}

	return rawX, rawY, nil
}
