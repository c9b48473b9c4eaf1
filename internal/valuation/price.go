package valuation

import "github.com/wnt/lptrack/internal/constants"

// PriceResolver maps a mint to a USD unit price. It is an approximation, not
// a price feed: known stables are pegged at 1.0, the native asset uses the
// reference price supplied at construction, and everything else falls back to
// 1.0. Swapping in a real oracle only requires replacing this type.
type PriceResolver struct {
	solPriceUSD float64
}

// NewPriceResolver creates a resolver around a caller-supplied SOL/USD
// reference price.
func NewPriceResolver(solPriceUSD float64) *PriceResolver {
	return &PriceResolver{solPriceUSD: solPriceUSD}
}

// Resolve returns the USD unit price for a mint.
func (r *PriceResolver) Resolve(mint string) float64 {
	if constants.IsStable(mint) {
		return 1.0
	}
	if mint == constants.WrappedSOL {
		return r.solPriceUSD
	}
	return 1.0
}

// Symbol returns a display symbol for a mint when one is known.
func (r *PriceResolver) Symbol(mint string) string {
	if symbol, ok := constants.StableMints[mint]; ok {
		return symbol
	}
	if mint == constants.WrappedSOL {
		return "SOL"
	}
	return ""
}

// LegPrices derives per-leg USD prices for a pair given the pool's reported
// price of X denominated in Y. A stable leg anchors the other through the
// pool price; otherwise a native leg takes the reference price and the
// opposite leg defaults to 1.0.
func (r *PriceResolver) LegPrices(mintX, mintY string, poolPrice float64) (priceX, priceY float64) {
	switch {
	case constants.IsStable(mintY):
		priceY = 1.0
		priceX = poolPrice
	case constants.IsStable(mintX):
		priceX = 1.0
		priceY = 1.0
		if poolPrice > 0 {
			priceY = 1.0 / poolPrice
		}
	case mintX == constants.WrappedSOL:
		priceX = r.solPriceUSD
		priceY = 1.0
	case mintY == constants.WrappedSOL:
		priceY = r.solPriceUSD
		priceX = 1.0
	default:
		priceX = r.Resolve(mintX)
		priceY = r.Resolve(mintY)
	}
	return priceX, priceY
}
