package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wnt/lptrack/internal/constants"
)

const (
	usdcMint    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	unknownMint = "UnknownMint111111111111111111111111111111111"
)

func TestResolve(t *testing.T) {
	resolver := NewPriceResolver(150)

	tests := []struct {
		name string
		mint string
		want float64
	}{
		{"stable is pegged", usdcMint, 1.0},
		{"native uses reference price", constants.WrappedSOL, 150},
		{"unknown defaults to 1", unknownMint, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.mint); got != tt.want {
				t.Errorf("Resolve(%s) = %f, want %f", tt.mint, got, tt.want)
			}
		})
	}
}

func TestLegPrices_StableLegAnchorsTheOther(t *testing.T) {
	resolver := NewPriceResolver(150)

	priceX, priceY := resolver.LegPrices(unknownMint, usdcMint, 200)
	assert.Equal(t, 200.0, priceX)
	assert.Equal(t, 1.0, priceY)

	priceX, priceY = resolver.LegPrices(usdcMint, unknownMint, 200)
	assert.Equal(t, 1.0, priceX)
	assert.InDelta(t, 0.005, priceY, 1e-12)
}

func TestLegPrices_NativeLegUsesReferencePrice(t *testing.T) {
	resolver := NewPriceResolver(150)

	priceX, priceY := resolver.LegPrices(constants.WrappedSOL, unknownMint, 0)
	assert.Equal(t, 150.0, priceX)
	assert.Equal(t, 1.0, priceY)

	priceX, priceY = resolver.LegPrices(unknownMint, constants.WrappedSOL, 0)
	assert.Equal(t, 1.0, priceX)
	assert.Equal(t, 150.0, priceY)
}

func TestLegPrices_ZeroPoolPriceDoesNotDivide(t *testing.T) {
	resolver := NewPriceResolver(150)

	_, priceY := resolver.LegPrices(usdcMint, unknownMint, 0)
	assert.Equal(t, 1.0, priceY)
}
