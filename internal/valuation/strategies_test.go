package valuation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/rpc"
	"github.com/wnt/lptrack/internal/services"
)

// poolScanFixture serves one pool whose owner listing contains a single
// position worth $200 at default pricing.
func poolScanFixture(t *testing.T) *services.MeteoraClient {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/pair/pool-1/positions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([]services.UserPosition{{
			Address:      "pos-other",
			PairAddress:  "pool-1",
			TotalXAmount: 100,
			TotalYAmount: 100,
		}}))
	})
	mux.HandleFunc("/pair/pool-1", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(services.PairInfo{
			Address:      "pool-1",
			MintX:        "MintXAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			MintY:        "MintYBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
			CurrentPrice: 1,
		}))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return services.NewMeteoraClient(server.URL)
}

func TestPoolScan_RefusesRefsWithKnownPosition(t *testing.T) {
	scan := &poolScanStrategy{
		api:       poolScanFixture(t),
		pricer:    NewPriceResolver(150),
		seedPools: []string{"pool-1"},
	}

	// A ref that already carries a position identifier belongs to the
	// per-position strategies; answering it here would attribute the
	// wallet's other positions to this one.
	valuation, err := scan.TryValue(context.Background(),
		models.PositionRef{Wallet: "wallet-1", Position: "pos-known"})
	require.ErrorIs(t, err, rpc.ErrNoData)
	assert.Nil(t, valuation)
}

func TestPoolScan_AggregatesWalletLevelProbe(t *testing.T) {
	scan := &poolScanStrategy{
		api:       poolScanFixture(t),
		pricer:    NewPriceResolver(150),
		seedPools: []string{"pool-1"},
	}

	valuation, err := scan.TryValue(context.Background(),
		models.PositionRef{Wallet: "wallet-1"})
	require.NoError(t, err)
	assert.Equal(t, "pool_scan", valuation.Source)
	assert.Equal(t, "pool-1", valuation.Pool)
	assert.Equal(t, 200.0, valuation.TotalUSD)
}
