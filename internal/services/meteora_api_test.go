package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/lptrack/internal/rpc"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *MeteoraClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewMeteoraClient(server.URL)
	client.retrier = rpc.Retrier{MaxRetries: 1, BaseDelay: time.Millisecond}
	return server, client
}

func TestGetPosition(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/position_v2/pos-1", r.URL.Path)
		w.Write([]byte(`{"address":"pos-1","pair_address":"pair-1","owner":"wallet-1","daily_fee_yield":0.42}`))
	})

	position, err := client.GetPosition(context.Background(), "pos-1")
	require.NoError(t, err)
	assert.Equal(t, "pair-1", position.PairAddress)
	assert.Equal(t, "wallet-1", position.Owner)
	assert.Equal(t, 0.42, position.DailyFeeYield)
}

func TestGetPosition_NotFoundIsNoData(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetPosition(context.Background(), "missing")
	assert.ErrorIs(t, err, rpc.ErrNoData)
}

func TestGetUserPositionsInPair_PassesOwnerQuery(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pair/pair-1/positions", r.URL.Path)
		assert.Equal(t, "wallet-1", r.URL.Query().Get("owner"))
		w.Write([]byte(`[{"address":"pos-1","total_x_amount":1.5,"total_y_amount":30,"lower_bin_id":10,"upper_bin_id":40}]`))
	})

	positions, err := client.GetUserPositionsInPair(context.Background(), "pair-1", "wallet-1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 1.5, positions[0].TotalXAmount)
	assert.Equal(t, int32(40), positions[0].UpperBinID)
}

func TestGetTopPairs(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pair/all_with_pagination", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"pairs":[{"address":"pair-1","mint_x":"X","mint_y":"Y","current_price":200}],"total":1}`))
	})

	pairs, err := client.GetTopPairs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 200.0, pairs[0].CurrentPrice)
}

func TestGetPair_RetriesRateLimit(t *testing.T) {
	var calls int
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"address":"pair-1","active_bin_id":50,"bin_step":20}`))
	})

	pair, err := client.GetPair(context.Background(), "pair-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(50), pair.ActiveBinID)
}

func TestGetPair_MalformedPayload(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.GetPair(context.Background(), "pair-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed payload")
}
