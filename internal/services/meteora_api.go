package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wnt/lptrack/internal/rpc"
	"github.com/wnt/lptrack/internal/utils"
)

// MeteoraClient talks to the protocol's hosted read API. All endpoints are
// plain HTTP+JSON GETs; rate limits are retried with the standard policy.
type MeteoraClient struct {
	httpClient *utils.HTTPClient
	retrier    rpc.Retrier
}

// NewMeteoraClient creates a client for the Meteora public API.
func NewMeteoraClient(baseURL string) *MeteoraClient {
	return &MeteoraClient{
		httpClient: utils.NewHTTPClient(
			utils.WithBaseURL(baseURL),
			utils.WithDefaultHeaders(map[string]string{
				"Content-Type": "application/json",
			}),
		),
		retrier: rpc.NewRetrier(),
	}
}

// Position is the hosted API's view of a position.
type Position struct {
	Address            string  `json:"address"`
	PairAddress        string  `json:"pair_address"`
	Owner              string  `json:"owner"`
	TotalFeeUSDClaimed float64 `json:"total_fee_usd_claimed"`
	DailyFeeYield      float64 `json:"daily_fee_yield"`
	FeeApr24h          float64 `json:"fee_apr_24h"`
}

// PairInfo is the hosted API's view of a liquidity pair.
type PairInfo struct {
	Address        string  `json:"address"`
	Name           string  `json:"name"`
	MintX          string  `json:"mint_x"`
	MintY          string  `json:"mint_y"`
	BinStep        int32   `json:"bin_step"`
	ActiveBinID    int32   `json:"active_bin_id"`
	CurrentPrice   float64 `json:"current_price"`
	Liquidity      string  `json:"liquidity"`
	TradeVolume24h float64 `json:"trade_volume_24h"`
	Fees24h        float64 `json:"fees_24h"`
}

// UserPosition is one entry of an owner-scoped position listing in a pair.
type UserPosition struct {
	Address       string  `json:"address"`
	PairAddress   string  `json:"pair_address"`
	Owner         string  `json:"owner"`
	TotalXAmount  float64 `json:"total_x_amount"`
	TotalYAmount  float64 `json:"total_y_amount"`
	FeeXPending   float64 `json:"fee_x_pending"`
	FeeYPending   float64 `json:"fee_y_pending"`
	LowerBinID    int32   `json:"lower_bin_id"`
	UpperBinID    int32   `json:"upper_bin_id"`
	DailyFeeYield float64 `json:"daily_fee_yield"`
}

// PairPage is a paginated pair listing.
type PairPage struct {
	Pairs []PairInfo `json:"pairs"`
	Total int        `json:"total"`
}

// GetPosition fetches position metadata (pool, owner) by address.
func (c *MeteoraClient) GetPosition(ctx context.Context, positionAddress string) (*Position, error) {
	var position Position
	path := fmt.Sprintf("/position_v2/%s", positionAddress)
	if err := c.getJSON(ctx, path, nil, &position); err != nil {
		return nil, err
	}
	return &position, nil
}

// GetPair fetches a single pair by address.
func (c *MeteoraClient) GetPair(ctx context.Context, pairAddress string) (*PairInfo, error) {
	var pair PairInfo
	path := fmt.Sprintf("/pair/%s", pairAddress)
	if err := c.getJSON(ctx, path, nil, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// GetUserPositionsInPair lists the owner's positions within one pair.
func (c *MeteoraClient) GetUserPositionsInPair(ctx context.Context, pairAddress, owner string) ([]UserPosition, error) {
	var positions []UserPosition
	path := fmt.Sprintf("/pair/%s/positions", pairAddress)
	params := map[string]string{"owner": owner}
	if err := c.getJSON(ctx, path, params, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetTopPairs fetches the highest-liquidity pairs, used to extend the seeded
// pool list of the pool-scan fallback.
func (c *MeteoraClient) GetTopPairs(ctx context.Context, limit int) ([]PairInfo, error) {
	var page PairPage
	params := map[string]string{
		"sort_key": "tvl",
		"order_by": "desc",
		"limit":    strconv.Itoa(limit),
	}
	if err := c.getJSON(ctx, "/pair/all_with_pagination", params, &page); err != nil {
		return nil, err
	}
	return page.Pairs, nil
}

// getJSON performs one GET with retry-on-rate-limit, mapping 404 to
// rpc.ErrNoData and 429 to rpc.ErrRateLimited.
func (c *MeteoraClient) getJSON(ctx context.Context, path string, params map[string]string, target interface{}) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		response, err := c.httpClient.Get(ctx, path, params)
		if err != nil {
			var httpErr *utils.Error
			if errors.As(err, &httpErr) {
				switch httpErr.StatusCode {
				case http.StatusNotFound:
					return rpc.ErrNoData
				case http.StatusTooManyRequests, http.StatusServiceUnavailable:
					return fmt.Errorf("meteora API %s: %w", path, rpc.ErrRateLimited)
				}
			}
			return fmt.Errorf("meteora API %s: %w", path, err)
		}

		if err := response.DecodeJSON(target); err != nil {
			return fmt.Errorf("meteora API %s: malformed payload: %w", path, err)
		}
		return nil
	})
}
