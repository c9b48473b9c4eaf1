package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wnt/lptrack/internal/metrics"
)

// Request is a JSON-RPC request envelope.
type Request struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Response is a JSON-RPC response envelope.
type Response struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *ResponseError  `json:"error"`
}

// ResponseError is the error object of a JSON-RPC response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client issues JSON-RPC calls over the endpoint pool, retrying rate-limit
// failures per the fixed policy.
type Client struct {
	pool    *Pool
	retrier Retrier
	logger  zerolog.Logger
}

// NewClient creates a JSON-RPC client on top of pool.
func NewClient(pool *Pool, logger zerolog.Logger) *Client {
	return &Client{
		pool:    pool,
		retrier: NewRetrier(),
		logger:  logger.With().Str("component", "rpc_client").Logger(),
	}
}

// Call performs one JSON-RPC method call and returns the raw result. A nil
// result with a nil error means the node had no data for the request.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	var result json.RawMessage

	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.callOnce(ctx, method, params)
		return callErr
	})
	if err != nil {
		metrics.RecordRPCRequest("failed")
		return nil, err
	}

	metrics.RecordRPCRequest("success")
	return result, nil
}

func (c *Client) callOnce(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	client, endpoint, err := c.pool.Pick(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get RPC endpoint: %w", err)
	}

	request := Request{
		Jsonrpc: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		c.pool.MarkUnhealthy(endpoint)
		metrics.RecordRPCRequest("error")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		c.pool.SetCooldown(endpoint, 5*time.Minute)
		metrics.RecordRPCRequest("rate_limited")
		return nil, fmt.Errorf("endpoint %s: status %d: %w", endpoint, resp.StatusCode, ErrRateLimited)
	}

	if resp.StatusCode != http.StatusOK {
		c.pool.MarkUnhealthy(endpoint)
		return nil, fmt.Errorf("unexpected status code from %s: %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var rpcResponse Response
	if err := json.Unmarshal(body, &rpcResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal RPC response: %w", err)
	}

	if rpcResponse.Error != nil {
		return nil, fmt.Errorf("RPC error from %s: code %d, message: %s",
			endpoint, rpcResponse.Error.Code, rpcResponse.Error.Message)
	}

	c.pool.MarkHealthy(endpoint)

	if len(rpcResponse.Result) == 0 || string(rpcResponse.Result) == "null" {
		return nil, nil
	}
	return rpcResponse.Result, nil
}
