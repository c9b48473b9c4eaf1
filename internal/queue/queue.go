package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	walletQueueKey    = "lptrack:wallet_queue"
	walletInFlightKey = "lptrack:wallet_inflight"
	walletCursorKey   = "lptrack:wallet_cursor"
)

// Client wraps the Redis operations behind wallet scheduling: a priority
// queue of wallets awaiting reconciliation, in-flight tracking for crash
// recovery, and per-wallet resume cursors.
type Client struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewClient connects to Redis and verifies the connection.
func NewClient(redisURL string, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		client: client,
		logger: logger.With().Str("component", "queue").Logger(),
	}, nil
}

// PopWallet removes and returns the wallet with the lowest score (highest
// priority). Returns "" when the queue is empty.
func (c *Client) PopWallet(ctx context.Context) (string, error) {
	result, err := c.client.ZPopMin(ctx, walletQueueKey, 1).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to pop wallet from queue: %w", err)
	}
	if len(result) == 0 {
		return "", nil
	}

	wallet := result[0].Member.(string)
	c.logger.Debug().Str("wallet", wallet).Msg("Popped wallet from queue")
	return wallet, nil
}

// PushWallet queues a wallet for reconciliation at the given priority.
func (c *Client) PushWallet(ctx context.Context, addr string, priority float64) error {
	err := c.client.ZAdd(ctx, walletQueueKey, redis.Z{
		Score:  priority,
		Member: addr,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to push wallet to queue: %w", err)
	}

	c.logger.Debug().
		Str("wallet", addr).
		Float64("priority", priority).
		Msg("Pushed wallet to queue")

	return nil
}

// SetInFlight marks a wallet as being reconciled by a worker.
func (c *Client) SetInFlight(ctx context.Context, addr, worker string) error {
	value := fmt.Sprintf("%s,%d", worker, time.Now().Unix())
	if err := c.client.HSet(ctx, walletInFlightKey, addr, value).Err(); err != nil {
		return fmt.Errorf("failed to set wallet in-flight: %w", err)
	}
	return nil
}

// RemoveInFlight clears a wallet's in-flight marker.
func (c *Client) RemoveInFlight(ctx context.Context, addr string) error {
	if err := c.client.HDel(ctx, walletInFlightKey, addr).Err(); err != nil {
		return fmt.Errorf("failed to remove wallet from in-flight: %w", err)
	}
	return nil
}

// GetCursor retrieves the newest signature already reconciled for a wallet,
// or "" when the wallet has never completed a pass.
func (c *Client) GetCursor(ctx context.Context, addr string) (string, error) {
	result, err := c.client.HGet(ctx, walletCursorKey, addr).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get wallet cursor: %w", err)
	}
	return result, nil
}

// SetCursor records the newest signature processed for a wallet.
func (c *Client) SetCursor(ctx context.Context, addr, sig string) error {
	if err := c.client.HSet(ctx, walletCursorKey, addr, sig).Err(); err != nil {
		return fmt.Errorf("failed to set wallet cursor: %w", err)
	}
	return nil
}

// GetQueueLength returns the number of queued wallets.
func (c *Client) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := c.client.ZCard(ctx, walletQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetInFlightWallets returns every wallet currently marked in-flight with
// its "worker,startUnix" value.
func (c *Client) GetInFlightWallets(ctx context.Context) (map[string]string, error) {
	result, err := c.client.HGetAll(ctx, walletInFlightKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight wallets: %w", err)
	}
	return result, nil
}

// RequeueStuckWallets moves wallets that have been in-flight past the
// timeout back onto the queue, e.g. after a worker crash.
func (c *Client) RequeueStuckWallets(ctx context.Context, timeout time.Duration) error {
	inFlight, err := c.GetInFlightWallets(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-timeout).Unix()
	requeued := 0

	for wallet, value := range inFlight {
		worker, startTime, ok := parseInFlight(value)
		if !ok {
			c.logger.Warn().Str("wallet", wallet).Str("value", value).Msg("Invalid in-flight value format")
			continue
		}
		if startTime >= cutoff {
			continue
		}

		if err := c.PushWallet(ctx, wallet, 0); err != nil {
			c.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to requeue stuck wallet")
			continue
		}
		if err := c.RemoveInFlight(ctx, wallet); err != nil {
			c.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to remove requeued wallet from in-flight")
		}

		requeued++
		c.logger.Info().
			Str("wallet", wallet).
			Str("worker", worker).
			Int64("stuck_minutes", (time.Now().Unix()-startTime)/60).
			Msg("Requeued stuck wallet")
	}

	if requeued > 0 {
		c.logger.Info().Int("count", requeued).Msg("Requeued stuck wallets")
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// parseInFlight splits the "worker,startUnix" in-flight value.
func parseInFlight(value string) (worker string, startTime int64, ok bool) {
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	startTime, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return parts[0], startTime, true
}
