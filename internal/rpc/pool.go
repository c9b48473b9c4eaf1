package rpc

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/lptrack/internal/metrics"
	"golang.org/x/time/rate"
)

// Pool manages a set of RPC endpoints with round-robin selection, per-endpoint
// rate limiting and health tracking.
type Pool struct {
	endpoints []*Endpoint
	current   int
	mutex     sync.Mutex
	logger    zerolog.Logger
}

// Endpoint is a single RPC endpoint with its own rate limiter.
type Endpoint struct {
	URL           string
	client        *http.Client
	limiter       *rate.Limiter
	healthy       bool
	cooldownUntil time.Time
	mutex         sync.RWMutex
}

// NewPool creates a new RPC pool with the given endpoints.
func NewPool(urls []string, logger zerolog.Logger) *Pool {
	endpoints := make([]*Endpoint, len(urls))

	for i, url := range urls {
		endpoints[i] = &Endpoint{
			URL: url,
			client: &http.Client{
				Timeout: 30 * time.Second,
			},
			// ~2 req/s per endpoint keeps us under free-tier limits
			limiter: rate.NewLimiter(rate.Limit(2.0), 5),
			healthy: true,
		}
		metrics.SetRPCEndpointHealth(url, true)
	}

	return &Pool{
		endpoints: endpoints,
		current:   rand.Intn(len(endpoints)),
		logger:    logger.With().Str("component", "rpc_pool").Logger(),
	}
}

// Pick returns the next available endpoint using round-robin, skipping
// unhealthy or cooling-down endpoints. When every endpoint is rate limited it
// waits for the first one to free up, honoring ctx.
func (p *Pool) Pick(ctx context.Context) (*http.Client, string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	startIndex := p.current
	for attempts := 0; attempts < len(p.endpoints); attempts++ {
		endpoint := p.endpoints[p.current]
		p.current = (p.current + 1) % len(p.endpoints)

		endpoint.mutex.RLock()
		usable := endpoint.healthy && time.Now().After(endpoint.cooldownUntil)
		endpoint.mutex.RUnlock()

		if !usable {
			continue
		}
		if endpoint.limiter.Allow() {
			return endpoint.client, endpoint.URL, nil
		}
	}

	// Everything is rate limited or unhealthy; wait on the starting endpoint.
	endpoint := p.endpoints[startIndex]
	p.logger.Debug().Str("endpoint", endpoint.URL).Msg("All endpoints busy, waiting for availability")

	reservation := endpoint.limiter.Reserve()
	if !reservation.OK() {
		return nil, "", fmt.Errorf("rate limiter failed to make reservation")
	}

	if delay := reservation.Delay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			reservation.Cancel()
			return nil, "", ctx.Err()
		}
	}

	return endpoint.client, endpoint.URL, nil
}

// MarkUnhealthy marks an endpoint as unhealthy.
func (p *Pool) MarkUnhealthy(url string) {
	p.setHealth(url, false)
}

// MarkHealthy marks an endpoint as healthy and clears any cooldown.
func (p *Pool) MarkHealthy(url string) {
	p.setHealth(url, true)
}

func (p *Pool) setHealth(url string, healthy bool) {
	for _, endpoint := range p.endpoints {
		if endpoint.URL != url {
			continue
		}
		endpoint.mutex.Lock()
		endpoint.healthy = healthy
		if healthy {
			endpoint.cooldownUntil = time.Time{}
		}
		endpoint.mutex.Unlock()

		metrics.SetRPCEndpointHealth(url, healthy)
		if !healthy {
			p.logger.Warn().Str("endpoint", url).Msg("Marked endpoint as unhealthy")
		}
		return
	}
}

// SetCooldown parks an endpoint for the given duration after a rate limit.
func (p *Pool) SetCooldown(url string, duration time.Duration) {
	for _, endpoint := range p.endpoints {
		if endpoint.URL != url {
			continue
		}
		endpoint.mutex.Lock()
		endpoint.cooldownUntil = time.Now().Add(duration)
		endpoint.mutex.Unlock()

		p.logger.Warn().
			Str("endpoint", url).
			Dur("duration", duration).
			Msg("Set endpoint cooldown")
		return
	}
}

// HealthyEndpointCount returns the number of endpoints currently usable.
func (p *Pool) HealthyEndpointCount() int {
	count := 0
	for _, endpoint := range p.endpoints {
		endpoint.mutex.RLock()
		if endpoint.healthy && time.Now().After(endpoint.cooldownUntil) {
			count++
		}
		endpoint.mutex.RUnlock()
	}
	return count
}
