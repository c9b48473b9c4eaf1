package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"REDIS_URL":             os.Getenv("REDIS_URL"),
		"RPC_ENDPOINTS":         os.Getenv("RPC_ENDPOINTS"),
		"METEORA_API_BASE_URL":  os.Getenv("METEORA_API_BASE_URL"),
		"SOL_PRICE_USD":         os.Getenv("SOL_PRICE_USD"),
		"MIN_WORKERS":           os.Getenv("MIN_WORKERS"),
		"MAX_WORKERS":           os.Getenv("MAX_WORKERS"),
		"VALUATION_CONCURRENCY": os.Getenv("VALUATION_CONCURRENCY"),
		"BATCH_DELAY_MS":        os.Getenv("BATCH_DELAY_MS"),
		"LOG_LEVEL":             os.Getenv("LOG_LEVEL"),
		"METRICS_PORT":          os.Getenv("METRICS_PORT"),
	}

	// Restore env vars after test
	defer func() {
		for key, value := range originalVars {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	t.Run("successful load with all required vars", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com,https://rpc.ankr.com/solana")
		os.Setenv("METEORA_API_BASE_URL", "https://dlmm-api.meteora.ag")
		os.Setenv("SOL_PRICE_USD", "150.5")
		os.Setenv("MIN_WORKERS", "2")
		os.Setenv("MAX_WORKERS", "10")
		os.Setenv("VALUATION_CONCURRENCY", "5")
		os.Setenv("BATCH_DELAY_MS", "50")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("METRICS_PORT", "9090")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, []string{"https://api.mainnet-beta.solana.com", "https://rpc.ankr.com/solana"}, cfg.RPCEndpoints)
		assert.Equal(t, "https://dlmm-api.meteora.ag", cfg.MeteoraAPIBaseURL)
		assert.Equal(t, 150.5, cfg.SOLPriceUSD)
		assert.Equal(t, 2, cfg.MinWorkers)
		assert.Equal(t, 10, cfg.MaxWorkers)
		assert.Equal(t, 5, cfg.ValuationConcurrency)
		assert.Equal(t, 50*time.Millisecond, cfg.BatchDelay)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "9090", cfg.MetricsPort)
	})

	t.Run("missing RPC endpoints", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("RPC_ENDPOINTS")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "RPC_ENDPOINTS environment variable is required")
	})

	t.Run("invalid worker configuration", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
		os.Setenv("MIN_WORKERS", "10")
		os.Setenv("MAX_WORKERS", "2")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	})

	t.Run("valuation concurrency out of range", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
		os.Setenv("MIN_WORKERS", "2")
		os.Setenv("MAX_WORKERS", "10")
		os.Setenv("VALUATION_CONCURRENCY", "64")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "VALUATION_CONCURRENCY must be between 1 and 16")
	})

	t.Run("endpoints are trimmed", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RPC_ENDPOINTS", " https://a.example.com , https://b.example.com ")
		os.Setenv("MIN_WORKERS", "2")
		os.Setenv("MAX_WORKERS", "10")
		os.Setenv("VALUATION_CONCURRENCY", "4")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPCEndpoints)
	})

	t.Run("invalid log level", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
		os.Setenv("MIN_WORKERS", "2")
		os.Setenv("MAX_WORKERS", "10")
		os.Setenv("VALUATION_CONCURRENCY", "4")
		os.Setenv("LOG_LEVEL", "verbose")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid LOG_LEVEL")
	})
}
