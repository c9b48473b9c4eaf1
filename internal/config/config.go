package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for lptrack
type Config struct {
	// Redis configuration
	RedisURL string

	// Database configuration
	DBName     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBPort     string
	DBSSLMode  string

	// RPC configuration
	RPCEndpoints []string

	// Meteora hosted API
	MeteoraAPIBaseURL string

	// Reference price for the native asset, supplied by the operator. The
	// core never fetches a SOL/USD quote itself.
	SOLPriceUSD float64

	// Worker configuration
	MinWorkers int
	MaxWorkers int

	// Valuation batch window
	ValuationConcurrency int
	BatchDelay           time.Duration

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		DBName:            getEnv("DB_NAME", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MeteoraAPIBaseURL: getEnv("METEORA_API_BASE_URL", "https://dlmm-api.meteora.ag"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MetricsPort:       getEnv("METRICS_PORT", "9100"),
	}

	rpcEndpointsStr := getEnv("RPC_ENDPOINTS", "")
	if rpcEndpointsStr == "" {
		return cfg, fmt.Errorf("RPC_ENDPOINTS environment variable is required")
	}
	cfg.RPCEndpoints = strings.Split(rpcEndpointsStr, ",")
	for i, endpoint := range cfg.RPCEndpoints {
		cfg.RPCEndpoints[i] = strings.TrimSpace(endpoint)
	}

	var err error
	cfg.SOLPriceUSD, err = parseFloatEnv("SOL_PRICE_USD", 0)
	if err != nil {
		return cfg, fmt.Errorf("invalid SOL_PRICE_USD: %w", err)
	}

	cfg.MinWorkers, err = parseIntEnv("MIN_WORKERS", 2)
	if err != nil {
		return cfg, fmt.Errorf("invalid MIN_WORKERS: %w", err)
	}

	cfg.MaxWorkers, err = parseIntEnv("MAX_WORKERS", 20)
	if err != nil {
		return cfg, fmt.Errorf("invalid MAX_WORKERS: %w", err)
	}

	cfg.ValuationConcurrency, err = parseIntEnv("VALUATION_CONCURRENCY", 4)
	if err != nil {
		return cfg, fmt.Errorf("invalid VALUATION_CONCURRENCY: %w", err)
	}

	batchDelayMs, err := parseIntEnv("BATCH_DELAY_MS", 100)
	if err != nil {
		return cfg, fmt.Errorf("invalid BATCH_DELAY_MS: %w", err)
	}
	cfg.BatchDelay = time.Duration(batchDelayMs) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}

	if c.SOLPriceUSD < 0 {
		return fmt.Errorf("SOL_PRICE_USD must not be negative")
	}

	if c.MinWorkers < 1 {
		return fmt.Errorf("MIN_WORKERS must be at least 1")
	}

	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	}

	if c.ValuationConcurrency < 1 || c.ValuationConcurrency > 16 {
		return fmt.Errorf("VALUATION_CONCURRENCY must be between 1 and 16")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

// parseFloatEnv parses a float environment variable with a default value
func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}
