package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wnt/lptrack/internal/classifier"
	"github.com/wnt/lptrack/internal/config"
	"github.com/wnt/lptrack/internal/logger"
	"github.com/wnt/lptrack/internal/queue"
	"github.com/wnt/lptrack/internal/reconciler"
	"github.com/wnt/lptrack/internal/rpc"
	"github.com/wnt/lptrack/internal/services"
	"github.com/wnt/lptrack/internal/solana"
	"github.com/wnt/lptrack/internal/store"
	"github.com/wnt/lptrack/internal/valuation"
	"github.com/wnt/lptrack/internal/worker"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	seedWallets := flag.String("wallets", "", "Comma-separated wallets to queue at startup")
	signatureLimit := flag.Int("limit", 3000, "Maximum transactions to replay per wallet")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info().Msg("Starting lptrack")

	db, err := store.Connect(cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer queueClient.Close()

	rpcPool := rpc.NewPool(cfg.RPCEndpoints, appLogger)
	rpcClient := rpc.NewClient(rpcPool, appLogger)
	history := solana.NewHistory(rpcClient, appLogger, cfg.ValuationConcurrency, cfg.BatchDelay)

	pricer := valuation.NewPriceResolver(cfg.SOLPriceUSD)
	chain := valuation.NewChainReader(cfg.RPCEndpoints[0], appLogger)
	meteoraAPI := services.NewMeteoraClient(cfg.MeteoraAPIBaseURL)
	orchestrator := valuation.NewOrchestrator(
		valuation.DefaultStrategies(chain, meteoraAPI, pricer),
		cfg.ValuationConcurrency, cfg.BatchDelay, appLogger,
	)

	rec := reconciler.New(history, classifier.New(pricer), orchestrator,
		store.NewStore(db), *signatureLimit, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, wallet := range splitWallets(*seedWallets) {
		if err := queueClient.PushWallet(ctx, wallet, 0); err != nil {
			appLogger.Error().Err(err).Str("wallet", wallet).Msg("Failed to queue seed wallet")
		}
	}

	manager := worker.NewManager(cfg, queueClient, rpcPool, rec, appLogger)
	if err := manager.Start(); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to start worker manager")
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info().Str("port", cfg.MetricsPort).Msg("Serving metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	appLogger.Info().Msg("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Metrics server shutdown failed")
	}
	if err := manager.Stop(); err != nil {
		appLogger.Error().Err(err).Msg("Worker manager shutdown failed")
	}
	appLogger.Info().Msg("Shutdown complete")
}

func splitWallets(list string) []string {
	if list == "" {
		return nil
	}
	var wallets []string
	for _, wallet := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(wallet); trimmed != "" {
			wallets = append(wallets, trimmed)
		}
	}
	return wallets
}
