package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wnt/lptrack/internal/classifier"
	"github.com/wnt/lptrack/internal/config"
	"github.com/wnt/lptrack/internal/logger"
	"github.com/wnt/lptrack/internal/models"
	"github.com/wnt/lptrack/internal/reconciler"
	"github.com/wnt/lptrack/internal/rpc"
	"github.com/wnt/lptrack/internal/services"
	"github.com/wnt/lptrack/internal/solana"
	"github.com/wnt/lptrack/internal/utils"
	"github.com/wnt/lptrack/internal/valuation"
)

// walletscan runs a single reconciliation pass for one wallet and prints the
// result, without touching the database or the queue.
func main() {
	var walletAddress string
	var limit int
	flag.StringVar(&walletAddress, "wallet", "", "Wallet address to scan (required)")
	flag.IntVar(&limit, "limit", 3000, "Maximum number of transactions to process")
	flag.Parse()

	if walletAddress == "" {
		fmt.Println("Usage: walletscan -wallet <wallet_address> [-limit <number>]")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)

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

	rec := reconciler.New(history, classifier.New(pricer), orchestrator, nil, limit, appLogger)

	fmt.Printf("🔍 Scanning wallet: %s (limit %d)\n", walletAddress, limit)
	fmt.Println(strings.Repeat("=", 80))

	result, err := rec.Reconcile(context.Background(), walletAddress, "")
	if err != nil {
		log.Fatalf("❌ Reconciliation failed: %v", err)
	}

	kinds := make(map[string]int)
	for _, tx := range result.Classified {
		kinds[string(tx.Kind)]++
	}
	fmt.Printf("✅ Classified %d transactions\n", len(result.Classified))
	for kind, count := range kinds {
		fmt.Printf("   %-15s %d\n", kind, count)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Active positions: %d (plus %d unidentified opens)\n",
		len(result.Active), result.UnidentifiedOpens)
	for _, active := range result.Active {
		fmt.Printf("   %s x%d\n", active.Position, active.Multiplicity)
	}

	fmt.Println(strings.Repeat("=", 80))
	for _, v := range result.Valuations {
		rangeFlag := ""
		if v.OutOfRange {
			rangeFlag = " [out of range]"
		}
		fmt.Printf("💰 %s via %s: $%.2f (fees $%.2f)%s\n",
			v.Position, v.Source, v.TotalUSD, v.UnclaimedFees, rangeFlag)
		for _, errMsg := range v.Errors {
			fmt.Printf("   ⚠ %s\n", errMsg)
		}
	}
	fmt.Printf("Total value: $%.2f\n", result.TotalUSD)

	outOfRange := utils.Filter(result.Valuations, func(v *models.PositionValuation) bool {
		return v.OutOfRange
	})
	if len(outOfRange) > 0 {
		fmt.Printf("⚠ %d positions no longer earn fees\n", len(outOfRange))
	}

	if len(result.Errors) > 0 {
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("⚠ %d items failed during the pass:\n", len(result.Errors))
		for _, errMsg := range result.Errors {
			fmt.Printf("   %s\n", errMsg)
		}
	}
}
