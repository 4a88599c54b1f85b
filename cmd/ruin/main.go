// Package main runs a Monte Carlo risk-of-ruin simulation over a stored
// trade ledger or a summary description of one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campaign-lab/internal/cli"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/observability"
	"campaign-lab/internal/ruin"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	runID := flag.String("run-id", "", "Stored run whose ledger is resampled")
	trades := flag.Int("trades", 0, "Summary mode: number of trades")
	winRate := flag.Float64("win-rate", 0, "Summary mode: win rate (0..1)")
	avgWin := flag.Float64("avg-win", 0, "Summary mode: average winning trade PnL pct")
	avgLoss := flag.Float64("avg-loss", 0, "Summary mode: average losing trade PnL pct (positive number)")
	positionPct := flag.Float64("position-pct", 1, "Summary mode: fraction of capital per trade")
	trials := flag.Int("trials", 5000, "Resampled trajectories")
	threshold := flag.Float64("threshold", 0.5, "Ruin when equity <= threshold * initial capital")
	capital := flag.Float64("capital", 10000, "Initial capital")
	seed := flag.Int64("seed", 1, "Simulation seed; same seed, same result")
	flag.Parse()

	logger := log.New(os.Stdout, "[ruin] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sim := ruin.New(ruin.Config{
		Trials:         *trials,
		RuinThreshold:  *threshold,
		InitialCapital: *capital,
		Seed:           *seed,
	})

	var result *ruin.Result
	switch {
	case *runID != "":
		stores, err := cli.OpenStores(ctx, *postgresDSN, "")
		if err != nil {
			logger.Fatalf("storage: %v", err)
		}
		defer stores.Close()

		tradePtrs, err := stores.Trades.GetByRunID(ctx, *runID)
		if err != nil {
			logger.Fatalf("load ledger %s: %v", *runID, err)
		}
		ledger := make([]domain.Trade, len(tradePtrs))
		for i, t := range tradePtrs {
			ledger[i] = *t
		}
		logger.Printf("Resampling %d trades from run %s", len(ledger), *runID)
		result = sim.FromLedger(ledger)

	case *trades > 0:
		result = sim.FromSummary(*trades, *winRate, *avgWin, *avgLoss, *positionPct)

	default:
		logger.Fatal("either -run-id or summary flags (-trades, -win-rate, ...) are required")
	}
	observability.RecordRuinSimulation(result.Indeterminate)

	fmt.Printf("Ruin simulation (%d trials, threshold %.0f%% of %.0f):\n",
		result.Trials, *threshold*100, *capital)
	if result.Indeterminate {
		fmt.Printf("  Risk of ruin:   indeterminate (no trades to resample; treated as %.2f)\n", result.RuinProbability)
		os.Exit(2)
	}
	fmt.Printf("  Risk of ruin:   %.4f\n", result.RuinProbability)
	fmt.Printf("  Drawdown p50:   %.2f%%\n", result.DrawdownP50)
	fmt.Printf("  Drawdown p95:   %.2f%%\n", result.DrawdownP95)
	fmt.Printf("  Drawdown p99:   %.2f%%\n", result.DrawdownP99)
	fmt.Printf("  Loss streak p50: %.0f\n", result.LossStreakP50)
	fmt.Printf("  Loss streak p95: %.0f\n", result.LossStreakP95)
	fmt.Printf("  Loss streak max: %d\n", result.LossStreakMax)
}
