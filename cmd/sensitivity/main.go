// Package main sweeps a parameter grid through the backtest engine and
// prints which parameters dominate the target metric, plus the safe
// value ranges that satisfy the score and drawdown bounds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"campaign-lab/internal/allocation"
	"campaign-lab/internal/cli"
	"campaign-lab/internal/config"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/observability"
	"campaign-lab/internal/sensitivity"
	"campaign-lab/internal/strategy"
)

func main() {
	configPath := flag.String("config", "campaign.yaml", "YAML config file (defaults apply when absent)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	barsCSV := flag.String("bars-csv", "", "Bar series CSV (bypasses the bar store)")
	asset := flag.String("asset", "", "Asset symbol (overrides config)")
	venue := flag.String("venue", "", "Venue identifier (overrides config)")
	interval := flag.String("interval", "1d", "Bar interval")
	gridSpec := flag.String("grid", "", "Sweep grid, e.g. breakout.lookback=20,30,40;risk.stop_loss_pct=5,10,15")
	target := flag.String("target", sensitivity.TargetCalmar, "Target metric: calmar, sharpe, cagr, or total_return")
	workers := flag.Int("workers", 0, "Concurrent evaluations (0 = default)")
	seed := flag.Int64("seed", 1, "Bootstrap seed")
	minScore := flag.Float64("min-score", 1.0, "Safe-zone floor on the target metric")
	ddCeiling := flag.Float64("dd-ceiling", 25, "Safe-zone ceiling on realistic max drawdown pct")
	flag.Parse()

	logger := log.New(os.Stdout, "[sensitivity] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("config: %v (continuing on defaults)", err)
	}
	if *asset == "" {
		*asset = cfg.Asset
	}
	if *venue == "" {
		*venue = cfg.Venue
	}

	grid, err := cli.ParseGrid(*gridSpec)
	if err != nil {
		logger.Fatalf("grid: %v", err)
	}
	if len(grid) == 0 {
		logger.Fatal("a non-empty -grid is required")
	}
	logger.Printf("Sweeping %d combinations over %d parameters", grid.Size(), len(grid))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling sweep...\n", sig)
		cancel()
	}()

	bars, err := loadBars(ctx, *barsCSV, *postgresDSN, *clickhouseDSN, *asset, *venue, *interval)
	if err != nil {
		logger.Fatalf("bars: %v", err)
	}
	if len(bars) == 0 {
		logger.Fatal("no bars to sweep over")
	}

	base := cfg.StrategyParams()
	signalFn, err := strategy.FromParams(base)
	if err != nil {
		logger.Fatalf("strategy: %v", err)
	}

	runner := sensitivity.NewRunner(sensitivity.Config{
		Workers:      *workers,
		TargetMetric: *target,
		Engine: engine.Config{
			Asset:     *asset,
			Venue:     *venue,
			Costs:     cfg.CostModel(),
			Playbooks: cfg.PlaybookSet(),
			Allocator: allocation.New(cfg.AllocatorConfig()),
		},
	})

	table, err := runner.Run(ctx, bars, base, grid, signalFn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sweep error: %v\n", err)
		os.Exit(1)
	}
	observability.DefaultMetrics.SensitivityCells.Add(float64(len(table.Rows)))

	printDominance(table, grid, *seed)
	printSafeZones(table, grid, *minScore, *ddCeiling)
}

// loadBars reads the series either from a CSV fixture or from the
// configured bar store.
func loadBars(ctx context.Context, csvPath, postgresDSN, clickhouseDSN, asset, venue, interval string) ([]domain.PriceBar, error) {
	if csvPath != "" {
		return cli.LoadBarsCSV(csvPath)
	}

	stores, err := cli.OpenStores(ctx, postgresDSN, clickhouseDSN)
	if err != nil {
		return nil, err
	}
	defer stores.Close()
	return stores.Bars.GetSeries(ctx, asset, venue, interval, 0, math.MaxInt64)
}

func printDominance(table *sensitivity.Table, grid sensitivity.Grid, seed int64) {
	fmt.Printf("Dominance on %s:\n", table.Target)
	for _, effect := range table.Dominance(grid, seed) {
		valid := ""
		if !effect.Valid {
			valid = " (insufficient rows)"
		}
		fmt.Printf("  %-28s F=%8.3f  p=%.4f  corr=%+.3f%s\n",
			effect.Name, effect.FStatistic, effect.PValue, effect.Correlation, valid)
		for _, v := range effect.Effects {
			fmt.Printf("    %8.3g -> mean %.3f  [%.3f, %.3f]  (%d rows)\n",
				v.Value, v.MeanMetric, v.CILow, v.CIHigh, v.Rows)
		}
	}
}

func printSafeZones(table *sensitivity.Table, grid sensitivity.Grid, minScore, ddCeiling float64) {
	zones := table.SafeZones(grid, minScore, ddCeiling)
	if len(zones) == 0 {
		fmt.Printf("Safe zones (%s >= %.2f, drawdown <= %.1f%%): none\n", table.Target, minScore, ddCeiling)
		return
	}
	fmt.Printf("Safe zones (%s >= %.2f, drawdown <= %.1f%%, %d combinations):\n",
		table.Target, minScore, ddCeiling, zones[0].Combinations)
	for _, z := range zones {
		fmt.Printf("  %-28s [%.4g, %.4g]\n", z.Name, z.Low, z.High)
	}
}
