// Package main runs a single backtest over a bar series, persists the
// trade ledger and dual equity curve, and optionally exports the
// content-addressed artifacts. The stored run is what cmd/monitor
// watches and cmd/verify replays.
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
	"campaign-lab/internal/artifact"
	"campaign-lab/internal/cli"
	"campaign-lab/internal/config"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/idhash"
	"campaign-lab/internal/observability"
	"campaign-lab/internal/strategy"
)

func main() {
	configPath := flag.String("config", "campaign.yaml", "YAML config file (defaults apply when absent)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	barsCSV := flag.String("bars-csv", "", "Bar series CSV to load before the run")
	asset := flag.String("asset", "", "Asset symbol (overrides config)")
	venue := flag.String("venue", "", "Venue identifier (overrides config)")
	interval := flag.String("interval", "1d", "Bar interval")
	runID := flag.String("run-id", "", "Run identifier (derived from inputs when empty)")
	capital := flag.Float64("capital", 10000, "Initial capital")
	artifactDir := flag.String("artifact-dir", "", "Artifact export directory (empty to disable)")
	flag.Parse()

	logger := log.New(os.Stdout, "[backtest] ", log.LstdFlags)

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
	if *asset == "" || *venue == "" {
		logger.Fatal("asset and venue are required (flags or config file)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	stores, err := cli.OpenStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	var bars []domain.PriceBar
	if *barsCSV != "" {
		bars, err = cli.LoadBarsCSV(*barsCSV)
		if err != nil {
			logger.Fatalf("bars: %v", err)
		}
		if err := stores.Bars.InsertBulk(ctx, *asset, *venue, *interval, bars); err != nil {
			logger.Printf("store bars: %v (continuing with the loaded series)", err)
		}
	} else {
		bars, err = stores.Bars.GetSeries(ctx, *asset, *venue, *interval, 0, math.MaxInt64)
		if err != nil {
			logger.Fatalf("bars: %v", err)
		}
	}
	if len(bars) == 0 {
		logger.Fatal("no bars to replay")
	}

	params := cfg.StrategyParams()
	signalFn, err := strategy.FromParams(params)
	if err != nil {
		logger.Fatalf("strategy: %v", err)
	}

	datasetChecksum := artifact.DatasetChecksum(bars)
	if *runID == "" {
		*runID = idhash.RunID(datasetChecksum, params.Version, "standalone")
	}

	eng := engine.New(engine.Config{
		RunID:          *runID,
		Asset:          *asset,
		Venue:          *venue,
		InitialCapital: *capital,
		Costs:          cfg.CostModel(),
		Playbooks:      cfg.PlaybookSet(),
		Allocator:      allocation.New(cfg.AllocatorConfig()),
	})

	res, err := eng.Run(ctx, bars, params, signalFn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backtest error: %v\n", err)
		os.Exit(1)
	}
	observability.RecordBacktest("standalone", 0, len(res.Trades), res.Metrics.Bars)

	tradePtrs := make([]*domain.Trade, len(res.Trades))
	for i := range res.Trades {
		tradePtrs[i] = &res.Trades[i]
	}
	if err := stores.Trades.InsertBulk(ctx, tradePtrs); err != nil {
		logger.Fatalf("store trades: %v", err)
	}
	if err := stores.Equity.InsertBulk(ctx, *runID, res.Equity); err != nil {
		logger.Fatalf("store equity: %v", err)
	}

	fmt.Printf("Backtest completed:\n")
	fmt.Printf("  Run:        %s\n", *runID)
	fmt.Printf("  Bars:       %d (%d skipped)\n", res.Metrics.Bars, res.SkippedBars)
	fmt.Printf("  Trades:     %d (win rate %.1f%%)\n", res.Metrics.TradeCount, res.Metrics.WinRate*100)
	fmt.Printf("  Return:     %.2f%% realistic (CAGR %.2f%%)\n", res.Metrics.TotalReturnPct, res.Metrics.CAGRRealistic)
	fmt.Printf("  Drawdown:   %.2f%%\n", res.Metrics.MaxDrawdownPct)
	fmt.Printf("  Sharpe:     %.2f  Calmar: %.2f\n", res.Metrics.Sharpe, res.Metrics.Calmar)
	dominant, _ := res.FinalRegime.Dominant()
	fmt.Printf("  Regime:     %s at end, %d transitions\n", dominant, len(res.Transitions))
	if res.Unstable {
		fmt.Printf("  WARNING: theoretical/realistic divergence exceeded tolerance\n")
	}

	if *artifactDir != "" {
		manifest, err := artifact.NewExporter(*artifactDir).ExportRun(
			*runID, "", params.Version, 0, res.Trades, res.Equity, datasetChecksum)
		if err != nil {
			logger.Fatalf("export: %v", err)
		}
		fmt.Printf("  Artifacts:  %d files, ledger %s\n", len(manifest.Files), short(manifest.LedgerChecksum))
	}
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
