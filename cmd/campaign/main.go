// Package main runs a full optimization campaign: staged backtests over a
// parameter-variant grid, guardrail and significance gating, champion
// promotion, artifact export, and reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaign-lab/internal/allocation"
	"campaign-lab/internal/campaign"
	"campaign-lab/internal/cli"
	"campaign-lab/internal/config"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/observability"
	"campaign-lab/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "campaign.yaml", "YAML config file (defaults apply when absent)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	barsCSV := flag.String("bars-csv", "", "Bar series CSV to load before the run")
	asset := flag.String("asset", "", "Asset symbol (overrides config)")
	venue := flag.String("venue", "", "Venue identifier (overrides config)")
	interval := flag.String("interval", "1d", "Bar interval")
	gridSpec := flag.String("grid", "", "Variant grid, e.g. breakout.lookback=20,30,40;risk.max_hold_bars=6,8")
	seed := flag.Int64("seed", 1, "Campaign seed; same seed, same verdicts")
	workers := flag.Int("workers", 0, "Concurrent variant evaluations (0 = default)")
	artifactDir := flag.String("artifact-dir", "artifacts", "Artifact export directory (empty to disable)")
	reportDir := flag.String("report-dir", "reports", "Report output directory (empty to disable)")
	consumePending := flag.Bool("consume-pending", false, "Consume pending recalibration events after the run")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stdout, "[campaign] ", log.LstdFlags)

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

	grid, err := cli.ParseGrid(*gridSpec)
	if err != nil {
		logger.Fatalf("grid: %v", err)
	}
	variants := grid.Expand(cfg.StrategyParams())
	if len(variants) == 0 {
		logger.Fatal("no variants to evaluate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling campaign...\n", sig)
		cancel()
	}()

	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr)
	}

	stores, err := cli.OpenStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	if *barsCSV != "" {
		bars, err := cli.LoadBarsCSV(*barsCSV)
		if err != nil {
			logger.Fatalf("bars: %v", err)
		}
		if err := stores.Bars.InsertBulk(ctx, *asset, *venue, *interval, bars); err != nil {
			logger.Fatalf("store bars: %v", err)
		}
		logger.Printf("Loaded %d bars from %s", len(bars), *barsCSV)
	}

	start := time.Now()
	orch := orchestrator.New(orchestrator.Options{
		Bars:      stores.Bars,
		Trades:    stores.Trades,
		Equity:    stores.Equity,
		Results:   stores.Results,
		Champions: stores.Champions,
		Events:    stores.Events,
		Campaign: campaign.Config{
			Asset:      *asset,
			Venue:      *venue,
			Workers:    *workers,
			Guardrails: cfg.GuardrailConfig(),
			Engine: engine.Config{
				Costs:     cfg.CostModel(),
				Playbooks: cfg.PlaybookSet(),
				Allocator: allocation.New(cfg.AllocatorConfig()),
			},
		},
		Interval:       *interval,
		Variants:       variants,
		Seed:           *seed,
		ArtifactDir:    *artifactDir,
		ReportDir:      *reportDir,
		ConsumePending: *consumePending,
		Verbose:        *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Campaign error: %v\n", err)
		os.Exit(1)
	}
	status := "ok"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	observability.RecordCampaignRun(status, time.Since(start).Seconds())

	fmt.Printf("Campaign completed:\n")
	fmt.Printf("  Campaign:  %s\n", result.CampaignID)
	fmt.Printf("  Bars:      %d\n", result.BarsLoaded)
	fmt.Printf("  Variants:  %d\n", result.VariantsResolved)
	if result.PromotedResultID != "" {
		fmt.Printf("  Promoted:  %s\n", result.PromotedResultID)
	} else {
		fmt.Printf("  Promoted:  (none)\n")
	}
	for _, p := range result.ReportPaths {
		fmt.Printf("  Report:    %s\n", p)
	}
	if result.DriftEventID != "" {
		fmt.Printf("  Drift:     %s\n", result.DriftEventID)
	}
	if result.EventsConsumed > 0 {
		fmt.Printf("  Consumed:  %d recalibration events\n", result.EventsConsumed)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
		os.Exit(1)
	}
}

func serveMetrics(logger *log.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}
