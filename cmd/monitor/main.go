// Package main watches a run's rolling performance for drift against the
// active champion's baseline, raises recalibration events, and optionally
// consumes them by rerunning the campaign. The YAML config hot-reloads,
// so guardrails and playbooks can change without a restart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaign-lab/internal/allocation"
	"campaign-lab/internal/campaign"
	"campaign-lab/internal/cli"
	"campaign-lab/internal/config"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/observability"
	"campaign-lab/internal/perfmon"
)

type monitorApp struct {
	logger *log.Logger
	stores *cli.Stores

	asset    string
	venue    string
	interval string
	runID    string
	seed     int64

	windowDays      int
	triggerFraction float64
	consume         bool

	cfg *config.File
}

func main() {
	configPath := flag.String("config", "campaign.yaml", "YAML config file, hot-reloaded on change")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	asset := flag.String("asset", "", "Asset symbol (overrides config)")
	venue := flag.String("venue", "", "Venue identifier (overrides config)")
	interval := flag.String("interval", "1d", "Bar interval")
	runID := flag.String("run-id", "", "Run whose ledger and equity are monitored")
	windowDays := flag.Int("window-days", 30, "Rolling metric window in days")
	triggerFraction := flag.Float64("trigger-fraction", 0.15, "Drift fraction that raises an event")
	checkInterval := flag.Duration("check-interval", time.Hour, "Time between drift checks")
	consume := flag.Bool("consume", false, "Consume raised events by rerunning the campaign")
	seed := flag.Int64("seed", 1, "Seed base for recalibration campaigns")
	once := flag.Bool("once", false, "Run a single check and exit")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	logger := log.New(os.Stdout, "[monitor] ", log.LstdFlags)

	if *runID == "" {
		logger.Fatal("-run-id is required")
	}

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
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	stores, err := cli.OpenStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer stores.Close()

	app := &monitorApp{
		logger:          logger,
		stores:          stores,
		asset:           *asset,
		venue:           *venue,
		interval:        *interval,
		runID:           *runID,
		seed:            *seed,
		windowDays:      *windowDays,
		triggerFraction: *triggerFraction,
		consume:         *consume,
		cfg:             cfg,
	}

	if *once {
		if err := app.check(ctx); err != nil {
			logger.Fatalf("check: %v", err)
		}
		return
	}

	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		logger.Printf("config watcher disabled: %v", err)
	} else {
		defer watcher.Close()
		watcher.Start(ctx)
	}

	ticker := time.NewTicker(*checkInterval)
	defer ticker.Stop()

	logger.Printf("Monitoring run %s for %s/%s every %s", *runID, *asset, *venue, *checkInterval)
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := app.check(ctx); err != nil {
				logger.Printf("check: %v", err)
			}

		case f := <-watcherUpdates(watcher):
			logger.Printf("config reloaded")
			app.cfg = f

		case err := <-watcherErrors(watcher):
			logger.Printf("config reload: %v", err)
		}
	}
}

// watcherUpdates tolerates a nil watcher so the select stays simple.
func watcherUpdates(w *config.Watcher) <-chan *config.File {
	if w == nil {
		return nil
	}
	return w.Updates()
}

func watcherErrors(w *config.Watcher) <-chan error {
	if w == nil {
		return nil
	}
	return w.Errors()
}

// check runs one drift detection pass and, when configured, consumes
// every pending event by rerunning the campaign.
func (a *monitorApp) check(ctx context.Context) error {
	tradePtrs, err := a.stores.Trades.GetByRunID(ctx, a.runID)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	trades := make([]domain.Trade, len(tradePtrs))
	for i, t := range tradePtrs {
		trades[i] = *t
	}

	equity, err := a.stores.Equity.GetByRunID(ctx, a.runID)
	if err != nil {
		return fmt.Errorf("load equity: %w", err)
	}
	if len(equity) == 0 {
		a.logger.Printf("run %s has no equity yet, skipping", a.runID)
		return nil
	}
	nowMs := equity[len(equity)-1].TimestampMs

	mon := perfmon.NewMonitor(perfmon.MonitorConfig{
		WindowDays:      a.windowDays,
		TriggerFraction: a.triggerFraction,
	}, a.stores.Champions, a.stores.Events)

	event, err := mon.Check(ctx, a.asset, a.venue, equity, trades, domain.UniformSnapshot(nowMs), nowMs)
	if err != nil {
		return fmt.Errorf("drift check: %w", err)
	}
	if event != nil {
		observability.RecordDriftAlert(event.Reason)
		observability.RecordRecalibrationEvent("triggered")
		a.logger.Printf("drift event %s raised (%s)", event.EventID, event.Reason)
	}

	if !a.consume {
		return nil
	}
	return a.consumePending(ctx)
}

func (a *monitorApp) consumePending(ctx context.Context) error {
	pending, err := a.stores.Events.GetPending(ctx, a.asset, a.venue)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	bars, err := a.stores.Bars.GetSeries(ctx, a.asset, a.venue, a.interval, 0, math.MaxInt64)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	opt := campaign.New(campaign.Config{
		Asset:      a.asset,
		Venue:      a.venue,
		Guardrails: a.cfg.GuardrailConfig(),
		Engine: engine.Config{
			Costs:     a.cfg.CostModel(),
			Playbooks: a.cfg.PlaybookSet(),
			Allocator: allocation.New(a.cfg.AllocatorConfig()),
		},
	}, campaign.Stores{
		Results:   a.stores.Results,
		Trades:    a.stores.Trades,
		Equity:    a.stores.Equity,
		Champions: a.stores.Champions,
	})
	job := perfmon.NewRecalibrationJob(a.stores.Events, opt, []domain.StrategyParams{a.cfg.StrategyParams()})

	for i, event := range pending {
		_, err := job.Consume(ctx, event.EventID, bars, a.seed+int64(i)+1)
		if err != nil {
			if errors.Is(err, domain.ErrEventConsumed) {
				observability.RecordRecalibrationEvent("duplicate")
				continue
			}
			a.logger.Printf("consume %s: %v", event.EventID, err)
			continue
		}
		observability.RecordRecalibrationEvent("consumed")
		a.logger.Printf("event %s consumed, campaign rerun complete", event.EventID)
	}
	return nil
}
