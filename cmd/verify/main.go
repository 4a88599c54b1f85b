// Package main verifies reproducibility: it replays a stored campaign
// with the recorded seed and parameters in a scratch environment and
// compares dataset and ledger checksums against the stored results, or
// replays a single run and diffs its trade ledger field by field.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"campaign-lab/internal/allocation"
	"campaign-lab/internal/artifact"
	"campaign-lab/internal/campaign"
	"campaign-lab/internal/cli"
	"campaign-lab/internal/config"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/storage/memory"
	"campaign-lab/internal/verification"
)

func main() {
	configPath := flag.String("config", "campaign.yaml", "YAML config file (defaults apply when absent)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	barsCSV := flag.String("bars-csv", "", "Bar series CSV (bypasses the bar store)")
	asset := flag.String("asset", "", "Asset symbol (overrides config)")
	venue := flag.String("venue", "", "Venue identifier (overrides config)")
	interval := flag.String("interval", "1d", "Bar interval")
	campaignID := flag.String("campaign-id", "", "Campaign to replay and verify")
	runID := flag.String("run-id", "", "Single run to replay and diff trade by trade")
	flag.Parse()

	logger := log.New(os.Stdout, "[verify] ", log.LstdFlags)

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
	} else {
		bars, err = stores.Bars.GetSeries(ctx, *asset, *venue, *interval, 0, math.MaxInt64)
	}
	if err != nil {
		logger.Fatalf("bars: %v", err)
	}
	if len(bars) == 0 {
		logger.Fatal("no bars to replay")
	}

	engineCfg := engine.Config{
		Asset:     *asset,
		Venue:     *venue,
		Costs:     cfg.CostModel(),
		Playbooks: cfg.PlaybookSet(),
		Allocator: allocation.New(cfg.AllocatorConfig()),
	}

	switch {
	case *runID != "":
		verifyRun(ctx, logger, stores, engineCfg, bars, cfg.StrategyParams(), *runID)
	case *campaignID != "":
		verifyCampaign(ctx, logger, stores, engineCfg, cfg, bars, *campaignID)
	default:
		logger.Fatal("either -campaign-id or -run-id is required")
	}
}

// verifyRun replays one run and diffs its ledger field by field.
func verifyRun(ctx context.Context, logger *log.Logger, stores *cli.Stores, engineCfg engine.Config, bars []domain.PriceBar, params domain.StrategyParams, runID string) {
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		TradeStore:  stores.Trades,
		EquityStore: stores.Equity,
	})

	report, err := v.VerifyRun(ctx, runID, engineCfg, bars, params)
	if err != nil {
		logger.Fatalf("verify run %s: %v", runID, err)
	}

	fmt.Printf("Run %s:\n", runID)
	fmt.Printf("  Trades:  %d stored, %d matched, %d divergent\n",
		report.TotalTrades, report.MatchedTrades, report.DivergentTrades)
	fmt.Printf("  Ledger:  stored %s / replayed %s\n", report.StoredLedgerChecksum, report.ReplayedLedgerChecksum)
	fmt.Printf("  Equity:  stored %s / replayed %s\n", report.StoredEquityChecksum, report.ReplayedEquityChecksum)
	for _, tv := range report.Trades {
		for _, d := range tv.Divergences {
			fmt.Printf("  diverged %s: %s stored=%v replayed=%v\n", tv.TradeID, d.Field, d.Expected, d.Actual)
		}
	}
	if !report.Match {
		fmt.Println("VERDICT: FAIL")
		os.Exit(1)
	}
	fmt.Println("VERDICT: PASS")
}

// verifyCampaign replays the whole campaign in a scratch environment and
// compares per-variant checksums against the stored results.
func verifyCampaign(ctx context.Context, logger *log.Logger, stores *cli.Stores, engineCfg engine.Config, cfg *config.File, bars []domain.PriceBar, campaignID string) {
	stored, err := stores.Results.GetByCampaignID(ctx, campaignID)
	if err != nil {
		logger.Fatalf("load campaign %s: %v", campaignID, err)
	}
	if len(stored) == 0 {
		logger.Fatalf("campaign %s has no stored results", campaignID)
	}

	// Rebuild the variant list in its original order; seeds were assigned
	// seed+index, so index order matters.
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Seed < stored[j].Seed })
	variants := make([]domain.StrategyParams, len(stored))
	for i, r := range stored {
		variants[i] = r.Params
	}
	baseSeed := stored[0].Seed

	datasetChecksum := artifact.DatasetChecksum(bars)

	opt := campaign.New(campaign.Config{
		Asset:      stored[0].Asset,
		Venue:      stored[0].Venue,
		Guardrails: cfg.GuardrailConfig(),
		Engine:     engineCfg,
	}, campaign.Stores{
		Results:   memory.NewCampaignResultStore(),
		Trades:    memory.NewTradeStore(),
		Equity:    memory.NewEquityCurveStore(),
		Champions: memory.NewChampionStore(),
	})

	replayed, err := opt.RunCampaign(ctx, bars, variants, baseSeed)
	if err != nil {
		logger.Fatalf("replay campaign: %v", err)
	}

	byVersion := make(map[string]*domain.CampaignResult, len(replayed))
	for _, r := range replayed {
		byVersion[r.ParamsVersion] = r
	}

	failures := 0
	for _, want := range stored {
		got, ok := byVersion[want.ParamsVersion]
		switch {
		case !ok:
			fmt.Printf("  %s: MISSING from replay\n", short(want.ParamsVersion))
			failures++
		case want.DatasetChecksum != datasetChecksum:
			fmt.Printf("  %s: DATASET drift (stored %s, current %s)\n",
				short(want.ParamsVersion), short(want.DatasetChecksum), short(datasetChecksum))
			failures++
		case want.LedgerChecksum != got.LedgerChecksum:
			fmt.Printf("  %s: LEDGER mismatch (stored %s, replayed %s)\n",
				short(want.ParamsVersion), short(want.LedgerChecksum), short(got.LedgerChecksum))
			failures++
		default:
			fmt.Printf("  %s: ok\n", short(want.ParamsVersion))
		}
	}

	fmt.Printf("Campaign %s: %d variants, %d mismatches\n", campaignID, len(stored), failures)
	if failures > 0 {
		fmt.Println("VERDICT: FAIL")
		os.Exit(1)
	}
	fmt.Println("VERDICT: PASS")
}

func short(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
