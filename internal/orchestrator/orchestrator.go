// Package orchestrator runs the end-to-end campaign pipeline.
// It coordinates: bar loading → campaign optimization → artifact export →
// reporting → drift monitoring → recalibration.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"campaign-lab/internal/artifact"
	"campaign-lab/internal/campaign"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/idhash"
	"campaign-lab/internal/perfmon"
	"campaign-lab/internal/reporting"
	"campaign-lab/internal/storage"
)

// Orchestrator coordinates one full pipeline execution.
type Orchestrator struct {
	// Stores
	bars      storage.PriceBarStore
	trades    storage.TradeStore
	equity    storage.EquityCurveStore
	results   storage.CampaignResultStore
	champions storage.ChampionStore
	events    storage.RecalibrationEventStore

	// Configs
	campaign campaign.Config
	monitor  perfmon.MonitorConfig

	interval string
	startMs  int64
	endMs    int64

	variants []domain.StrategyParams
	seed     int64

	// Options
	artifactDir    string
	reportDir      string
	skipMonitor    bool
	consumePending bool
	verbose        bool
}

// Options for creating an Orchestrator.
type Options struct {
	// Required stores
	Bars      storage.PriceBarStore
	Trades    storage.TradeStore
	Equity    storage.EquityCurveStore
	Results   storage.CampaignResultStore
	Champions storage.ChampionStore
	Events    storage.RecalibrationEventStore

	// Campaign and monitor configs
	Campaign campaign.Config
	Monitor  perfmon.MonitorConfig

	// Bar selection. EndMs zero means "to the end of the series".
	Interval string
	StartMs  int64
	EndMs    int64

	// Parameter variants and the campaign seed
	Variants []domain.StrategyParams
	Seed     int64

	// Options
	ArtifactDir    string // skip artifact export when empty
	ReportDir      string // skip report files when empty
	SkipMonitor    bool   // skip the post-campaign drift check
	ConsumePending bool   // consume pending recalibration events after the run
	Verbose        bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	if opts.EndMs == 0 {
		opts.EndMs = math.MaxInt64
	}
	return &Orchestrator{
		bars:           opts.Bars,
		trades:         opts.Trades,
		equity:         opts.Equity,
		results:        opts.Results,
		champions:      opts.Champions,
		events:         opts.Events,
		campaign:       opts.Campaign,
		monitor:        opts.Monitor,
		interval:       opts.Interval,
		startMs:        opts.StartMs,
		endMs:          opts.EndMs,
		variants:       opts.Variants,
		seed:           opts.Seed,
		artifactDir:    opts.ArtifactDir,
		reportDir:      opts.ReportDir,
		skipMonitor:    opts.SkipMonitor,
		consumePending: opts.ConsumePending,
		verbose:        opts.Verbose,
	}
}

// RunResult contains results from one pipeline execution.
type RunResult struct {
	CampaignID       string
	BarsLoaded       int
	VariantsResolved int
	PromotedResultID string
	ReportPaths      []string
	DriftEventID     string
	EventsConsumed   int
	Errors           []string
}

// Run executes the full pipeline.
// Phases:
//  1. Load the bar series
//  2. Run the campaign over all variants
//  3. Export artifacts for the promoted variant
//  4. Generate the campaign report
//  5. Check the active champion for drift, then consume pending events
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load bars
	o.log("Phase 1: Loading bars...")
	bars, err := o.bars.GetSeries(ctx, o.campaign.Asset, o.campaign.Venue, o.interval, o.startMs, o.endMs)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load bars) failed: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("phase 1 (load bars): no bars for %s/%s interval %s",
			o.campaign.Asset, o.campaign.Venue, o.interval)
	}
	result.BarsLoaded = len(bars)
	o.log("  Loaded %d bars", len(bars))

	// Phase 2: Campaign
	o.log("Phase 2: Running campaign over %d variants...", len(o.variants))
	opt := campaign.New(o.campaign, campaign.Stores{
		Results:   o.results,
		Trades:    o.trades,
		Equity:    o.equity,
		Champions: o.champions,
	})
	campaignResults, err := opt.RunCampaign(ctx, bars, o.variants, o.seed)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (campaign) failed: %w", err)
	}
	result.CampaignID = campaignResults[0].CampaignID
	result.VariantsResolved = len(campaignResults)

	var promoted *domain.CampaignResult
	for _, r := range campaignResults {
		if r.State == domain.StatePromoted {
			promoted = r
			break
		}
	}
	if promoted != nil {
		result.PromotedResultID = promoted.ResultID
	}
	o.log("  Campaign %s: %d variants, promoted=%v", result.CampaignID, len(campaignResults), promoted != nil)

	// Phase 3: Artifact export
	if o.artifactDir != "" && promoted != nil {
		o.log("Phase 3: Exporting artifacts...")
		if err := o.exportPromoted(ctx, promoted); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("export artifacts: %v", err))
		}
	} else {
		o.log("Phase 3: Skipping artifact export")
	}

	// Phase 4: Report
	if o.reportDir != "" {
		o.log("Phase 4: Generating report...")
		paths, err := o.writeReport(ctx, result.CampaignID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("generate report: %v", err))
		}
		result.ReportPaths = paths
	} else {
		o.log("Phase 4: Skipping report")
	}

	// Phase 5: Drift check + recalibration
	if !o.skipMonitor {
		o.log("Phase 5: Checking for drift...")
		eventID, err := o.checkDrift(ctx, result.CampaignID, bars)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("drift check: %v", err))
		}
		result.DriftEventID = eventID

		if o.consumePending {
			consumed, errs := o.consumeEvents(ctx, bars)
			result.EventsConsumed = consumed
			result.Errors = append(result.Errors, errs...)
		}
	} else {
		o.log("Phase 5: Skipping drift check")
	}

	o.log("Pipeline completed: campaign=%s bars=%d variants=%d promoted=%s",
		result.CampaignID, result.BarsLoaded, result.VariantsResolved, result.PromotedResultID)

	return result, nil
}

// exportPromoted writes the promoted variant's out-of-sample ledger,
// equity curve, and lineage manifest to the artifact directory.
func (o *Orchestrator) exportPromoted(ctx context.Context, promoted *domain.CampaignResult) error {
	runID := idhash.RunID(promoted.CampaignID, promoted.ParamsVersion, "oos")

	tradePtrs, err := o.trades.GetByRunID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load trades for run %s: %w", runID, err)
	}
	trades := make([]domain.Trade, len(tradePtrs))
	for i, t := range tradePtrs {
		trades[i] = *t
	}

	equity, err := o.equity.GetByRunID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load equity for run %s: %w", runID, err)
	}

	manifest, err := artifact.NewExporter(o.artifactDir).ExportRun(
		runID, promoted.CampaignID, promoted.ParamsVersion, promoted.Seed,
		trades, equity, promoted.DatasetChecksum)
	if err != nil {
		return err
	}
	o.log("  Exported %d files for run %s", len(manifest.Files), runID)
	return nil
}

// writeReport renders the campaign report in markdown and CSV.
func (o *Orchestrator) writeReport(ctx context.Context, campaignID string) ([]string, error) {
	report, err := reporting.NewGenerator(o.results, o.champions).Generate(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(o.reportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	stem := campaignID
	if len(stem) > 12 {
		stem = stem[:12]
	}

	mdPath := filepath.Join(o.reportDir, "campaign_"+stem+".md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", mdPath, err)
	}

	csvPath := filepath.Join(o.reportDir, "campaign_"+stem+".csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Variants)), 0o644); err != nil {
		return []string{mdPath}, fmt.Errorf("write %s: %w", csvPath, err)
	}

	o.log("  Wrote %s and %s", mdPath, csvPath)
	return []string{mdPath, csvPath}, nil
}

// checkDrift compares the active champion's baseline against the rolling
// metrics of its out-of-sample replay and raises a recalibration event
// on drift. Returns the raised event's ID, or empty when quiet.
func (o *Orchestrator) checkDrift(ctx context.Context, campaignID string, bars []domain.PriceBar) (string, error) {
	champ, err := o.champions.GetActive(ctx, o.campaign.Asset, o.campaign.Venue)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	runID := idhash.RunID(campaignID, champ.ParamsVersion, "oos")
	tradePtrs, err := o.trades.GetByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	trades := make([]domain.Trade, len(tradePtrs))
	for i, t := range tradePtrs {
		trades[i] = *t
	}

	equity, err := o.equity.GetByRunID(ctx, runID)
	if err != nil {
		return "", err
	}
	if len(equity) == 0 {
		return "", nil
	}

	nowMs := bars[len(bars)-1].TimestampMs
	mon := perfmon.NewMonitor(o.monitor, o.champions, o.events)
	event, err := mon.Check(ctx, o.campaign.Asset, o.campaign.Venue, equity, trades, domain.UniformSnapshot(nowMs), nowMs)
	if err != nil || event == nil {
		return "", err
	}
	return event.EventID, nil
}

// consumeEvents claims every pending recalibration event and reruns the
// campaign for each. A consumed-elsewhere event is not an error.
func (o *Orchestrator) consumeEvents(ctx context.Context, bars []domain.PriceBar) (int, []string) {
	pending, err := o.events.GetPending(ctx, o.campaign.Asset, o.campaign.Venue)
	if err != nil {
		return 0, []string{fmt.Sprintf("list pending events: %v", err)}
	}

	opt := campaign.New(o.campaign, campaign.Stores{
		Results:   o.results,
		Trades:    o.trades,
		Equity:    o.equity,
		Champions: o.champions,
	})
	job := perfmon.NewRecalibrationJob(o.events, opt, o.variants)

	var consumed int
	var errs []string
	for i, event := range pending {
		// A fresh seed per event keeps recalibration runs distinct from
		// the triggering campaign.
		_, err := job.Consume(ctx, event.EventID, bars, o.seed+int64(i)+1)
		if err != nil {
			if errors.Is(err, domain.ErrEventConsumed) {
				continue
			}
			errs = append(errs, fmt.Sprintf("consume event %s: %v", event.EventID, err))
			continue
		}
		consumed++
	}
	return consumed, errs
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
