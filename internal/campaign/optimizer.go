package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"campaign-lab/internal/artifact"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/idhash"
	"campaign-lab/internal/ruin"
	"campaign-lab/internal/stats"
	"campaign-lab/internal/storage"
	"campaign-lab/internal/strategy"
)

// Stores are the persistence sinks the optimizer writes through. Any nil
// store is skipped, which keeps pure in-process runs possible.
type Stores struct {
	Results   storage.CampaignResultStore
	Trades    storage.TradeStore
	Equity    storage.EquityCurveStore
	Champions storage.ChampionStore
}

// Config holds campaign settings. Engine is a template; every variant
// and stage gets a private engine derived from it.
type Config struct {
	Asset string
	Venue string

	Workers    int     // concurrent variant evaluations, default 2
	Alpha      float64 // significance level, default 0.05
	Windows    WindowConfig
	Guardrails GuardrailConfig
	Engine     engine.Config

	RuinTrials      int     // default 5_000
	RuinThreshold   float64 // default 0.5
	BootstrapTrials int     // default 1_000

	Now func() time.Time // clock, default time.Now
}

// swapAttempts bounds champion swap retries before giving up and leaving
// the prior champion active.
const swapAttempts = 3

// Optimizer evaluates parameter variants through the staged pipeline and
// promotes at most one champion per campaign run.
type Optimizer struct {
	cfg    Config
	stores Stores
}

// New creates an optimizer, applying defaults for zero config fields.
func New(cfg Config, stores Stores) *Optimizer {
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.Windows == (WindowConfig{}) {
		cfg.Windows = DefaultWindowConfig()
	}
	if cfg.Guardrails == (GuardrailConfig{}) {
		cfg.Guardrails = DefaultGuardrailConfig()
	}
	if cfg.RuinTrials == 0 {
		cfg.RuinTrials = 5_000
	}
	if cfg.RuinThreshold == 0 {
		cfg.RuinThreshold = 0.5
	}
	if cfg.BootstrapTrials == 0 {
		cfg.BootstrapTrials = 1_000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Engine.InitialCapital == 0 {
		cfg.Engine.InitialCapital = 10_000
	}
	return &Optimizer{cfg: cfg, stores: stores}
}

// variantOutcome carries one variant's result plus the out-of-sample
// artifacts needed for persistence and significance testing.
type variantOutcome struct {
	result      *domain.CampaignResult
	oosTrades   []domain.Trade
	oosEquity   []domain.EquityPoint
	oosReturns  []float64
	trainRegime domain.RegimeSnapshot
}

// RunCampaign evaluates every variant over the staged windows, applies
// guardrails and the significance test, persists results, and atomically
// promotes the best passing candidate. Variant evaluations run
// concurrently with private engine state; cancellation is honored
// between variants.
//
// Reproducibility: the same bars, variants, and seed produce identical
// results, ledgers, and checksums. Each variant derives its own seed
// from the campaign seed and its position, so adding a variant does not
// disturb the others.
func (o *Optimizer) RunCampaign(ctx context.Context, bars []domain.PriceBar, variants []domain.StrategyParams, seed int64) ([]*domain.CampaignResult, error) {
	if len(bars) == 0 || len(variants) == 0 {
		return nil, storage.ErrInvalidInput
	}
	if !domain.BarsOrdered(bars) {
		return nil, fmt.Errorf("%w: bars not strictly ordered", storage.ErrInvalidInput)
	}

	windows, err := SplitWindows(len(bars), o.cfg.Windows)
	if err != nil {
		return nil, err
	}

	campaignID := idhash.CampaignID(o.cfg.Asset, o.cfg.Venue, bars[0].TimestampMs, bars[len(bars)-1].TimestampMs, seed)
	cov := Coverage(bars)
	datasetChecksum := artifact.DatasetChecksum(bars)
	baseline := o.baselineReturns(ctx, campaignID, bars, windows)

	outcomes := make([]*variantOutcome, len(variants))
	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(o.cfg.Workers)
	for w := 0; w < o.cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-jobs:
					if !ok {
						return
					}
					outcomes[idx] = o.evaluate(ctx, campaignID, bars, windows, cov, datasetChecksum, variants[idx], seed+int64(idx))
				}
			}
		}()
	}
feed:
	for i := range variants {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := o.judge(outcomes, baseline)

	if err := o.persist(ctx, outcomes); err != nil {
		return results, err
	}
	if err := o.promote(ctx, outcomes); err != nil {
		return results, err
	}
	return results, nil
}

// baselineReturns replays the incumbent champion's parameters over the
// out-of-sample window, producing the per-period series the significance
// test compares against. Nil when no champion exists or the replay fails.
func (o *Optimizer) baselineReturns(ctx context.Context, campaignID string, bars []domain.PriceBar, windows StageWindows) []float64 {
	if o.stores.Champions == nil {
		return nil
	}
	incumbent, err := o.stores.Champions.GetActive(ctx, o.cfg.Asset, o.cfg.Venue)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("campaign: baseline lookup failed asset=%s venue=%s: %v", o.cfg.Asset, o.cfg.Venue, err)
		}
		return nil
	}

	res, err := o.runStage(ctx, campaignID, incumbent.Params, "baseline", bars, windows.OutOfSample)
	if err != nil {
		log.Printf("campaign: baseline replay failed params_version=%s: %v", incumbent.ParamsVersion, err)
		return nil
	}
	return engine.PerBarReturns(res.Equity)
}

// evaluate runs one variant through all stages and the risk simulation,
// then applies guardrails. The returned result is PENDING, CANDIDATE, or
// REJECTED; significance is judged later against the shared baseline.
func (o *Optimizer) evaluate(ctx context.Context, campaignID string, bars []domain.PriceBar, windows StageWindows, cov CoverageStats, datasetChecksum string, params domain.StrategyParams, variantSeed int64) *variantOutcome {
	now := o.cfg.Now().UnixMilli()
	result := &domain.CampaignResult{
		ResultID:        idhash.ResultID(campaignID, params.Version),
		CampaignID:      campaignID,
		Asset:           o.cfg.Asset,
		Venue:           o.cfg.Venue,
		ParamsVersion:   params.Version,
		Params:          params,
		Seed:            variantSeed,
		State:           domain.StatePending,
		DatasetChecksum: datasetChecksum,
		CreatedAtMs:     now,
	}
	out := &variantOutcome{result: result}

	reject := func(reason string) *variantOutcome {
		result.State, _ = result.State.Transition(domain.StateRejected)
		result.RejectReason = reason
		return out
	}

	train, err := o.runStage(ctx, campaignID, params, "train", bars, windows.Train)
	if err != nil {
		result.Valid = false
		return reject(fmt.Sprintf("train stage: %v", err))
	}
	result.Train = train.Metrics
	out.trainRegime = train.FinalRegime

	validation, err := o.runStage(ctx, campaignID, params, "validation", bars, windows.Validation)
	if err != nil {
		result.Valid = false
		return reject(fmt.Sprintf("validation stage: %v", err))
	}
	result.Validation = validation.Metrics

	wfMetrics, wfUnstable, err := o.runWalkForward(ctx, campaignID, params, bars, windows.WalkForward)
	if err != nil {
		result.Valid = false
		return reject(fmt.Sprintf("walk-forward stage: %v", err))
	}
	result.WalkForward = wfMetrics

	oos, err := o.runStage(ctx, campaignID, params, "oos", bars, windows.OutOfSample)
	if err != nil {
		result.Valid = false
		return reject(fmt.Sprintf("out-of-sample stage: %v", err))
	}
	result.OutOfSample = oos.Metrics
	result.Valid = true
	result.Unstable = train.Unstable || validation.Unstable || wfUnstable || oos.Unstable
	result.LedgerChecksum = artifact.LedgerChecksum(oos.Trades)

	out.oosTrades = oos.Trades
	out.oosEquity = oos.Equity
	out.oosReturns = engine.PerBarReturns(oos.Equity)

	sim := ruin.New(ruin.Config{
		Trials:         o.cfg.RuinTrials,
		RuinThreshold:  o.cfg.RuinThreshold,
		InitialCapital: o.cfg.Engine.InitialCapital,
		Seed:           variantSeed + 1,
	}).FromLedger(oos.Trades)
	result.RiskOfRuin = sim.RuinProbability
	result.RuinIndeterm = sim.Indeterminate

	result.BootstrapCalmr = bootstrapCalmar(out.oosReturns, oos.Metrics.SpanDays, o.cfg.BootstrapTrials, variantSeed+2)

	checks, pass, reason := EvaluateGuardrails(result, cov, o.cfg.Guardrails)
	result.Guardrails = checks
	if !pass {
		return reject(reason)
	}
	result.State, _ = result.State.Transition(domain.StateCandidate)
	return out
}

// runStage replays one window with a private engine.
func (o *Optimizer) runStage(ctx context.Context, campaignID string, params domain.StrategyParams, stage string, bars []domain.PriceBar, span Span) (*engine.Result, error) {
	signalFn, err := strategy.FromParams(params)
	if err != nil {
		return nil, err
	}

	cfg := o.cfg.Engine
	cfg.Asset = o.cfg.Asset
	cfg.Venue = o.cfg.Venue
	cfg.RunID = idhash.RunID(campaignID, params.Version, stage)
	cfg.Classifier = nil // private classifier per stage
	return engine.New(cfg).Run(ctx, bars[span.Start:span.End], params, signalFn)
}

// runWalkForward replays each fold in time order and stitches the fold
// curves into one compounding series for metric computation.
func (o *Optimizer) runWalkForward(ctx context.Context, campaignID string, params domain.StrategyParams, bars []domain.PriceBar, folds []Span) (domain.PerformanceMetrics, bool, error) {
	var (
		curves   [][]domain.EquityPoint
		trades   []domain.Trade
		unstable bool
	)
	for i, fold := range folds {
		res, err := o.runStage(ctx, campaignID, params, fmt.Sprintf("wf%d", i), bars, fold)
		if err != nil {
			return domain.PerformanceMetrics{}, false, err
		}
		curves = append(curves, res.Equity)
		trades = append(trades, res.Trades...)
		unstable = unstable || res.Unstable
	}

	stitched := stitchEquity(curves, o.cfg.Engine.InitialCapital)
	return engine.ComputeMetrics(stitched, trades, o.cfg.Engine.InitialCapital), unstable, nil
}

// stitchEquity chains per-fold curves so each fold compounds on the
// previous fold's final equity.
func stitchEquity(folds [][]domain.EquityPoint, initial float64) []domain.EquityPoint {
	var out []domain.EquityPoint
	scaleTheo, scaleReal := 1.0, 1.0
	for _, fold := range folds {
		for _, p := range fold {
			theo := p.Theoretical * scaleTheo
			real := p.Realistic * scaleReal
			out = append(out, domain.EquityPoint{
				TimestampMs:   p.TimestampMs,
				Theoretical:   theo,
				Realistic:     real,
				DivergencePct: domain.Divergence(theo, real),
			})
		}
		if n := len(fold); n > 0 && initial > 0 {
			scaleTheo *= fold[n-1].Theoretical / initial
			scaleReal *= fold[n-1].Realistic / initial
		}
	}
	return out
}

// judge applies the significance test to every candidate and settles
// terminal states: the best significant candidate stays CANDIDATE for
// promotion, the rest become REJECTED.
func (o *Optimizer) judge(outcomes []*variantOutcome, baseline []float64) []*domain.CampaignResult {
	results := make([]*domain.CampaignResult, 0, len(outcomes))
	bestIdx := -1
	for i, out := range outcomes {
		if out == nil {
			continue
		}
		r := out.result
		results = append(results, r)
		if r.State != domain.StateCandidate {
			continue
		}

		r.Significance = Significance(out.oosReturns, baseline, o.cfg.Alpha)
		if !r.Significance.IsSignificant {
			r.State, _ = r.State.Transition(domain.StateRejected)
			r.RejectReason = r.Significance.Reason
			continue
		}
		if bestIdx < 0 || r.OutOfSample.Calmar > outcomes[bestIdx].result.OutOfSample.Calmar {
			bestIdx = i
		}
	}

	for i, out := range outcomes {
		if out == nil || i == bestIdx {
			continue
		}
		r := out.result
		if r.State == domain.StateCandidate {
			r.State, _ = r.State.Transition(domain.StateRejected)
			r.RejectReason = "outranked by a candidate with higher out-of-sample Calmar"
		}
	}
	return results
}

// persist writes results and out-of-sample artifacts through the
// configured stores. Duplicate keys on a re-run of the same campaign are
// tolerated: identical seeds produce identical records.
func (o *Optimizer) persist(ctx context.Context, outcomes []*variantOutcome) error {
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		if o.stores.Results != nil {
			if err := o.stores.Results.Insert(ctx, out.result); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("%w: campaign result %s: %v", domain.ErrPersistenceFailed, out.result.ResultID, err)
			}
		}
		if o.stores.Trades != nil && len(out.oosTrades) > 0 {
			batch := make([]*domain.Trade, len(out.oosTrades))
			for i := range out.oosTrades {
				batch[i] = &out.oosTrades[i]
			}
			if err := o.stores.Trades.InsertBulk(ctx, batch); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("%w: trades for %s: %v", domain.ErrPersistenceFailed, out.result.ResultID, err)
			}
		}
		if o.stores.Equity != nil && len(out.oosEquity) > 0 {
			runID := idhash.RunID(out.result.CampaignID, out.result.ParamsVersion, "oos")
			if err := o.stores.Equity.InsertBulk(ctx, runID, out.oosEquity); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("%w: equity for %s: %v", domain.ErrPersistenceFailed, out.result.ResultID, err)
			}
		}
	}
	return nil
}

// promote swaps the champion for the surviving candidate, if any. The
// swap is retried a bounded number of times; on persistent failure the
// result stays CANDIDATE and the prior champion remains active.
func (o *Optimizer) promote(ctx context.Context, outcomes []*variantOutcome) error {
	var winner *variantOutcome
	for _, out := range outcomes {
		if out != nil && out.result.State == domain.StateCandidate {
			winner = out
			break
		}
	}
	if winner == nil {
		return nil
	}
	r := winner.result

	if o.stores.Champions == nil {
		r.State, _ = r.State.Transition(domain.StatePromoted)
		return nil
	}

	now := o.cfg.Now().UnixMilli()
	champ := &domain.Champion{
		ChampionID:    idhash.ChampionID(o.cfg.Asset, o.cfg.Venue, r.ParamsVersion, now),
		Asset:         o.cfg.Asset,
		Venue:         o.cfg.Venue,
		Params:        r.Params,
		ParamsVersion: r.ParamsVersion,
		ResultID:      r.ResultID,
		TrainedOn:     winner.trainRegime,
		Significance:  r.Significance,
		Baseline: domain.MetricsSnapshot{
			TimestampMs:   now,
			Sharpe:        r.OutOfSample.Sharpe,
			VolatilityPct: r.OutOfSample.VolatilityPct,
			WindowDays:    int(r.OutOfSample.SpanDays),
			TradeCount:    r.OutOfSample.TradeCount,
		},
		ActivatedAtMs: now,
	}

	var swapErr error
	for attempt := 1; attempt <= swapAttempts; attempt++ {
		swapErr = o.stores.Champions.Swap(ctx, champ)
		if swapErr == nil || errors.Is(swapErr, storage.ErrDuplicateKey) {
			r.State, _ = r.State.Transition(domain.StatePromoted)
			return nil
		}
		log.Printf("campaign: champion swap attempt %d/%d failed: %v", attempt, swapAttempts, swapErr)
	}
	return fmt.Errorf("%w: champion swap for %s: %v", domain.ErrPersistenceFailed, r.ResultID, swapErr)
}

// bootstrapCalmar resamples the out-of-sample per-bar return series and
// recomputes the Calmar ratio per resample, yielding the confidence
// bounds the p05 guardrail reads.
func bootstrapCalmar(returns []float64, spanDays float64, trials int, seed int64) domain.BootstrapBounds {
	bounds := domain.BootstrapBounds{Metric: "calmar"}
	if len(returns) < 2 || spanDays <= 0 {
		return bounds
	}
	stat := func(sample []float64) float64 { return calmarFromReturns(sample, spanDays) }
	bounds.P05, bounds.P50, bounds.P95 = stats.BootstrapCI(returns, trials, seed, 5, 95, stat)
	return bounds
}

// calmarFromReturns rebuilds a unit equity curve from a return sample
// and computes CAGR over max drawdown.
func calmarFromReturns(returns []float64, spanDays float64) float64 {
	eq, peak, maxDD := 1.0, 1.0, 0.0
	for _, r := range returns {
		eq *= 1 + r
		if eq > peak {
			peak = eq
		} else if dd := (peak - eq) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	if eq <= 0 || maxDD == 0 {
		return 0
	}
	cagr := math.Pow(eq, 365/spanDays) - 1
	return cagr * 100 / maxDD
}
