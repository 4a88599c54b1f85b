package sensitivity

import (
	"context"
	"log"
	"strings"
	"sync"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/idhash"
	"campaign-lab/internal/strategy"
)

// Target metric names accepted by Config.TargetMetric.
const (
	TargetCalmar      = "calmar"
	TargetSharpe      = "sharpe"
	TargetCAGR        = "cagr"
	TargetTotalReturn = "total_return"
)

// Config holds sweep settings. Engine is a template; each variant gets a
// private engine built from it with its own RunID, classifier, and
// transition state.
type Config struct {
	CampaignID   string
	Workers      int    // default 4
	TargetMetric string // default TargetCalmar
	Engine       engine.Config
}

// Row is one evaluated grid combination.
type Row struct {
	Index    int
	Params   domain.StrategyParams
	Metrics  domain.PerformanceMetrics
	Unstable bool
	Err      error
}

// Table collects sweep results, ordered by combination index.
type Table struct {
	Target string
	Rows   []Row
}

// Runner executes a grid sweep with bounded concurrency. Each variant
// evaluation is an isolated sequential replay; cancellation is honored
// between variants, never mid-replay.
type Runner struct {
	cfg Config
}

// NewRunner creates a runner, applying defaults for zero config fields.
func NewRunner(cfg Config) *Runner {
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.TargetMetric == "" {
		cfg.TargetMetric = TargetCalmar
	}
	return &Runner{cfg: cfg}
}

// Run expands the grid over the base parameters and evaluates every
// combination. Rows are returned in expansion order regardless of which
// worker finished first. Returns ctx.Err() when cancelled; rows already
// evaluated are discarded to avoid a partially-ordered table.
func (r *Runner) Run(ctx context.Context, bars []domain.PriceBar, base domain.StrategyParams, grid Grid, signalFn strategy.SignalFunc) (*Table, error) {
	variants := grid.Expand(base)
	rows := make([]Row, len(variants))

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(r.cfg.Workers)
	for w := 0; w < r.cfg.Workers; w++ {
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
					rows[idx] = r.evaluate(ctx, idx, bars, variants[idx], signalFn)
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
	return &Table{Target: r.cfg.TargetMetric, Rows: rows}, nil
}

func (r *Runner) evaluate(ctx context.Context, idx int, bars []domain.PriceBar, params domain.StrategyParams, signalFn strategy.SignalFunc) Row {
	cfg := r.cfg.Engine
	cfg.RunID = idhash.RunID(r.cfg.CampaignID, params.Version, "sensitivity")
	cfg.Classifier = nil // New fills a private classifier per engine

	row := Row{Index: idx, Params: params}
	res, err := engine.New(cfg).Run(ctx, bars, params, signalFn)
	if err != nil {
		row.Err = err
		log.Printf("sensitivity: variant %d failed params_version=%s: %v", idx, params.Version, err)
		return row
	}
	row.Metrics = res.Metrics
	row.Unstable = res.Unstable
	return row
}

// metricValue extracts the target metric from a metrics record.
func metricValue(m domain.PerformanceMetrics, target string) float64 {
	switch strings.ToLower(target) {
	case TargetSharpe:
		return m.Sharpe
	case TargetCAGR:
		return m.CAGRRealistic
	case TargetTotalReturn:
		return m.TotalReturnPct
	default:
		return m.Calmar
	}
}
