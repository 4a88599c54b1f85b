// Package engine replays a price series bar-by-bar through a strategy's
// signal function, producing a trade ledger and parallel theoretical
// (frictionless) and realistic (cost-adjusted) equity curves.
//
// A single replay is strictly sequential: regime and parameter state
// carries across bars, so bar order is a correctness requirement, not a
// performance choice. Parallelism belongs one level up, across
// independent runs with private engine state.
package engine

import (
	"context"
	"log"
	"math"

	"campaign-lab/internal/allocation"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/idhash"
	"campaign-lab/internal/regime"
	"campaign-lab/internal/strategy"
)

// CostModel expresses execution frictions in basis points. Slippage moves
// the fill against the trader on both entry and exit; commission is
// charged on notional at each side. Frictions apply to the realistic
// curve only.
type CostModel struct {
	SlippageBps   float64 // per-side slippage
	CommissionBps float64 // per-side commission
}

// DefaultCostModel mirrors typical spot-venue taker costs.
func DefaultCostModel() CostModel {
	return CostModel{SlippageBps: 3, CommissionBps: 4}
}

// Config holds everything one backtest run needs besides the bars, the
// parameters, and the signal function.
type Config struct {
	RunID          string
	Asset          string
	Venue          string
	InitialCapital float64 // default 10_000
	Costs          CostModel

	// Regime machinery. Each run owns a private classifier and
	// transition manager; nothing is shared across concurrent runs.
	Classifier   regime.Classifier
	RegimeWindow int // trailing bars for per-bar regime recompute, default 120
	Transitions  regime.TransitionConfig
	Playbooks    map[domain.Regime]domain.StrategyParams
	Allocator    *allocation.Allocator

	// DivergenceTolerancePct flags the run unstable when theoretical and
	// realistic equity diverge beyond this percentage. Default 20.
	DivergenceTolerancePct float64
}

// Result is a completed backtest run.
type Result struct {
	RunID       string
	Trades      []domain.Trade
	Equity      []domain.EquityPoint
	Metrics     domain.PerformanceMetrics
	Transitions []regime.Transition
	FinalRegime domain.RegimeSnapshot

	SkippedBars int  // invalid bars skipped during replay
	Unstable    bool // divergence exceeded tolerance at some point
}

// Engine replays bars through a signal function. Construct one engine per
// run; it is not safe for concurrent use.
type Engine struct {
	cfg Config
}

// position tracks one open position during replay.
type position struct {
	direction      domain.Direction
	entryIdx       int
	entryTsMs      int64
	entryTheo      float64 // frictionless entry fill
	entryReal      float64 // slippage-adjusted entry fill
	unitsTheo      float64
	unitsReal      float64
	notionalTheo   float64
	notionalReal   float64
	entryCommission float64
	positionPct    float64
	stopPrice      float64
	takeProfit     float64
	maxHoldBars    int
	entryRegime    domain.RegimeSnapshot
}

// New creates an engine, applying defaults for zero config fields.
func New(cfg Config) *Engine {
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 10_000
	}
	if cfg.RegimeWindow == 0 {
		cfg.RegimeWindow = 120
	}
	if cfg.Classifier == nil {
		cfg.Classifier = regime.NewCentroidClassifier()
	}
	if cfg.Allocator == nil {
		cfg.Allocator = allocation.New(allocation.DefaultConfig())
	}
	if cfg.DivergenceTolerancePct == 0 {
		cfg.DivergenceTolerancePct = 20
	}
	if cfg.Transitions == (regime.TransitionConfig{}) {
		cfg.Transitions = regime.DefaultTransitionConfig()
	}
	return &Engine{cfg: cfg}
}

// Run replays the bar series. The signal function only ever sees the
// window up to and including the current bar. Returns
// domain.ErrInsufficientData when the series cannot cover the regime
// window plus a minimal decision span.
func (e *Engine) Run(ctx context.Context, bars []domain.PriceBar, params domain.StrategyParams, signalFn strategy.SignalFunc) (*Result, error) {
	warmup := e.cfg.RegimeWindow
	if len(bars) < warmup+minDecisionBars {
		return nil, domain.InsufficientDataError("backtest", len(bars), warmup+minDecisionBars)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{RunID: e.cfg.RunID}
	transitions := regime.NewTransitionManager(e.cfg.Transitions, e.cfg.Playbooks)

	eqTheo := e.cfg.InitialCapital
	eqReal := e.cfg.InitialCapital
	var open *position
	snapshot := domain.UniformSnapshot(bars[warmup-1].TimestampMs)

	for i := warmup; i < len(bars); i++ {
		bar := bars[i]
		if !bar.Valid() {
			res.SkippedBars++
			log.Printf("engine: skipping invalid bar asset=%s ts=%d", e.cfg.Asset, bar.TimestampMs)
			continue
		}

		// Regime recompute from the fixed-length trailing window ending
		// at the current bar.
		snaps, err := e.cfg.Classifier.FitPredict(bars[i-e.cfg.RegimeWindow+1 : i+1])
		if err == nil && len(snaps) > 0 {
			snapshot = snaps[len(snaps)-1]
			snapshot.TimestampMs = bar.TimestampMs
		}
		if tr := transitions.Observe(snapshot); tr != nil {
			res.Transitions = append(res.Transitions, *tr)
		}

		// The merged set governs this bar's decision only; it is derived
		// fresh each bar and never written back into the base params.
		active := transitions.ActiveParams(params)

		if open != nil {
			if trade, closed := e.maybeClose(open, bars, i, active, signalFn); closed {
				eqTheo, eqReal = e.settle(trade, open, eqTheo, eqReal)
				res.Trades = append(res.Trades, *trade)
				open = nil
			}
		} else {
			sig := signalFn(bars[:i+1], active)
			if sig.Action == strategy.ActionBuy || sig.Action == strategy.ActionSell {
				open = e.openPosition(bar, i, sig, snapshot, active, eqTheo, eqReal)
			}
		}

		point := e.markToMarket(bar, open, eqTheo, eqReal)
		if math.Abs(point.DivergencePct) > e.cfg.DivergenceTolerancePct && !res.Unstable {
			// Flagged and completed: the divergence itself is diagnostic
			// output, not a reason to abort.
			res.Unstable = true
			log.Printf("engine: divergence %.2f%% exceeds tolerance %.2f%% asset=%s ts=%d",
				point.DivergencePct, e.cfg.DivergenceTolerancePct, e.cfg.Asset, bar.TimestampMs)
		}
		res.Equity = append(res.Equity, point)
	}

	// Force-close any open position at the last valid bar.
	if open != nil {
		if idx := lastValidIndex(bars); idx >= 0 {
			trade := e.closeAt(open, bars[idx], idx, domain.ExitReasonEndOfData)
			eqTheo, eqReal = e.settle(trade, open, eqTheo, eqReal)
			res.Trades = append(res.Trades, *trade)
			if n := len(res.Equity); n > 0 {
				res.Equity[n-1] = e.markToMarket(bars[idx], nil, eqTheo, eqReal)
			}
		}
	}

	res.FinalRegime = snapshot
	res.Metrics = ComputeMetrics(res.Equity, res.Trades, e.cfg.InitialCapital)
	res.Metrics.SkippedBars = res.SkippedBars
	return res, nil
}

// minDecisionBars is the smallest span after warmup worth replaying.
const minDecisionBars = 10

// openPosition opens a position at the current bar's close, sized by the
// allocator from the current regime snapshot.
func (e *Engine) openPosition(bar domain.PriceBar, idx int, sig strategy.Signal, snap domain.RegimeSnapshot, params domain.StrategyParams, eqTheo, eqReal float64) *position {
	direction := domain.DirectionLong
	if sig.Action == strategy.ActionSell {
		direction = domain.DirectionShort
	}

	slip := e.cfg.Costs.SlippageBps / 10_000
	entryTheo := bar.Close
	entryReal := bar.Close * (1 + slip)
	if direction == domain.DirectionShort {
		entryReal = bar.Close * (1 - slip)
	}

	pct := e.cfg.Allocator.Allocate(snap)
	notionalTheo := eqTheo * pct
	notionalReal := eqReal * pct
	if notionalTheo <= 0 || notionalReal <= 0 {
		return nil // equity exhausted, nothing left to commit
	}
	commission := notionalReal * e.cfg.Costs.CommissionBps / 10_000

	stopLoss := params.Num("risk.stop_loss_pct", 5) / 100
	takeProfit := params.Num("risk.take_profit_pct", 10) / 100
	maxHold := int(params.Num("risk.max_hold_bars", 0))

	stop, tp := 0.0, 0.0
	if direction == domain.DirectionLong {
		stop = entryTheo * (1 - stopLoss)
		tp = entryTheo * (1 + takeProfit)
	} else {
		stop = entryTheo * (1 + stopLoss)
		tp = entryTheo * (1 - takeProfit)
	}

	return &position{
		direction:       direction,
		entryIdx:        idx,
		entryTsMs:       bar.TimestampMs,
		entryTheo:       entryTheo,
		entryReal:       entryReal,
		unitsTheo:       notionalTheo / entryTheo,
		unitsReal:       notionalReal / entryReal,
		notionalTheo:    notionalTheo,
		notionalReal:    notionalReal,
		entryCommission: commission,
		positionPct:     pct,
		stopPrice:       stop,
		takeProfit:      tp,
		maxHoldBars:     maxHold,
		entryRegime:     snap,
	}
}

// maybeClose checks exits in priority order: stop-loss, take-profit,
// max-hold. Exit fills use the triggering level for stops/targets and the
// close for time exits.
func (e *Engine) maybeClose(p *position, bars []domain.PriceBar, idx int, params domain.StrategyParams, _ strategy.SignalFunc) (*domain.Trade, bool) {
	bar := bars[idx]

	stopHit := false
	tpHit := false
	if p.direction == domain.DirectionLong {
		stopHit = bar.Low <= p.stopPrice
		tpHit = bar.High >= p.takeProfit
	} else {
		stopHit = bar.High >= p.stopPrice
		tpHit = bar.Low <= p.takeProfit
	}

	switch {
	case stopHit:
		return e.closeAtPrice(p, bar, idx, p.stopPrice, domain.ExitReasonStopLoss), true
	case tpHit:
		return e.closeAtPrice(p, bar, idx, p.takeProfit, domain.ExitReasonTakeProfit), true
	case p.maxHoldBars > 0 && idx-p.entryIdx >= p.maxHoldBars:
		return e.closeAt(p, bar, idx, domain.ExitReasonMaxHold), true
	default:
		return nil, false
	}
}

// closeAt closes at the bar's close price.
func (e *Engine) closeAt(p *position, bar domain.PriceBar, idx int, reason string) *domain.Trade {
	return e.closeAtPrice(p, bar, idx, bar.Close, reason)
}

// closeAtPrice closes at an explicit exit level, applying slippage and
// commission to the realistic variant only.
func (e *Engine) closeAtPrice(p *position, bar domain.PriceBar, idx int, price float64, reason string) *domain.Trade {
	slip := e.cfg.Costs.SlippageBps / 10_000

	exitTheo := price
	exitReal := price * (1 - slip)
	if p.direction == domain.DirectionShort {
		exitReal = price * (1 + slip)
	}

	exitNotionalReal := p.unitsReal * exitReal
	exitCommission := exitNotionalReal * e.cfg.Costs.CommissionBps / 10_000

	var pnlTheo, pnlReal float64
	if p.direction == domain.DirectionLong {
		pnlTheo = p.unitsTheo*(exitTheo-p.entryTheo) / p.notionalTheo * 100
		pnlReal = (p.unitsReal*(exitReal-p.entryReal) - p.entryCommission - exitCommission) / p.notionalReal * 100
	} else {
		pnlTheo = p.unitsTheo*(p.entryTheo-exitTheo) / p.notionalTheo * 100
		pnlReal = (p.unitsReal*(p.entryReal-exitReal) - p.entryCommission - exitCommission) / p.notionalReal * 100
	}

	return &domain.Trade{
		TradeID:           idhash.TradeID(e.cfg.RunID, p.entryTsMs, string(p.direction)),
		RunID:             e.cfg.RunID,
		Asset:             e.cfg.Asset,
		Venue:             e.cfg.Venue,
		EntryTimestampMs:  p.entryTsMs,
		EntryTheoretical:  p.entryTheo,
		EntryRealistic:    p.entryReal,
		Direction:         p.direction,
		PositionPct:       p.positionPct,
		ExitTimestampMs:   bar.TimestampMs,
		ExitTheoretical:   exitTheo,
		ExitRealistic:     exitReal,
		ExitReason:        reason,
		PnLTheoreticalPct: pnlTheo,
		PnLRealisticPct:   pnlReal,
		HoldBars:          idx - p.entryIdx,
		HoldDurationMs:    bar.TimestampMs - p.entryTsMs,
		EntryRegime:       p.entryRegime,
	}
}

// settle applies a closed trade's PnL to both equity curves. Realistic
// equity reflects cumulative frictions applied in trade order.
func (e *Engine) settle(t *domain.Trade, p *position, eqTheo, eqReal float64) (float64, float64) {
	eqTheo += p.notionalTheo * t.PnLTheoreticalPct / 100
	eqReal += p.notionalReal * t.PnLRealisticPct / 100
	return eqTheo, eqReal
}

// markToMarket values open positions at the bar close and records the
// divergence between the two curves.
func (e *Engine) markToMarket(bar domain.PriceBar, open *position, eqTheo, eqReal float64) domain.EquityPoint {
	mtmTheo, mtmReal := eqTheo, eqReal
	if open != nil {
		if open.direction == domain.DirectionLong {
			mtmTheo += open.unitsTheo * (bar.Close - open.entryTheo)
			mtmReal += open.unitsReal*(bar.Close-open.entryReal) - open.entryCommission
		} else {
			mtmTheo += open.unitsTheo * (open.entryTheo - bar.Close)
			mtmReal += open.unitsReal*(open.entryReal-bar.Close) - open.entryCommission
		}
	}
	return domain.EquityPoint{
		TimestampMs:   bar.TimestampMs,
		Theoretical:   mtmTheo,
		Realistic:     mtmReal,
		DivergencePct: domain.Divergence(mtmTheo, mtmReal),
	}
}

func lastValidIndex(bars []domain.PriceBar) int {
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Valid() {
			return i
		}
	}
	return -1
}
