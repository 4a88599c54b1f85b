// Package ruin estimates risk of ruin by Monte Carlo resampling of a
// closed trade ledger. Trajectories draw outcomes with replacement from
// the exact observed set, preserving the empirical marginal distribution
// rather than fitting a parametric model to it.
package ruin

import (
	"math/rand"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/stats"
)

// Config controls a simulation batch.
type Config struct {
	Trials         int     // resampled trajectories, default 5_000
	RuinThreshold  float64 // ruin when equity <= threshold * initial, default 0.5
	InitialCapital float64 // default 10_000
	Seed           int64   // drives every draw; same seed, same result
}

// Result summarizes the trajectory ensemble.
type Result struct {
	Trials          int
	RuinProbability float64
	// Indeterminate is set when no trade outcomes were available. The
	// probability is then pinned to 1 so downstream gates treat the
	// unknown as unsafe rather than as a false "safe" signal.
	Indeterminate bool

	DrawdownP50 float64 // max-drawdown percentiles across trajectories, pct
	DrawdownP95 float64
	DrawdownP99 float64

	LossStreakP50 float64 // max consecutive-loss streak percentiles
	LossStreakP95 float64
	LossStreakMax int
}

// Simulator runs seeded resampling batches.
type Simulator struct {
	cfg Config
}

// New creates a simulator, applying defaults for zero config fields.
func New(cfg Config) *Simulator {
	if cfg.Trials == 0 {
		cfg.Trials = 5_000
	}
	if cfg.RuinThreshold == 0 {
		cfg.RuinThreshold = 0.5
	}
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 10_000
	}
	return &Simulator{cfg: cfg}
}

// outcome is one drawable trade result.
type outcome struct {
	pnlPct      float64
	positionPct float64
}

// FromLedger resamples a closed trade ledger. An empty ledger yields an
// indeterminate result, never a zero ruin probability.
func (s *Simulator) FromLedger(trades []domain.Trade) *Result {
	outcomes := make([]outcome, 0, len(trades))
	for _, t := range trades {
		outcomes = append(outcomes, outcome{pnlPct: t.PnLRealisticPct, positionPct: t.PositionPct})
	}
	return s.simulate(outcomes)
}

// FromSummary synthesizes an outcome set from win-rate and payoff
// statistics, for callers that hold only aggregate numbers. avgWinPct
// and avgLossPct are both positive magnitudes; positionPct applies to
// every synthetic trade.
func (s *Simulator) FromSummary(tradeCount int, winRate, avgWinPct, avgLossPct, positionPct float64) *Result {
	if tradeCount <= 0 || winRate < 0 || winRate > 1 {
		return s.simulate(nil)
	}

	wins := int(float64(tradeCount)*winRate + 0.5)
	outcomes := make([]outcome, 0, tradeCount)
	for i := 0; i < tradeCount; i++ {
		o := outcome{pnlPct: -avgLossPct, positionPct: positionPct}
		if i < wins {
			o.pnlPct = avgWinPct
		}
		outcomes = append(outcomes, o)
	}
	return s.simulate(outcomes)
}

func (s *Simulator) simulate(outcomes []outcome) *Result {
	res := &Result{Trials: s.cfg.Trials}
	if len(outcomes) == 0 {
		res.Indeterminate = true
		res.RuinProbability = 1
		return res
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	ruinLevel := s.cfg.InitialCapital * s.cfg.RuinThreshold

	ruined := 0
	drawdowns := make([]float64, 0, s.cfg.Trials)
	streaks := make([]float64, 0, s.cfg.Trials)

	for trial := 0; trial < s.cfg.Trials; trial++ {
		equity := s.cfg.InitialCapital
		peak := equity
		maxDD := 0.0
		streak, maxStreak := 0, 0
		hitRuin := false

		for step := 0; step < len(outcomes); step++ {
			o := outcomes[rng.Intn(len(outcomes))]
			equity += equity * o.positionPct * o.pnlPct / 100

			if o.pnlPct < 0 {
				streak++
				if streak > maxStreak {
					maxStreak = streak
				}
			} else {
				streak = 0
			}

			if equity > peak {
				peak = equity
			} else if peak > 0 {
				if dd := (peak - equity) / peak * 100; dd > maxDD {
					maxDD = dd
				}
			}
			if equity <= ruinLevel {
				hitRuin = true
				break
			}
		}

		if hitRuin {
			ruined++
		}
		drawdowns = append(drawdowns, maxDD)
		streaks = append(streaks, float64(maxStreak))
		if maxStreak > res.LossStreakMax {
			res.LossStreakMax = maxStreak
		}
	}

	res.RuinProbability = float64(ruined) / float64(s.cfg.Trials)
	res.DrawdownP50 = stats.Percentile(drawdowns, 50)
	res.DrawdownP95 = stats.Percentile(drawdowns, 95)
	res.DrawdownP99 = stats.Percentile(drawdowns, 99)
	res.LossStreakP50 = stats.Percentile(streaks, 50)
	res.LossStreakP95 = stats.Percentile(streaks, 95)
	return res
}
