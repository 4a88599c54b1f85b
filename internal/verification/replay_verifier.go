package verification

import (
	"context"
	"errors"
	"fmt"

	"campaign-lab/internal/artifact"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/storage"
	"campaign-lab/internal/strategy"
)

// ErrRunNotFound is returned when no trades exist for the run ID.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier replays runs against their stored artifacts.
type ReplayVerifier struct {
	tradeStore  storage.TradeStore
	equityStore storage.EquityCurveStore
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	TradeStore  storage.TradeStore
	EquityStore storage.EquityCurveStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		tradeStore:  opts.TradeStore,
		equityStore: opts.EquityStore,
	}
}

// VerifyRun re-executes a run with the given bars and parameters and
// compares the regenerated ledger and equity curve to the stored ones.
// cfg must carry the same engine configuration the original run used;
// the RunID is overwritten with the verified run's ID.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string, cfg engine.Config, bars []domain.PriceBar, params domain.StrategyParams) (*RunVerification, error) {
	// 1. Load stored artifacts
	storedTrades, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored trades: %w", err)
	}
	if len(storedTrades) == 0 {
		return nil, ErrRunNotFound
	}

	storedEquity, err := v.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored equity: %w", err)
	}

	// 2. Replay
	signalFn, err := strategy.FromParams(params)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	cfg.RunID = runID
	result, err := engine.New(cfg).Run(ctx, bars, params, signalFn)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	// 3. Compare
	report := &RunVerification{
		RunID:                  runID,
		StoredEquityChecksum:   artifact.EquityChecksum(storedEquity),
		ReplayedEquityChecksum: artifact.EquityChecksum(result.Equity),
		TotalTrades:            len(storedTrades),
	}

	stored := make([]domain.Trade, len(storedTrades))
	for i, t := range storedTrades {
		stored[i] = *t
	}
	report.StoredLedgerChecksum = artifact.LedgerChecksum(stored)
	report.ReplayedLedgerChecksum = artifact.LedgerChecksum(result.Trades)

	report.Trades = make([]TradeVerification, 0, len(storedTrades))
	for i, st := range storedTrades {
		tv := TradeVerification{TradeID: st.TradeID}
		if i < len(result.Trades) {
			replayed := result.Trades[i]
			tv.Divergences = CompareTrades(st, &replayed)
		} else {
			tv.Divergences = []FieldDivergence{
				{Field: "Trade", Expected: st.TradeID, Actual: nil},
			}
		}
		tv.Match = len(tv.Divergences) == 0
		if tv.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
		report.Trades = append(report.Trades, tv)
	}

	// Extra replayed trades that have no stored counterpart.
	for i := len(storedTrades); i < len(result.Trades); i++ {
		report.Trades = append(report.Trades, TradeVerification{
			TradeID: result.Trades[i].TradeID,
			Divergences: []FieldDivergence{
				{Field: "Trade", Expected: nil, Actual: result.Trades[i].TradeID},
			},
		})
		report.DivergentTrades++
	}

	report.Match = report.DivergentTrades == 0 &&
		report.StoredLedgerChecksum == report.ReplayedLedgerChecksum &&
		report.StoredEquityChecksum == report.ReplayedEquityChecksum

	return report, nil
}
