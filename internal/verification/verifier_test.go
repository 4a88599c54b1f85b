package verification

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
	"campaign-lab/internal/storage/memory"
	"campaign-lab/internal/strategy"
)

func sampleTrade() domain.Trade {
	return domain.Trade{
		TradeID:           "trade-1",
		RunID:             "run-1",
		Asset:             "BTC-USD",
		Venue:             "test",
		EntryTimestampMs:  1_000,
		EntryTheoretical:  100.0,
		EntryRealistic:    100.15,
		Direction:         domain.DirectionLong,
		PositionPct:       0.25,
		ExitTimestampMs:   5_000,
		ExitTheoretical:   108.0,
		ExitRealistic:     107.82,
		ExitReason:        domain.ExitReasonTakeProfit,
		PnLTheoreticalPct: 8.0,
		PnLRealisticPct:   7.66,
		HoldBars:          4,
		HoldDurationMs:    4_000,
		EntryRegime: domain.RegimeSnapshot{
			TimestampMs: 1_000,
			Calm:        0.7,
			Balanced:    0.2,
			Stress:      0.1,
		},
	}
}

func TestCompareTrades_ExactMatch(t *testing.T) {
	stored := sampleTrade()
	replayed := stored

	assert.Empty(t, CompareTrades(&stored, &replayed))
}

func TestCompareTrades_FlagsDivergentFields(t *testing.T) {
	stored := sampleTrade()
	replayed := stored
	replayed.PnLRealisticPct += 0.01
	replayed.ExitReason = domain.ExitReasonStopLoss

	divs := CompareTrades(&stored, &replayed)
	require.Len(t, divs, 2)

	fields := make(map[string]bool, len(divs))
	for _, d := range divs {
		fields[d.Field] = true
	}
	assert.True(t, fields["PnLRealisticPct"])
	assert.True(t, fields["ExitReason"])
}

func TestCompareTrades_WithinTolerance(t *testing.T) {
	stored := sampleTrade()
	replayed := stored
	replayed.EntryRealistic += FloatTolerance / 10
	replayed.EntryRegime.Calm -= FloatTolerance / 10

	assert.Empty(t, CompareTrades(&stored, &replayed))
}

func TestCompareTrades_RegimeDivergence(t *testing.T) {
	stored := sampleTrade()
	replayed := stored
	replayed.EntryRegime.Stress = 0.5

	divs := CompareTrades(&stored, &replayed)
	require.Len(t, divs, 1)
	assert.Equal(t, "EntryRegime", divs[0].Field)
}

// replayBars is a seeded upward-drifting daily series.
func replayBars(n int, seed int64) []domain.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]domain.PriceBar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= math.Exp(0.0008 + rng.NormFloat64()*0.01)
		bars[i] = domain.PriceBar{
			TimestampMs: int64(i+1) * 86_400_000,
			Open:        price * 0.998,
			High:        price * 1.008,
			Low:         price * 0.992,
			Close:       price,
			Volume:      1000 + 500*rng.Float64(),
		}
	}
	return bars
}

func replayParams() domain.StrategyParams {
	p := domain.NewStrategyParams()
	p.Numeric["risk.stop_loss_pct"] = 90
	p.Numeric["risk.take_profit_pct"] = 500
	p.Numeric["risk.max_hold_bars"] = 5
	p.Numeric["breakout.lookback"] = 10
	p.Version = p.Fingerprint()
	return p
}

// seedRun executes a real run and persists its artifacts, returning the
// stores a verifier would be pointed at in production.
func seedRun(t *testing.T, runID string, cfg engine.Config, bars []domain.PriceBar, params domain.StrategyParams) (*memory.TradeStore, *memory.EquityCurveStore, *engine.Result) {
	t.Helper()
	ctx := context.Background()

	signalFn, err := strategy.FromParams(params)
	require.NoError(t, err)

	cfg.RunID = runID
	res, err := engine.New(cfg).Run(ctx, bars, params, signalFn)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	tradeStore := memory.NewTradeStore()
	trades := make([]*domain.Trade, len(res.Trades))
	for i := range res.Trades {
		trades[i] = &res.Trades[i]
	}
	require.NoError(t, tradeStore.InsertBulk(ctx, trades))

	equityStore := memory.NewEquityCurveStore()
	require.NoError(t, equityStore.InsertBulk(ctx, runID, res.Equity))

	return tradeStore, equityStore, res
}

func TestReplayVerifier_ReproducesStoredRun(t *testing.T) {
	cfg := engine.Config{Asset: "BTC-USD", Venue: "test"}
	bars := replayBars(400, 7)
	params := replayParams()

	tradeStore, equityStore, res := seedRun(t, "run-verify", cfg, bars, params)

	v := NewReplayVerifier(ReplayVerifierOptions{
		TradeStore:  tradeStore,
		EquityStore: equityStore,
	})

	report, err := v.VerifyRun(context.Background(), "run-verify", cfg, bars, params)
	require.NoError(t, err)

	assert.True(t, report.Match)
	assert.Equal(t, len(res.Trades), report.TotalTrades)
	assert.Equal(t, report.TotalTrades, report.MatchedTrades)
	assert.Zero(t, report.DivergentTrades)
	assert.Equal(t, report.StoredLedgerChecksum, report.ReplayedLedgerChecksum)
	assert.Equal(t, report.StoredEquityChecksum, report.ReplayedEquityChecksum)
}

func TestReplayVerifier_DetectsTamperedTrade(t *testing.T) {
	cfg := engine.Config{Asset: "BTC-USD", Venue: "test"}
	bars := replayBars(400, 7)
	params := replayParams()

	signalFn, err := strategy.FromParams(params)
	require.NoError(t, err)

	runCfg := cfg
	runCfg.RunID = "run-tampered"
	res, err := engine.New(runCfg).Run(context.Background(), bars, params, signalFn)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	// Store the ledger with one falsified outcome.
	trades := make([]*domain.Trade, len(res.Trades))
	for i := range res.Trades {
		tr := res.Trades[i]
		trades[i] = &tr
	}
	trades[0].PnLRealisticPct += 1.5
	trades[0].ExitRealistic *= 1.01

	ctx := context.Background()
	tradeStore := memory.NewTradeStore()
	require.NoError(t, tradeStore.InsertBulk(ctx, trades))
	equityStore := memory.NewEquityCurveStore()
	require.NoError(t, equityStore.InsertBulk(ctx, "run-tampered", res.Equity))

	v := NewReplayVerifier(ReplayVerifierOptions{
		TradeStore:  tradeStore,
		EquityStore: equityStore,
	})

	report, err := v.VerifyRun(ctx, "run-tampered", cfg, bars, params)
	require.NoError(t, err)

	assert.False(t, report.Match)
	assert.Equal(t, 1, report.DivergentTrades)
	assert.Equal(t, report.TotalTrades-1, report.MatchedTrades)
	assert.NotEqual(t, report.StoredLedgerChecksum, report.ReplayedLedgerChecksum)
	assert.Equal(t, report.StoredEquityChecksum, report.ReplayedEquityChecksum)

	bad := report.Trades[0]
	assert.False(t, bad.Match)
	require.NotEmpty(t, bad.Divergences)
	fields := make(map[string]bool, len(bad.Divergences))
	for _, d := range bad.Divergences {
		fields[d.Field] = true
	}
	assert.True(t, fields["PnLRealisticPct"])
	assert.True(t, fields["ExitRealistic"])
}

func TestReplayVerifier_UnknownRun(t *testing.T) {
	v := NewReplayVerifier(ReplayVerifierOptions{
		TradeStore:  memory.NewTradeStore(),
		EquityStore: memory.NewEquityCurveStore(),
	})

	_, err := v.VerifyRun(context.Background(), "missing", engine.Config{Asset: "BTC-USD", Venue: "test"}, replayBars(400, 1), replayParams())
	require.ErrorIs(t, err, ErrRunNotFound)
}
