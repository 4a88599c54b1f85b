package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage/memory"
)

func seedResult(resultID, campaignID string, state domain.CampaignState, calmar float64, createdAtMs int64) *domain.CampaignResult {
	params := domain.NewStrategyParams()
	params.Numeric["breakout.lookback"] = 40
	params.Version = params.Fingerprint()

	r := &domain.CampaignResult{
		ResultID:      resultID,
		CampaignID:    campaignID,
		Asset:         "SOL",
		Venue:         "raydium",
		ParamsVersion: params.Version,
		Params:        params,
		OutOfSample: domain.PerformanceMetrics{
			Calmar:         calmar,
			Sharpe:         1.8,
			MaxDrawdownPct: 12.5,
			TradeCount:     60,
			CAGRRealistic:  35,
		},
		RiskOfRuin:     0.01,
		BootstrapCalmr: domain.BootstrapBounds{Metric: "calmar", P05: 1.1, P50: calmar, P95: calmar + 1},
		State:          state,
		Guardrails: []domain.GuardrailCheck{
			{Name: "oos_calmar", Threshold: ">= 1.50", Actual: "2.00", Pass: true},
			{Name: "risk_of_ruin", Threshold: "<= 0.05", Actual: "0.01", Pass: true},
		},
		Valid:           true,
		DatasetChecksum: "dataset-check",
		LedgerChecksum:  "ledger-check",
		CreatedAtMs:     createdAtMs,
	}
	if state == domain.StateRejected {
		r.RejectReason = "oos_calmar below floor"
	}
	return r
}

func TestGenerator_ReportsPromotedVariant(t *testing.T) {
	ctx := context.Background()
	results := memory.NewCampaignResultStore()
	champions := memory.NewChampionStore()

	require.NoError(t, results.Insert(ctx, seedResult("res-win", "camp-1", domain.StatePromoted, 2.4, 1000)))
	require.NoError(t, results.Insert(ctx, seedResult("res-lose", "camp-1", domain.StateRejected, 1.1, 2000)))

	champ := &domain.Champion{
		ChampionID:    "champ-1",
		Asset:         "SOL",
		Venue:         "raydium",
		ResultID:      "res-win",
		ActivatedAtMs: 3000,
	}
	require.NoError(t, champions.Swap(ctx, champ))

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(results, champions).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(ctx, "camp-1")
	require.NoError(t, err)

	assert.Equal(t, fixed, report.GeneratedAt)
	assert.Equal(t, "camp-1", report.CampaignID)
	assert.Equal(t, "SOL", report.Asset)
	assert.Equal(t, 2, report.VariantCount)
	assert.Equal(t, "res-win", report.Promoted)
	require.Len(t, report.Variants, 2)
	assert.Equal(t, "res-win", report.Variants[0].ResultID)
	assert.Equal(t, string(domain.StateRejected), report.Variants[1].State)
	require.Len(t, report.Guardrails, 2)
	assert.Equal(t, "oos_calmar", report.Guardrails[0].Name)
	require.Len(t, report.Champions, 1)
	assert.True(t, report.Champions[0].Active)
}

func TestGenerator_NoPromotionShowsCandidateGuardrails(t *testing.T) {
	ctx := context.Background()
	results := memory.NewCampaignResultStore()

	require.NoError(t, results.Insert(ctx, seedResult("res-rej", "camp-2", domain.StateRejected, 0.9, 1000)))
	require.NoError(t, results.Insert(ctx, seedResult("res-cand", "camp-2", domain.StateCandidate, 1.8, 2000)))

	gen := NewGenerator(results, memory.NewChampionStore())
	report, err := gen.Generate(ctx, "camp-2")
	require.NoError(t, err)

	assert.Empty(t, report.Promoted)
	assert.NotEmpty(t, report.Guardrails)
	assert.Empty(t, report.Champions)
}

func TestGenerator_EmptyCampaign(t *testing.T) {
	gen := NewGenerator(memory.NewCampaignResultStore(), memory.NewChampionStore())

	report, err := gen.Generate(context.Background(), "camp-empty")
	require.NoError(t, err)
	assert.Zero(t, report.VariantCount)
	assert.Empty(t, report.Variants)
	assert.Empty(t, report.Guardrails)
}

func TestRenderMarkdown_ContainsSections(t *testing.T) {
	report := &Report{
		GeneratedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CampaignID:   "camp-1",
		Asset:        "SOL",
		Venue:        "raydium",
		VariantCount: 1,
		Promoted:     "res-win",
		Variants: []VariantRow{
			{ResultID: "res-win", ParamsVersion: "v1", State: "PROMOTED", OOSCalmar: 2.4, OOSTradeCount: 60},
		},
		Guardrails: []GuardrailRow{
			{Name: "oos_calmar", Threshold: ">= 1.50", Actual: "2.40", Pass: true},
			{Name: "risk_of_ruin", Threshold: "<= 0.05", Actual: "0.10", Pass: false},
		},
		Champions: []ChampionRow{
			{ChampionID: "champ-1", ResultID: "res-win", Active: true, ActivatedAtMs: 3000},
		},
	}

	md := RenderMarkdown(report)

	assert.Contains(t, md, "# Campaign Report")
	assert.Contains(t, md, "## Variants")
	assert.Contains(t, md, "## Guardrails")
	assert.Contains(t, md, "## Champion Lineage")
	assert.Contains(t, md, "**Promoted:** `res-win`")
	assert.Contains(t, md, "| oos_calmar | >= 1.50 | 2.40 | PASS |")
	assert.Contains(t, md, "| risk_of_ruin | <= 0.05 | 0.10 | FAIL |")
}

func TestRenderMarkdown_IndeterminateRuin(t *testing.T) {
	report := &Report{
		Variants: []VariantRow{
			{ResultID: "res-1", State: "REJECTED", RuinIndeterm: true},
		},
	}

	md := RenderMarkdown(report)
	assert.Contains(t, md, "indeterminate")
}

func TestRenderCSV_RoundsAndEscapes(t *testing.T) {
	rows := []VariantRow{
		{
			ResultID:        "res-1",
			ParamsVersion:   "v1",
			State:           "REJECTED",
			OOSCalmar:       1.234567,
			OOSTradeCount:   42,
			RejectReason:    "gap too large, coverage low",
			DatasetChecksum: "abc",
			LedgerChecksum:  "def",
		},
	}

	csv := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "result_id,params_version,state"))
	assert.Contains(t, lines[1], "1.234567")
	// Reject reasons must not break column alignment.
	assert.Contains(t, lines[1], "gap too large; coverage low")
	assert.Equal(t, strings.Count(lines[0], ","), strings.Count(lines[1], ","))
}
