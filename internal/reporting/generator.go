package reporting

import (
	"context"
	"errors"
	"time"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// Generator produces campaign reports from stored data.
type Generator struct {
	resultStore   storage.CampaignResultStore
	championStore storage.ChampionStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(resultStore storage.CampaignResultStore, championStore storage.ChampionStore) *Generator {
	return &Generator{
		resultStore:   resultStore,
		championStore: championStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one campaign run.
func (g *Generator) Generate(ctx context.Context, campaignID string) (*Report, error) {
	results, err := g.resultStore.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:  g.now(),
		CampaignID:   campaignID,
		VariantCount: len(results),
	}

	if len(results) > 0 {
		report.Asset = results[0].Asset
		report.Venue = results[0].Venue
	}

	report.Variants = variantRows(results)
	report.Promoted, report.Guardrails = decisiveVariant(results)

	if report.Asset != "" && g.championStore != nil {
		champions, err := g.championStore.History(ctx, report.Asset, report.Venue)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		report.Champions = championRows(champions)
	}

	return report, nil
}

// variantRows converts stored results into report rows. Store order
// (created_at, result_id) is preserved.
func variantRows(results []*domain.CampaignResult) []VariantRow {
	rows := make([]VariantRow, len(results))
	for i, r := range results {
		rows[i] = VariantRow{
			ResultID:        r.ResultID,
			ParamsVersion:   r.ParamsVersion,
			State:           string(r.State),
			OOSCalmar:       r.OutOfSample.Calmar,
			OOSSharpe:       r.OutOfSample.Sharpe,
			OOSMaxDDPct:     r.OutOfSample.MaxDrawdownPct,
			OOSTradeCount:   r.OutOfSample.TradeCount,
			RiskOfRuin:      r.RiskOfRuin,
			RuinIndeterm:    r.RuinIndeterm,
			BootstrapP05:    r.BootstrapCalmr.P05,
			CAGRRealistic:   r.OutOfSample.CAGRRealistic,
			RejectReason:    r.RejectReason,
			DatasetChecksum: r.DatasetChecksum,
			LedgerChecksum:  r.LedgerChecksum,
		}
	}
	return rows
}

// decisiveVariant picks the variant whose guardrail table the report
// shows: the promoted one, else the first candidate, else the first
// result.
func decisiveVariant(results []*domain.CampaignResult) (string, []GuardrailRow) {
	var promoted string
	var decisive *domain.CampaignResult

	for _, r := range results {
		if r.State == domain.StatePromoted {
			promoted = r.ResultID
			decisive = r
			break
		}
	}
	if decisive == nil {
		for _, r := range results {
			if r.State == domain.StateCandidate {
				decisive = r
				break
			}
		}
	}
	if decisive == nil && len(results) > 0 {
		decisive = results[0]
	}
	if decisive == nil {
		return "", nil
	}

	rows := make([]GuardrailRow, len(decisive.Guardrails))
	for i, c := range decisive.Guardrails {
		rows[i] = GuardrailRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return promoted, rows
}

// championRows converts champion history to lineage rows.
func championRows(champions []*domain.Champion) []ChampionRow {
	rows := make([]ChampionRow, len(champions))
	for i, c := range champions {
		rows[i] = ChampionRow{
			ChampionID:     c.ChampionID,
			ParamsVersion:  c.ParamsVersion,
			ResultID:       c.ResultID,
			Active:         c.Active,
			ActivatedAtMs:  c.ActivatedAtMs,
			SupersededAtMs: c.SupersededAtMs,
		}
	}
	return rows
}
