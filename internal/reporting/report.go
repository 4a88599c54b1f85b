package reporting

import "time"

// Report is the campaign report structure rendered to Markdown and CSV.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	CampaignID  string
	Asset       string
	Venue       string

	// Variant outcomes (sorted by created_at, result_id)
	VariantCount int
	Promoted     string // result_id of the promoted variant, empty when none
	Variants     []VariantRow

	// Guardrails of the decisive variant (promoted, or best candidate)
	Guardrails []GuardrailRow

	// Champion lineage for the pair, oldest first
	Champions []ChampionRow
}

// VariantRow is one campaign result in the variants table.
type VariantRow struct {
	ResultID        string
	ParamsVersion   string
	State           string
	OOSCalmar       float64
	OOSSharpe       float64
	OOSMaxDDPct     float64
	OOSTradeCount   int
	RiskOfRuin      float64
	RuinIndeterm    bool
	BootstrapP05    float64
	CAGRRealistic   float64
	RejectReason    string
	DatasetChecksum string
	LedgerChecksum  string
}

// GuardrailRow is one guardrail outcome.
type GuardrailRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ChampionRow is one entry in the champion lineage table.
type ChampionRow struct {
	ChampionID     string
	ParamsVersion  string
	ResultID       string
	Active         bool
	ActivatedAtMs  int64
	SupersededAtMs int64
}
