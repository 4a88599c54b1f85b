// Package config loads campaign settings from a YAML file. Every key is
// optional: absent or malformed sections fall back to the compiled-in
// defaults so a partial file is always runnable. The file is the operator
// surface for base parameters, regime playbooks, allocator multipliers,
// guardrail thresholds, and the cost model.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"campaign-lab/internal/allocation"
	"campaign-lab/internal/campaign"
	"campaign-lab/internal/domain"
	"campaign-lab/internal/engine"
)

// ParamsSection mirrors domain.StrategyParams in YAML form.
type ParamsSection struct {
	Numeric     map[string]float64 `yaml:"numeric"`
	Categorical map[string]string  `yaml:"categorical"`
}

// AllocatorSection overrides allocation.Config fields. Pointers
// distinguish "absent, keep default" from an explicit zero.
type AllocatorSection struct {
	CalmMultiplier     *float64 `yaml:"calm_multiplier"`
	BalancedMultiplier *float64 `yaml:"balanced_multiplier"`
	StressMultiplier   *float64 `yaml:"stress_multiplier"`
	StressThreshold    *float64 `yaml:"stress_threshold"`
	MinPositionPct     *float64 `yaml:"min_position_pct"`
	MaxPositionPct     *float64 `yaml:"max_position_pct"`
}

// GuardrailSection overrides campaign.GuardrailConfig thresholds.
type GuardrailSection struct {
	MinWindowDays      *float64 `yaml:"min_window_days"`
	MinMonthlyCoverage *float64 `yaml:"min_monthly_coverage"`
	MaxGapDays         *float64 `yaml:"max_gap_days"`
	MinOOSCalmar       *float64 `yaml:"min_oos_calmar"`
	MaxDrawdownPct     *float64 `yaml:"max_drawdown_pct"`
	MaxRiskOfRuin      *float64 `yaml:"max_risk_of_ruin"`
	MinOOSDays         *float64 `yaml:"min_oos_days"`
	MaxCAGRDivergence  *float64 `yaml:"max_cagr_divergence"`
	MinBootstrapCalmar *float64 `yaml:"min_bootstrap_calmar"`
	MinTradeCount      *int     `yaml:"min_trade_count"`
	MinDurationMonths  *float64 `yaml:"min_duration_months"`
}

// CostsSection overrides the engine cost model in basis points.
type CostsSection struct {
	SlippageBps   *float64 `yaml:"slippage_bps"`
	CommissionBps *float64 `yaml:"commission_bps"`
}

// File is the full on-disk schema.
type File struct {
	Asset string `yaml:"asset"`
	Venue string `yaml:"venue"`

	Params    ParamsSection            `yaml:"params"`
	Playbooks map[string]ParamsSection `yaml:"playbooks"`

	Allocator  AllocatorSection `yaml:"allocator"`
	Guardrails GuardrailSection `yaml:"guardrails"`
	Costs      CostsSection     `yaml:"costs"`
}

// Default returns an empty file whose accessors all yield the compiled-in
// defaults.
func Default() *File {
	return &File{}
}

// Load reads and parses the YAML file at path. The returned *File is
// always usable: a missing or malformed file yields Default() alongside
// the error, so callers can log and keep running on defaults.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// StrategyParams converts the params section into a versioned parameter
// set. The version is always the content fingerprint.
func (f *File) StrategyParams() domain.StrategyParams {
	return toParams(f.Params)
}

func toParams(s ParamsSection) domain.StrategyParams {
	p := domain.NewStrategyParams()
	for k, v := range s.Numeric {
		p.Numeric[k] = v
	}
	for k, v := range s.Categorical {
		p.Categorical[k] = v
	}
	p.Version = p.Fingerprint()
	return p
}

// regimeKeys maps playbook section names to regimes. Unknown keys are
// ignored rather than rejected.
var regimeKeys = map[string]domain.Regime{
	"calm":     domain.RegimeCalm,
	"balanced": domain.RegimeBalanced,
	"stress":   domain.RegimeStress,
}

// PlaybookSet builds the per-regime parameter overrides the engine swaps
// in on confirmed transitions. Regimes absent from the file get no
// override entry.
func (f *File) PlaybookSet() map[domain.Regime]domain.StrategyParams {
	out := make(map[domain.Regime]domain.StrategyParams, len(f.Playbooks))
	for key, section := range f.Playbooks {
		regime, ok := regimeKeys[key]
		if !ok {
			continue
		}
		out[regime] = toParams(section)
	}
	return out
}

// AllocatorConfig applies the allocator overrides on top of the defaults.
func (f *File) AllocatorConfig() allocation.Config {
	cfg := allocation.DefaultConfig()
	setF(&cfg.CalmMultiplier, f.Allocator.CalmMultiplier)
	setF(&cfg.BalancedMultiplier, f.Allocator.BalancedMultiplier)
	setF(&cfg.StressMultiplier, f.Allocator.StressMultiplier)
	setF(&cfg.StressThreshold, f.Allocator.StressThreshold)
	setF(&cfg.MinPositionPct, f.Allocator.MinPositionPct)
	setF(&cfg.MaxPositionPct, f.Allocator.MaxPositionPct)
	return cfg
}

// GuardrailConfig applies the guardrail overrides on top of the defaults.
func (f *File) GuardrailConfig() campaign.GuardrailConfig {
	cfg := campaign.DefaultGuardrailConfig()
	setF(&cfg.MinWindowDays, f.Guardrails.MinWindowDays)
	setF(&cfg.MinMonthlyCoverage, f.Guardrails.MinMonthlyCoverage)
	setF(&cfg.MaxGapDays, f.Guardrails.MaxGapDays)
	setF(&cfg.MinOOSCalmar, f.Guardrails.MinOOSCalmar)
	setF(&cfg.MaxDrawdownPct, f.Guardrails.MaxDrawdownPct)
	setF(&cfg.MaxRiskOfRuin, f.Guardrails.MaxRiskOfRuin)
	setF(&cfg.MinOOSDays, f.Guardrails.MinOOSDays)
	setF(&cfg.MaxCAGRDivergence, f.Guardrails.MaxCAGRDivergence)
	setF(&cfg.MinBootstrapCalmar, f.Guardrails.MinBootstrapCalmar)
	setF(&cfg.MinDurationMonths, f.Guardrails.MinDurationMonths)
	if f.Guardrails.MinTradeCount != nil {
		cfg.MinTradeCount = *f.Guardrails.MinTradeCount
	}
	return cfg
}

// CostModel applies the cost overrides on top of the defaults.
func (f *File) CostModel() engine.CostModel {
	cfg := engine.DefaultCostModel()
	setF(&cfg.SlippageBps, f.Costs.SlippageBps)
	setF(&cfg.CommissionBps, f.Costs.CommissionBps)
	return cfg
}

func setF(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
