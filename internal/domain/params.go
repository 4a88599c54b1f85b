package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// StrategyParams is a flat mapping from dotted parameter name to value,
// e.g. "breakout.lookback" -> 40. Params are immutable once referenced by
// a completed run; Version identifies the exact content.
type StrategyParams struct {
	Version     string             // opaque params_version, usually Fingerprint()
	Numeric     map[string]float64 // numeric parameters
	Categorical map[string]string  // categorical parameters
}

// NewStrategyParams creates an empty parameter set.
func NewStrategyParams() StrategyParams {
	return StrategyParams{
		Numeric:     make(map[string]float64),
		Categorical: make(map[string]string),
	}
}

// Num returns the numeric parameter for key, or def when absent.
// Absent keys are never an error: defaults always apply.
func (p StrategyParams) Num(key string, def float64) float64 {
	if v, ok := p.Numeric[key]; ok {
		return v
	}
	return def
}

// Cat returns the categorical parameter for key, or def when absent.
func (p StrategyParams) Cat(key string, def string) string {
	if v, ok := p.Categorical[key]; ok {
		return v
	}
	return def
}

// Clone returns a deep copy. Decision code always receives its own copy so
// concurrent variant evaluations never share parameter state.
func (p StrategyParams) Clone() StrategyParams {
	out := StrategyParams{
		Version:     p.Version,
		Numeric:     make(map[string]float64, len(p.Numeric)),
		Categorical: make(map[string]string, len(p.Categorical)),
	}
	for k, v := range p.Numeric {
		out.Numeric[k] = v
	}
	for k, v := range p.Categorical {
		out.Categorical[k] = v
	}
	return out
}

// Merge returns a copy of p with override applied on top; override keys win.
// Used for regime playbooks overriding base parameters.
func (p StrategyParams) Merge(override StrategyParams) StrategyParams {
	out := p.Clone()
	for k, v := range override.Numeric {
		out.Numeric[k] = v
	}
	for k, v := range override.Categorical {
		out.Categorical[k] = v
	}
	out.Version = out.Fingerprint()
	return out
}

// Fingerprint computes a deterministic content hash over the canonical
// (sorted) encoding of all parameters. Two equal parameter sets always
// produce the same fingerprint regardless of map iteration order.
func (p StrategyParams) Fingerprint() string {
	keys := make([]string, 0, len(p.Numeric)+len(p.Categorical))
	for k := range p.Numeric {
		keys = append(keys, "n:"+k)
	}
	for k := range p.Categorical {
		keys = append(keys, "c:"+k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		name := k[2:]
		switch k[0] {
		case 'n':
			sb.WriteString(fmt.Sprintf("%s=%.12g|", name, p.Numeric[name]))
		case 'c':
			sb.WriteString(fmt.Sprintf("%s=%s|", name, p.Categorical[name]))
		}
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
