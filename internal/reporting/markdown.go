package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a campaign report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Campaign Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Campaign: `%s`\n\n", r.CampaignID))
	sb.WriteString(fmt.Sprintf("Pair: %s @ %s | Variants: %d\n\n", r.Asset, r.Venue, r.VariantCount))

	if r.Promoted != "" {
		sb.WriteString(fmt.Sprintf("**Promoted:** `%s`\n\n", r.Promoted))
	} else {
		sb.WriteString("**Promoted:** none\n\n")
	}

	// Variants
	sb.WriteString("## Variants\n\n")
	if len(r.Variants) > 0 {
		sb.WriteString("| Result | Params | State | OOS Calmar | OOS Sharpe | OOS MaxDD% | Trades | Ruin | Calmar P05 | Reject Reason |\n")
		sb.WriteString("|--------|--------|-------|------------|------------|------------|--------|------|------------|---------------|\n")
		for _, v := range r.Variants {
			ruin := fmt.Sprintf("%.4f", v.RiskOfRuin)
			if v.RuinIndeterm {
				ruin = "indeterminate"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %.4f | %.2f | %d | %s | %.4f | %s |\n",
				short(v.ResultID), short(v.ParamsVersion), v.State,
				v.OOSCalmar, v.OOSSharpe, v.OOSMaxDDPct, v.OOSTradeCount,
				ruin, v.BootstrapP05, v.RejectReason))
		}
	} else {
		sb.WriteString("No variants recorded.\n")
	}
	sb.WriteString("\n")

	// Guardrails
	sb.WriteString("## Guardrails\n\n")
	if len(r.Guardrails) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.Guardrails {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
	} else {
		sb.WriteString("No guardrail checks recorded.\n")
	}
	sb.WriteString("\n")

	// Champion lineage
	sb.WriteString("## Champion Lineage\n\n")
	if len(r.Champions) > 0 {
		sb.WriteString("| Champion | Params | Result | Active | Activated (ms) | Superseded (ms) |\n")
		sb.WriteString("|----------|--------|--------|--------|----------------|------------------|\n")
		for _, c := range r.Champions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %t | %d | %d |\n",
				short(c.ChampionID), short(c.ParamsVersion), short(c.ResultID),
				c.Active, c.ActivatedAtMs, c.SupersededAtMs))
		}
	} else {
		sb.WriteString("No champion has been promoted for this pair.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// short truncates long hashes for table readability.
func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
