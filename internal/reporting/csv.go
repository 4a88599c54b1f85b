package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders variant rows as a CSV string. Full hashes are kept
// so the file can drive downstream lookups.
func RenderCSV(variants []VariantRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("result_id,params_version,state,oos_calmar,oos_sharpe,oos_max_dd_pct,oos_trades,")
	sb.WriteString("risk_of_ruin,ruin_indeterminate,bootstrap_calmar_p05,cagr_realistic,")
	sb.WriteString("dataset_checksum,ledger_checksum,reject_reason\n")

	// Rows
	for _, v := range variants {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.6f,%.6f,%d,%.6f,%t,%.6f,%.6f,%s,%s,%s\n",
			v.ResultID,
			v.ParamsVersion,
			v.State,
			v.OOSCalmar,
			v.OOSSharpe,
			v.OOSMaxDDPct,
			v.OOSTradeCount,
			v.RiskOfRuin,
			v.RuinIndeterm,
			v.BootstrapP05,
			v.CAGRRealistic,
			v.DatasetChecksum,
			v.LedgerChecksum,
			strings.ReplaceAll(v.RejectReason, ",", ";"),
		))
	}

	return sb.String()
}
