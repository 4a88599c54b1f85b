package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"campaign-lab/internal/domain"
)

// Manifest records the lineage of one exported run: which inputs
// produced which files, all pinned by checksum.
type Manifest struct {
	RunID           string         `json:"run_id"`
	CampaignID      string         `json:"campaign_id,omitempty"`
	Seed            int64          `json:"seed"`
	ParamsVersion   string         `json:"params_version"`
	DatasetChecksum string         `json:"dataset_checksum"`
	LedgerChecksum  string         `json:"ledger_checksum"`
	EquityChecksum  string         `json:"equity_checksum"`
	Files           []ManifestFile `json:"files"`
}

// ManifestFile is one exported file with its content checksum.
type ManifestFile struct {
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Rows     int    `json:"rows"`
}

// Exporter writes run artifacts (trade ledger, equity curve, manifest)
// into a directory named by the run's short identity.
type Exporter struct {
	baseDir string
}

// NewExporter creates an exporter rooted at baseDir.
func NewExporter(baseDir string) *Exporter {
	return &Exporter{baseDir: baseDir}
}

// ExportRun writes trades.csv, equity.csv, and manifest.json for one run
// and returns the manifest. The output directory is baseDir/<short run id>.
func (e *Exporter) ExportRun(runID, campaignID, paramsVersion string, seed int64, trades []domain.Trade, equity []domain.EquityPoint, datasetChecksum string) (*Manifest, error) {
	dir := filepath.Join(e.baseDir, ShortID(Checksum([]byte(runID))))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	manifest := &Manifest{
		RunID:           runID,
		CampaignID:      campaignID,
		Seed:            seed,
		ParamsVersion:   paramsVersion,
		DatasetChecksum: datasetChecksum,
		LedgerChecksum:  LedgerChecksum(trades),
		EquityChecksum:  EquityChecksum(equity),
	}

	tradesCSV := RenderTradesCSV(trades)
	if err := writeFile(dir, "trades.csv", tradesCSV); err != nil {
		return nil, err
	}
	manifest.Files = append(manifest.Files, ManifestFile{
		Name:     "trades.csv",
		Checksum: Checksum([]byte(tradesCSV)),
		Rows:     len(trades),
	})

	equityCSV := RenderEquityCSV(equity)
	if err := writeFile(dir, "equity.csv", equityCSV); err != nil {
		return nil, err
	}
	manifest.Files = append(manifest.Files, ManifestFile{
		Name:     "equity.csv",
		Checksum: Checksum([]byte(equityCSV)),
		Rows:     len(equity),
	})

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeFile(dir, "manifest.json", string(data)+"\n"); err != nil {
		return nil, err
	}

	return manifest, nil
}

// RenderTradesCSV renders a trade ledger as a CSV string in
// chronological order.
func RenderTradesCSV(trades []domain.Trade) string {
	var sb strings.Builder

	sb.WriteString("trade_id,entry_timestamp_ms,exit_timestamp_ms,direction,position_pct,")
	sb.WriteString("entry_theoretical,entry_realistic,exit_theoretical,exit_realistic,")
	sb.WriteString("pnl_theoretical_pct,pnl_realistic_pct,hold_bars,exit_reason\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%.6f,%.8f,%.8f,%.8f,%.8f,%.6f,%.6f,%d,%s\n",
			t.TradeID, t.EntryTimestampMs, t.ExitTimestampMs, t.Direction, t.PositionPct,
			t.EntryTheoretical, t.EntryRealistic, t.ExitTheoretical, t.ExitRealistic,
			t.PnLTheoreticalPct, t.PnLRealisticPct, t.HoldBars, t.ExitReason))
	}

	return sb.String()
}

// RenderEquityCSV renders an equity curve as a CSV string.
func RenderEquityCSV(points []domain.EquityPoint) string {
	var sb strings.Builder

	sb.WriteString("timestamp_ms,theoretical,realistic,divergence_pct\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%d,%.8f,%.8f,%.6f\n",
			p.TimestampMs, p.Theoretical, p.Realistic, p.DivergencePct))
	}

	return sb.String()
}

func writeFile(dir, name, content string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
