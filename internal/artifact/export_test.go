package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-lab/internal/domain"
)

func sampleTrades() []domain.Trade {
	return []domain.Trade{
		{
			TradeID:           "t1",
			EntryTimestampMs:  1000,
			ExitTimestampMs:   2000,
			Direction:         domain.DirectionLong,
			PositionPct:       0.5,
			EntryTheoretical:  100,
			EntryRealistic:    100.15,
			ExitTheoretical:   103,
			ExitRealistic:     102.7,
			PnLTheoreticalPct: 3,
			PnLRealisticPct:   2.55,
			HoldBars:          4,
			ExitReason:        domain.ExitReasonTakeProfit,
		},
	}
}

func sampleEquity() []domain.EquityPoint {
	return []domain.EquityPoint{
		{TimestampMs: 1000, Theoretical: 10_000, Realistic: 10_000},
		{TimestampMs: 2000, Theoretical: 10_300, Realistic: 10_255, DivergencePct: -0.44},
	}
}

func TestExporter_WritesLineageManifest(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(dir)

	trades := sampleTrades()
	equity := sampleEquity()

	manifest, err := exp.ExportRun("run-1", "camp-1", "v1", 42, trades, equity, "dataset-sum")
	require.NoError(t, err)

	assert.Equal(t, "run-1", manifest.RunID)
	assert.Equal(t, int64(42), manifest.Seed)
	assert.Equal(t, "dataset-sum", manifest.DatasetChecksum)
	assert.Equal(t, LedgerChecksum(trades), manifest.LedgerChecksum)
	assert.Equal(t, EquityChecksum(equity), manifest.EquityChecksum)
	require.Len(t, manifest.Files, 2)

	runDir := filepath.Join(dir, ShortID(Checksum([]byte("run-1"))))
	data, err := os.ReadFile(filepath.Join(runDir, "manifest.json"))
	require.NoError(t, err)

	var onDisk Manifest
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, manifest.LedgerChecksum, onDisk.LedgerChecksum)

	// File checksums in the manifest match what was written.
	for _, f := range manifest.Files {
		content, err := os.ReadFile(filepath.Join(runDir, f.Name))
		require.NoError(t, err)
		assert.Equal(t, f.Checksum, Checksum(content), f.Name)
	}
}

func TestRenderTradesCSV(t *testing.T) {
	csv := RenderTradesCSV(sampleTrades())
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "trade_id,entry_timestamp_ms"))
	assert.Contains(t, lines[1], "t1,1000,2000,long")
	assert.Contains(t, lines[1], "TAKE_PROFIT")
}

func TestRenderEquityCSV_Empty(t *testing.T) {
	csv := RenderEquityCSV(nil)
	assert.Equal(t, "timestamp_ms,theoretical,realistic,divergence_pct\n", csv)
}

func TestExporter_Reproducible(t *testing.T) {
	a, err := NewExporter(t.TempDir()).ExportRun("run-1", "camp-1", "v1", 42, sampleTrades(), sampleEquity(), "ds")
	require.NoError(t, err)
	b, err := NewExporter(t.TempDir()).ExportRun("run-1", "camp-1", "v1", 42, sampleTrades(), sampleEquity(), "ds")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
