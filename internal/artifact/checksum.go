// Package artifact provides content-addressed identities and tabular
// exports for datasets, trade ledgers, and equity curves. Every artifact
// is keyed by a checksum of its canonical serialization, so a byte-equal
// re-run produces byte-equal identities.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"campaign-lab/internal/domain"
)

// Checksum returns the SHA256 hex digest of the given bytes.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortID renders a checksum as a compact base58 tag for file names and
// log lines. Falls back to a hex prefix if the checksum is not valid hex.
func ShortID(checksum string) string {
	raw, err := hex.DecodeString(checksum)
	if err != nil || len(raw) < 8 {
		if len(checksum) > 12 {
			return checksum[:12]
		}
		return checksum
	}
	return base58.Encode(raw[:8])
}

// DatasetChecksum fingerprints a bar series. Canonical form: one line
// per bar, fixed field order, %.8f prices.
func DatasetChecksum(bars []domain.PriceBar) string {
	var b strings.Builder
	for _, bar := range bars {
		fmt.Fprintf(&b, "%d|%.8f|%.8f|%.8f|%.8f|%.8f\n",
			bar.TimestampMs, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}
	return Checksum([]byte(b.String()))
}

// LedgerChecksum fingerprints a trade ledger in chronological order.
// Trade IDs are themselves deterministic, so the ledger hash pins the
// full entry/exit/PnL content of a run.
func LedgerChecksum(trades []domain.Trade) string {
	var b strings.Builder
	for _, t := range trades {
		fmt.Fprintf(&b, "%s|%d|%d|%.10f|%.10f\n",
			t.TradeID, t.EntryTimestampMs, t.ExitTimestampMs, t.PnLTheoreticalPct, t.PnLRealisticPct)
	}
	return Checksum([]byte(b.String()))
}

// EquityChecksum fingerprints an equity curve.
func EquityChecksum(points []domain.EquityPoint) string {
	var b strings.Builder
	for _, p := range points {
		fmt.Fprintf(&b, "%d|%.10f|%.10f\n", p.TimestampMs, p.Theoretical, p.Realistic)
	}
	return Checksum([]byte(b.String()))
}
