// Package idhash computes deterministic identifiers. Re-running the same
// campaign with the same inputs reproduces the same IDs, which is what
// makes checksum-based verification possible.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CampaignID derives the campaign run identifier.
// Formula: SHA256(asset|venue|start_ms|end_ms|seed)
func CampaignID(asset, venue string, startMs, endMs, seed int64) string {
	return hash(fmt.Sprintf("%s|%s|%d|%d|%d", asset, venue, startMs, endMs, seed))
}

// RunID derives a single backtest run identifier within a campaign.
// Formula: SHA256(campaign_id|params_version|stage)
func RunID(campaignID, paramsVersion, stage string) string {
	return hash(fmt.Sprintf("%s|%s|%s", campaignID, paramsVersion, stage))
}

// ResultID derives the campaign result identifier for one variant.
// Formula: SHA256(campaign_id|params_version)
func ResultID(campaignID, paramsVersion string) string {
	return hash(fmt.Sprintf("%s|%s", campaignID, paramsVersion))
}

// TradeID derives a trade identifier.
// Formula: SHA256(run_id|entry_timestamp|direction)
func TradeID(runID string, entryTimestampMs int64, direction string) string {
	return hash(fmt.Sprintf("%s|%d|%s", runID, entryTimestampMs, direction))
}

// EventID derives a recalibration event identifier.
// Formula: SHA256(asset|venue|reason|triggered_at)
func EventID(asset, venue, reason string, triggeredAtMs int64) string {
	return hash(fmt.Sprintf("%s|%s|%s|%d", asset, venue, reason, triggeredAtMs))
}

// ChampionID derives a champion identifier.
// Formula: SHA256(asset|venue|params_version|activated_at)
func ChampionID(asset, venue, paramsVersion string, activatedAtMs int64) string {
	return hash(fmt.Sprintf("%s|%s|%s|%d", asset, venue, paramsVersion, activatedAtMs))
}

func hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
