// Package perfmon watches live rolling metrics against the active
// champion's promotion baseline and raises recalibration events when
// they drift apart.
package perfmon

import (
	"context"
	"errors"
	"log"
	"math"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/idhash"
	"campaign-lab/internal/stats"
	"campaign-lab/internal/storage"
)

// MonitorConfig controls the rolling window and the drift trigger.
type MonitorConfig struct {
	WindowDays      int     // trailing window, default 30
	TriggerFraction float64 // |current-baseline|/baseline, default 0.15
}

// DefaultMonitorConfig returns the standard 30-day / 15% settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{WindowDays: 30, TriggerFraction: 0.15}
}

// Monitor compares rolling metrics against champion baselines. Stores
// may be nil for pure computation.
type Monitor struct {
	cfg       MonitorConfig
	champions storage.ChampionStore
	events    storage.RecalibrationEventStore
}

// NewMonitor creates a monitor, applying defaults for zero config fields.
func NewMonitor(cfg MonitorConfig, champions storage.ChampionStore, events storage.RecalibrationEventStore) *Monitor {
	if cfg.WindowDays == 0 {
		cfg.WindowDays = 30
	}
	if cfg.TriggerFraction == 0 {
		cfg.TriggerFraction = 0.15
	}
	return &Monitor{cfg: cfg, champions: champions, events: events}
}

const msPerDay = int64(86_400_000)

// Rolling computes the trailing-window metrics snapshot from an equity
// curve and trade history, both ordered by time.
func (m *Monitor) Rolling(equity []domain.EquityPoint, trades []domain.Trade, nowMs int64) domain.MetricsSnapshot {
	cutoff := nowMs - int64(m.cfg.WindowDays)*msPerDay

	var returns []float64
	var prev float64
	havePrev := false
	for _, p := range equity {
		if p.TimestampMs < cutoff {
			prev = p.Realistic
			havePrev = true
			continue
		}
		if havePrev && prev > 0 {
			returns = append(returns, (p.Realistic-prev)/prev)
		}
		prev = p.Realistic
		havePrev = true
	}

	snap := domain.MetricsSnapshot{
		TimestampMs: nowMs,
		WindowDays:  m.cfg.WindowDays,
	}
	for _, t := range trades {
		if t.ExitTimestampMs >= cutoff {
			snap.TradeCount++
		}
	}

	sd := stats.StdDev(returns)
	snap.VolatilityPct = sd * math.Sqrt(365) * 100
	if sd > 0 {
		snap.Sharpe = stats.Mean(returns) / sd * math.Sqrt(365)
	}
	return snap
}

// Check computes the rolling snapshot, compares it against the active
// champion's baseline, and emits a RecalibrationEvent when either the
// Sharpe or the volatility drift exceeds the trigger fraction. Returns
// (nil, nil) when no champion is active or no drift is detected. The
// event is persisted before being returned; a duplicate trigger at the
// same timestamp is returned without a second insert.
func (m *Monitor) Check(ctx context.Context, asset, venue string, equity []domain.EquityPoint, trades []domain.Trade, regime domain.RegimeSnapshot, nowMs int64) (*domain.RecalibrationEvent, error) {
	if m.champions == nil {
		return nil, nil
	}
	champ, err := m.champions.GetActive(ctx, asset, venue)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	current := m.Rolling(equity, trades, nowMs)
	event := m.DetectTrigger(asset, venue, champ.Baseline, current, regime, nowMs)
	if event == nil {
		return nil, nil
	}

	if m.events != nil {
		if err := m.events.Insert(ctx, event); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
	}
	log.Printf("perfmon: drift detected asset=%s venue=%s reason=%s baseline_sharpe=%.3f current_sharpe=%.3f",
		asset, venue, event.Reason, champ.Baseline.Sharpe, current.Sharpe)
	return event, nil
}

// DetectTrigger is the pure comparison: given a baseline and a current
// snapshot, return the event to raise, or nil. Sharpe drift wins when
// both metrics fire.
func (m *Monitor) DetectTrigger(asset, venue string, baseline, current domain.MetricsSnapshot, regime domain.RegimeSnapshot, nowMs int64) *domain.RecalibrationEvent {
	reason := ""
	switch {
	case domain.DriftFraction(baseline.Sharpe, current.Sharpe) > m.cfg.TriggerFraction:
		reason = domain.TriggerSharpeDrift
	case domain.DriftFraction(baseline.VolatilityPct, current.VolatilityPct) > m.cfg.TriggerFraction:
		reason = domain.TriggerVolatilityDrift
	default:
		return nil
	}

	return &domain.RecalibrationEvent{
		EventID:       idhash.EventID(asset, venue, reason, nowMs),
		Asset:         asset,
		Venue:         venue,
		Reason:        reason,
		Baseline:      baseline,
		Current:       current,
		Regime:        regime,
		TriggeredAtMs: nowMs,
	}
}
