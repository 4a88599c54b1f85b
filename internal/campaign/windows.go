// Package campaign orchestrates the train -> validation -> walk-forward
// -> out-of-sample pipeline over parameter variants, applies the numeric
// guardrails, runs the promotion significance test, and drives the
// champion swap.
package campaign

import (
	"time"

	"campaign-lab/internal/domain"
)

// WindowConfig controls the stage split. Fractions apply to the bar
// count; the out-of-sample share is the remainder after the first three.
type WindowConfig struct {
	TrainFrac       float64 // default 0.50
	ValidationFrac  float64 // default 0.20
	WalkForwardFrac float64 // default 0.15
	WalkFolds       int     // default 3
}

// DefaultWindowConfig returns the standard 50/20/15/15 split.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{TrainFrac: 0.50, ValidationFrac: 0.20, WalkForwardFrac: 0.15, WalkFolds: 3}
}

// Span is a half-open index interval [Start, End) into the bar series.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bars in the span.
func (s Span) Len() int { return s.End - s.Start }

// StageWindows is the full time-ordered stage layout. Every boundary is
// strictly increasing: train < validation < each walk-forward fold <
// out-of-sample. No stage ever sees bars past its own End.
type StageWindows struct {
	Train       Span
	Validation  Span
	WalkForward []Span
	OutOfSample Span
}

// minStageBars is the smallest span any stage may receive. Stages below
// this cannot cover a regime warmup plus a decision window.
const minStageBars = 140

// SplitWindows lays out the stages over n bars. Returns
// domain.ErrInsufficientData when any stage would fall below the floor.
func SplitWindows(n int, cfg WindowConfig) (StageWindows, error) {
	if cfg.TrainFrac == 0 {
		cfg = DefaultWindowConfig()
	}
	if cfg.WalkFolds <= 0 {
		cfg.WalkFolds = 1
	}

	trainEnd := int(float64(n) * cfg.TrainFrac)
	valEnd := trainEnd + int(float64(n)*cfg.ValidationFrac)
	wfEnd := valEnd + int(float64(n)*cfg.WalkForwardFrac)

	w := StageWindows{
		Train:       Span{0, trainEnd},
		Validation:  Span{trainEnd, valEnd},
		OutOfSample: Span{wfEnd, n},
	}

	wfLen := wfEnd - valEnd
	foldLen := wfLen / cfg.WalkFolds
	for i := 0; i < cfg.WalkFolds; i++ {
		start := valEnd + i*foldLen
		end := start + foldLen
		if i == cfg.WalkFolds-1 {
			end = wfEnd // remainder goes to the last fold
		}
		w.WalkForward = append(w.WalkForward, Span{start, end})
	}

	need := minStageBars
	for _, span := range append([]Span{w.Train, w.Validation, w.OutOfSample}, w.WalkForward...) {
		if span.Len() < need {
			return StageWindows{}, domain.InsufficientDataError("window split", span.Len(), need)
		}
	}
	return w, nil
}

// CoverageStats summarizes the calendar quality of a bar series, feeding
// the window/coverage/gap guardrails.
type CoverageStats struct {
	SpanDays        float64 // calendar span from first to last bar
	MaxGapDays      float64 // largest gap between consecutive bars
	MonthlyCoverage float64 // worst month's bars-present / days-in-month
}

// Coverage computes coverage statistics for an ordered daily bar series.
func Coverage(bars []domain.PriceBar) CoverageStats {
	if len(bars) < 2 {
		return CoverageStats{}
	}

	stats := CoverageStats{
		SpanDays: float64(bars[len(bars)-1].TimestampMs-bars[0].TimestampMs) / (1000 * 86_400),
	}

	perMonth := make(map[string]int)
	for i, b := range bars {
		ts := time.UnixMilli(b.TimestampMs).UTC()
		perMonth[ts.Format("2006-01")]++
		if i > 0 {
			gap := float64(b.TimestampMs-bars[i-1].TimestampMs) / (1000 * 86_400)
			if gap > stats.MaxGapDays {
				stats.MaxGapDays = gap
			}
		}
	}

	// Partial boundary months are measured against the days actually
	// inside the series, not the whole calendar month.
	stats.MonthlyCoverage = 1
	first := time.UnixMilli(bars[0].TimestampMs).UTC()
	last := time.UnixMilli(bars[len(bars)-1].TimestampMs).UTC()
	for key, count := range perMonth {
		month, _ := time.Parse("2006-01", key)
		days := daysInMonth(month)
		if month.Format("2006-01") == first.Format("2006-01") {
			days -= first.Day() - 1
		}
		if month.Format("2006-01") == last.Format("2006-01") {
			days -= daysInMonth(month) - last.Day()
		}
		if days <= 0 {
			continue
		}
		if cov := float64(count) / float64(days); cov < stats.MonthlyCoverage {
			stats.MonthlyCoverage = cov
		}
	}
	return stats
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
