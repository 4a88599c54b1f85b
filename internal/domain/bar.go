package domain

import "math"

// PriceBar represents a single OHLCV bar for an asset/venue/interval.
// Bars are immutable and ordered by timestamp within a series.
type PriceBar struct {
	TimestampMs int64   // bar close timestamp, Unix milliseconds
	Open        float64 // open price
	High        float64 // high price
	Low         float64 // low price
	Close       float64 // close price
	Volume      float64 // base-asset volume
}

// Valid reports whether the bar carries usable prices.
// A bar with NaN or non-positive close is skipped by the engine, not fatal.
func (b PriceBar) Valid() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return !math.IsNaN(b.Volume) && b.Volume >= 0
}

// BarsOrdered reports whether timestamps are strictly increasing.
func BarsOrdered(bars []PriceBar) bool {
	for i := 1; i < len(bars); i++ {
		if bars[i].TimestampMs <= bars[i-1].TimestampMs {
			return false
		}
	}
	return true
}
