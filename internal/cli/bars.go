package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"campaign-lab/internal/domain"
)

// LoadBarsCSV reads a bar series fixture. Expected header:
// timestamp_ms,open,high,low,close,volume. Rows must be strictly
// timestamp-ordered.
func LoadBarsCSV(path string) ([]domain.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read bars header: %w", err)
	}
	if len(header) != 6 || header[0] != "timestamp_ms" {
		return nil, fmt.Errorf("unexpected bars header %v", header)
	}

	var bars []domain.PriceBar
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bars line %d: %w", line, err)
		}

		bar, err := parseBar(record)
		if err != nil {
			return nil, fmt.Errorf("parse bars line %d: %w", line, err)
		}
		if len(bars) > 0 && bar.TimestampMs <= bars[len(bars)-1].TimestampMs {
			return nil, fmt.Errorf("bars line %d: timestamp %d not strictly increasing", line, bar.TimestampMs)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBar(record []string) (domain.PriceBar, error) {
	if len(record) != 6 {
		return domain.PriceBar{}, fmt.Errorf("expected 6 fields, got %d", len(record))
	}

	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("timestamp_ms: %w", err)
	}

	vals := make([]float64, 5)
	for i, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.PriceBar{}, fmt.Errorf("%s: %w", name, err)
		}
		vals[i] = v
	}

	return domain.PriceBar{
		TimestampMs: ts,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
	}, nil
}
