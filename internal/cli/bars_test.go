package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	path := writeCSV(t, "timestamp_ms,open,high,low,close,volume\n"+
		"1000,100,101,99,100.5,5000\n"+
		"2000,100.5,102,100,101.2,6000\n")

	bars, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, int64(1000), bars[0].TimestampMs)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 6000.0, bars[1].Volume)
}

func TestLoadBarsCSV_RejectsOutOfOrder(t *testing.T) {
	path := writeCSV(t, "timestamp_ms,open,high,low,close,volume\n"+
		"2000,100,101,99,100,5000\n"+
		"1000,100,101,99,100,5000\n")

	_, err := LoadBarsCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not strictly increasing")
}

func TestLoadBarsCSV_RejectsBadHeader(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n")

	_, err := LoadBarsCSV(path)
	require.Error(t, err)
}

func TestLoadBarsCSV_RejectsBadField(t *testing.T) {
	path := writeCSV(t, "timestamp_ms,open,high,low,close,volume\n"+
		"1000,abc,101,99,100,5000\n")

	_, err := LoadBarsCSV(path)
	require.Error(t, err)
}
