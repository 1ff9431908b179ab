package deriv

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmonic-go/src/models"
)

func TestCachePath(t *testing.T) {
	path := CachePath("data", "R_75", 60, 30)
	assert.Equal(t, filepath.Join("data", "R_75_candles_60s_30d.csv"), path)
}

func TestCandlesCSVRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	want := []models.Candle{
		{Timestamp: start, Open: 100.5, High: 101.25, Low: 99.75, Close: 100},
		{Timestamp: start.Add(time.Minute), Open: 100, High: 102, Low: 100, Close: 101.875},
		{Timestamp: start.Add(2 * time.Minute), Open: 101.875, High: 103, Low: 101, Close: 102},
	}

	path := filepath.Join(t.TempDir(), "cache", "SINE_candles_60s_1d.csv")
	require.NoError(t, WriteCandlesCSV(path, want))

	got, err := ReadCandlesCSV(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadCandlesCSVMissing(t *testing.T) {
	_, err := ReadCandlesCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestReadCandlesCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCandlesCSV(path, nil))

	_, err := ReadCandlesCSV(path)
	require.ErrorContains(t, err, "no candle rows")
}

func TestResolveSymbol(t *testing.T) {
	assert.Equal(t, "R_75_1S", ResolveSymbol("V75_1S"))
	assert.Equal(t, "R_75_1S", ResolveSymbol("VOLATILITY_75_1S"))
	assert.Equal(t, "R_100", ResolveSymbol("R_100"))
	assert.Equal(t, "UNKNOWN", ResolveSymbol("UNKNOWN"))
}
