package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmonic-go/src/models"
)

func candlesFromCloses(closes []float64, halfRange float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + halfRange,
			Low:       c - halfRange,
			Close:     c,
		}
	}
	return candles
}

func TestSmoothedClosesWeighting(t *testing.T) {
	calc := NewCalculator(14, 3)
	candles := candlesFromCloses([]float64{1, 2, 3, 4}, 0.5)

	smoothed := calc.SmoothedCloses(candles)
	require.Len(t, smoothed, 4)

	// WMA(3) over [1 2 3]: (1×1 + 2×2 + 3×3) / 6 = 7/3. The most recent
	// bar carries the highest weight.
	assert.InDelta(t, 7.0/3.0, smoothed[2], 1e-9)
	assert.InDelta(t, (2+2*3+3*4)/6.0, smoothed[3], 1e-9)
}

func TestSmoothedClosesShortSeries(t *testing.T) {
	calc := NewCalculator(14, 5)
	assert.Nil(t, calc.SmoothedCloses(candlesFromCloses([]float64{1, 2}, 0.5)))
}

func TestATRConstantRange(t *testing.T) {
	calc := NewCalculator(14, 5)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	candles := candlesFromCloses(closes, 0.5)

	// Every true range is exactly 1, so the smoothed ATR is exactly 1.
	assert.InDelta(t, 1.0, calc.ATR(candles), 1e-9)
}

func TestATRShortSeries(t *testing.T) {
	calc := NewCalculator(14, 5)
	assert.Zero(t, calc.ATR(candlesFromCloses([]float64{1, 2, 3}, 0.5)))
	assert.Nil(t, calc.ATRSeries(candlesFromCloses([]float64{1, 2, 3}, 0.5)))
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.0, SMA(values, 3), 1e-9) // (3+4+5)/3
	assert.Zero(t, SMA(values, 10))
	assert.Zero(t, SMA(values, 0))

	series := SMASeries(values, 3)
	require.Len(t, series, 5)
	assert.InDelta(t, 2.0, series[2], 1e-9)
}

func TestTrendStrength(t *testing.T) {
	// A ramp keeps the fast mean well above the slow mean.
	ramp := make([]float64, 60)
	flat := make([]float64, 60)
	for i := range ramp {
		ramp[i] = float64(i)
		flat[i] = 100
	}

	assert.InDelta(t, 15.0, TrendStrength(ramp), 1e-9) // (59-9.5) - (59-24.5)
	assert.Zero(t, TrendStrength(flat))

	// Shorter than the slow window: both means collapse to the fast one.
	assert.Zero(t, TrendStrength(ramp[:30]))
}
