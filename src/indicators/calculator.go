package indicators

import (
	"harmonic-go/src/models"

	"github.com/markcheno/go-talib"
)

// Calculator handles technical indicator calculations
type Calculator struct {
	atrPeriod    int
	smoothWindow int
}

// NewCalculator creates a new indicator calculator
func NewCalculator(atrPeriod, smoothWindow int) *Calculator {
	return &Calculator{
		atrPeriod:    atrPeriod,
		smoothWindow: smoothWindow,
	}
}

// SmoothedCloses returns the weighted moving average of close prices.
// The most recent bar carries the highest weight (linear decay), which is
// exactly talib's WMA. Leading values (index < window-1) are zero-filled
// by talib and must not be consumed.
func (c *Calculator) SmoothedCloses(candles []models.Candle) []float64 {
	if len(candles) < c.smoothWindow {
		return nil
	}
	return talib.Wma(models.Closes(candles), c.smoothWindow)
}

// ATR returns the current average true range over the calculator's period
func (c *Calculator) ATR(candles []models.Candle) float64 {
	series := c.ATRSeries(candles)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// ATRSeries returns the full ATR series for the candle slice
func (c *Calculator) ATRSeries(candles []models.Candle) []float64 {
	if len(candles) <= c.atrPeriod {
		return nil
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, k := range candles {
		highs[i] = k.High
		lows[i] = k.Low
		closes[i] = k.Close
	}
	return talib.Atr(highs, lows, closes, c.atrPeriod)
}

// SMA returns the last simple moving average value over period bars,
// or 0 when the series is too short
func SMA(values []float64, period int) float64 {
	if len(values) < period || period <= 0 {
		return 0
	}
	series := talib.Sma(values, period)
	return series[len(series)-1]
}

// SMASeries returns the full simple moving average series
func SMASeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	return talib.Sma(values, period)
}

// TrendStrength measures how far the fast mean has pulled away from the
// slow mean. Small values relative to ATR indicate a ranging market.
func TrendStrength(closes []float64) float64 {
	sma20 := SMA(closes, 20)
	sma50 := sma20
	if len(closes) >= 50 {
		sma50 = SMA(closes, 50)
	}
	diff := sma20 - sma50
	if diff < 0 {
		diff = -diff
	}
	return diff
}
