package regime

import (
	"harmonic-go/src/indicators"
	"harmonic-go/src/models"
)

// Filter classifies the market as ranging or trending. Entries are allowed
// only while the instrument is ranging on the trading timeframe: this is a
// hard gate, not a weight.
type Filter struct {
	calc              *indicators.Calculator
	atrBaselinePeriod int
	htfMAPeriod       int
	htfSlopeThreshold float64
}

// NewFilter creates a regime filter from the run configuration
func NewFilter(cfg models.ParameterConfig) *Filter {
	return &Filter{
		calc:              indicators.NewCalculator(cfg.ATRPeriod, cfg.SmoothWindow),
		atrBaselinePeriod: cfg.ATRBaselinePeriod,
		htfMAPeriod:       cfg.HTFMAPeriod,
		htfSlopeThreshold: cfg.HTFSlopeThreshold,
	}
}

// Classify combines three checks:
//
//  1. volatility compression: current ATR at or below its own trailing
//     average indicates a squeeze;
//  2. trend strength: |SMA20 − SMA50| must stay under 2×ATR;
//  3. higher-timeframe gate: a steep slope of the HTF moving average marks
//     an active trend and suppresses mean-reversion entries outright.
//
// The market is RANGING only when every check passes.
func (f *Filter) Classify(candles []models.Candle, htfCloses []float64) models.Regime {
	atrSeries := f.calc.ATRSeries(candles)
	if len(atrSeries) == 0 {
		// Too little data to call it a squeeze; stay out.
		return models.RegimeTrending
	}
	atr := atrSeries[len(atrSeries)-1]

	closes := models.Closes(candles)
	if indicators.TrendStrength(closes) >= atr*2 {
		return models.RegimeTrending
	}

	if !f.squeezed(atrSeries) {
		return models.RegimeTrending
	}

	if f.htfTrending(htfCloses) {
		return models.RegimeTrending
	}

	return models.RegimeRanging
}

// squeezed reports whether the current ATR sits at or below its trailing
// average. Short ATR histories pass: the squeeze check only vetoes once a
// baseline exists.
func (f *Filter) squeezed(atrSeries []float64) bool {
	// talib zero-fills the warm-up slots; skip them.
	valid := atrSeries
	for len(valid) > 0 && valid[0] == 0 {
		valid = valid[1:]
	}
	if len(valid) < f.atrBaselinePeriod {
		return true
	}
	baseline := indicators.SMA(valid, f.atrBaselinePeriod)
	return valid[len(valid)-1] <= baseline
}

// htfTrending reports whether the higher-timeframe moving average slope
// exceeds the configured relative threshold
func (f *Filter) htfTrending(htfCloses []float64) bool {
	if len(htfCloses) < f.htfMAPeriod+1 {
		return false
	}
	series := indicators.SMASeries(htfCloses, f.htfMAPeriod)
	if len(series) < 2 {
		return false
	}
	prev := series[len(series)-2]
	curr := series[len(series)-1]
	if prev == 0 {
		return false
	}
	slope := (curr - prev) / prev
	if slope < 0 {
		slope = -slope
	}
	return slope > f.htfSlopeThreshold
}
