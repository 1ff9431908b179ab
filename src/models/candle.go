package models

import (
	"time"
)

// Candle represents a single OHLC candlestick
type Candle struct {
	Timestamp time.Time // 开始时间 (candle open time)
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Closes extracts the close prices from a candle series
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Resample aggregates every factor consecutive candles into one
// higher-timeframe candle. A trailing partial group is dropped, and each
// aggregate carries the timestamp of its final constituent bar so it only
// becomes visible once fully formed.
func Resample(candles []Candle, factor int) []Candle {
	if factor <= 1 {
		return candles
	}
	out := make([]Candle, 0, len(candles)/factor)
	for i := 0; i+factor <= len(candles); i += factor {
		group := candles[i : i+factor]
		c := Candle{
			Timestamp: group[len(group)-1].Timestamp,
			Open:      group[0].Open,
			High:      group[0].High,
			Low:       group[0].Low,
			Close:     group[len(group)-1].Close,
		}
		for _, g := range group {
			if g.High > c.High {
				c.High = g.High
			}
			if g.Low < c.Low {
				c.Low = g.Low
			}
			c.Volume += g.Volume
		}
		out = append(out, c)
	}
	return out
}

// Regime represents the market regime classification
type Regime int

const (
	RegimeRanging Regime = iota
	RegimeTrending
)

// String returns the regime name
func (r Regime) String() string {
	switch r {
	case RegimeRanging:
		return "RANGING"
	case RegimeTrending:
		return "TRENDING"
	}
	return "UNKNOWN"
}

// Side represents the direction of a position
type Side int

const (
	SideLong Side = iota
	SideShort
)

// String returns the side name
func (s Side) String() string {
	if s == SideShort {
		return "SHORT"
	}
	return "LONG"
}

// CycleState holds the fitted parameters of the dominant price cycle.
// It is recomputed per bar from a trailing window, never mutated.
type CycleState struct {
	Period       float64 // dominant period in bars, > 0
	Amplitude    float64
	Phase        float64 // radians, wrapped to [0, 2π)
	Midpoint     float64
	LastExtremum int // index of the most recent extremum in the smoothed window
}

// Degenerate reports whether the cycle amplitude is too small to trade.
// A flat market projects implausible spikes, so callers suppress entries.
func (cs CycleState) Degenerate() bool {
	return cs.Amplitude < 1e-9
}

// Signal is the per-bar output of the harmonic signal path
type Signal struct {
	PredictedPrice float64
	Deviation      float64 // current close − predicted price
	Regime         Regime
	Timestamp      time.Time
}
