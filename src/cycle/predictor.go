package cycle

import (
	"math"

	"harmonic-go/src/models"
)

// Predictor fits amplitude, midpoint and phase for a detected cycle and
// extrapolates the harmonic forward. The projection is a closed-form
// deterministic function of its inputs: no hidden state.
type Predictor struct {
	forecast int
}

// NewPredictor creates a predictor projecting forecast bars ahead
func NewPredictor(forecast int) *Predictor {
	if forecast <= 0 {
		forecast = models.DefaultForecast
	}
	return &Predictor{forecast: forecast}
}

// Fit completes a detected cycle state with midpoint, amplitude and phase
// measured over the trailing one-cycle window of the smoothed series.
func (p *Predictor) Fit(smoothed []float64, state models.CycleState) models.CycleState {
	if len(smoothed) == 0 || state.Period <= 0 {
		return state
	}

	window := int(math.Ceil(state.Period))
	if window < 2 {
		window = 2
	}
	if window > len(smoothed) {
		window = len(smoothed)
	}
	tail := smoothed[len(smoothed)-window:]

	sum := 0.0
	lo, hi := tail[0], tail[0]
	for _, v := range tail {
		sum += v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	state.Midpoint = sum / float64(len(tail))
	state.Amplitude = (hi - lo) / 2

	barsSince := float64(len(smoothed) - 1 - state.LastExtremum)
	state.Phase = wrapPhase(2 * math.Pi * barsSince / state.Period)
	return state
}

// Project extrapolates the fitted harmonic forecast bars past the last bar:
//
//	predicted = midpoint + amplitude × cos(2π × (1/period) × horizon + phase)
func (p *Predictor) Project(state models.CycleState) float64 {
	if state.Period <= 0 {
		return state.Midpoint
	}
	angle := 2*math.Pi*float64(p.forecast)/state.Period + state.Phase
	return state.Midpoint + state.Amplitude*math.Cos(angle)
}

// FitAndProject runs Fit then Project in one step, returning the completed
// state alongside the predicted price.
func (p *Predictor) FitAndProject(smoothed []float64, state models.CycleState) (models.CycleState, float64) {
	fitted := p.Fit(smoothed, state)
	return fitted, p.Project(fitted)
}

// Horizon returns the projection horizon in bars
func (p *Predictor) Horizon() int {
	return p.forecast
}

// wrapPhase normalizes an angle to [0, 2π)
func wrapPhase(phi float64) float64 {
	twoPi := 2 * math.Pi
	phi = math.Mod(phi, twoPi)
	if phi < 0 {
		phi += twoPi
	}
	return phi
}
