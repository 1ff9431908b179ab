package cycle

import (
	"sort"

	"harmonic-go/src/models"

	"github.com/markcheno/go-talib"
)

// Detector extracts the dominant oscillation period from a price series.
//
// The raw closes are smoothed with a weighted moving average (most recent
// bar weighted highest) to suppress high-frequency noise, then the spacing
// between successive same-type extrema of the smoothed series is measured.
// The median spacing is the dominant period.
type Detector struct {
	smoothWindow int
}

// NewDetector creates a detector with the given smoothing window
func NewDetector(smoothWindow int) *Detector {
	if smoothWindow < 3 {
		smoothWindow = models.DefaultSmoothWindow
	}
	return &Detector{smoothWindow: smoothWindow}
}

// Detect estimates the dominant cycle period of the close series.
// It returns the partially filled cycle state (period and most recent
// extremum) together with the smoothed series the state refers to.
func (d *Detector) Detect(closes []float64) (models.CycleState, []float64, error) {
	if len(closes) < 2*d.smoothWindow {
		return models.CycleState{}, nil, &InsufficientDataError{
			Have:   len(closes),
			Need:   2 * d.smoothWindow,
			Reason: "series shorter than twice the smoothing window",
		}
	}

	// talib zero-fills the first window-1 slots; drop them.
	smoothed := talib.Wma(closes, d.smoothWindow)[d.smoothWindow-1:]

	maxima, minima := findExtrema(smoothed)

	gaps := make([]int, 0, len(maxima)+len(minima))
	gaps = append(gaps, spacings(maxima)...)
	gaps = append(gaps, spacings(minima)...)
	if len(gaps) == 0 {
		return models.CycleState{}, nil, &InsufficientDataError{
			Have:   len(closes),
			Reason: "fewer than two same-type extrema in window",
		}
	}

	state := models.CycleState{
		Period:       medianInt(gaps),
		LastExtremum: lastExtremum(maxima, minima),
	}
	return state, smoothed, nil
}

// SmoothWindow returns the configured smoothing window
func (d *Detector) SmoothWindow() int {
	return d.smoothWindow
}

// findExtrema locates strict local maxima and minima: a point qualifies
// only when it is strictly greater (resp. less) than both neighbors.
func findExtrema(series []float64) (maxima, minima []int) {
	for i := 1; i < len(series)-1; i++ {
		if series[i] > series[i-1] && series[i] > series[i+1] {
			maxima = append(maxima, i)
		} else if series[i] < series[i-1] && series[i] < series[i+1] {
			minima = append(minima, i)
		}
	}
	return maxima, minima
}

// spacings returns the bar distances between consecutive indices
func spacings(idx []int) []int {
	if len(idx) < 2 {
		return nil
	}
	out := make([]int, 0, len(idx)-1)
	for i := 1; i < len(idx); i++ {
		out = append(out, idx[i]-idx[i-1])
	}
	return out
}

// medianInt returns the median of the values as a float64.
// Even-length inputs average the two middle values.
func medianInt(values []int) float64 {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// lastExtremum returns the most recent extremum index of either type, or 0
func lastExtremum(maxima, minima []int) int {
	last := 0
	if len(maxima) > 0 && maxima[len(maxima)-1] > last {
		last = maxima[len(maxima)-1]
	}
	if len(minima) > 0 && minima[len(minima)-1] > last {
		last = minima[len(minima)-1]
	}
	return last
}
