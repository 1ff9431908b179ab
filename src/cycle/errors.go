package cycle

import (
	"fmt"
)

// InsufficientDataError reports a series too short (or too flat) to carry a
// detectable cycle. It is a per-run failure: sweeps and walk-forward
// validation record it and continue.
type InsufficientDataError struct {
	Have   int
	Need   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Need > 0 {
		return fmt.Sprintf("insufficient data for cycle detection: have %d bars, need %d (%s)", e.Have, e.Need, e.Reason)
	}
	return fmt.Sprintf("insufficient data for cycle detection: %s", e.Reason)
}
