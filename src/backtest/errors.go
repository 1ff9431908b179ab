package backtest

import (
	"fmt"
)

// DataIntegrityError reports a malformed input series: non-monotonic
// timestamps or non-positive prices. It aborts the affected run only.
type DataIntegrityError struct {
	Index  int
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error at bar %d: %s", e.Index, e.Reason)
}
