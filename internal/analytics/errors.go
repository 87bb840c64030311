// ABOUTME: Typed "no result" error for analytics that need a minimum of data.
// ABOUTME: Callers render an empty state when errors.Is(err, ErrInsufficientData).
package analytics

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is matched by every *InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports that a computation had too little input.
type InsufficientDataError struct {
	Reason string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s (have %d, need %d)", e.Reason, e.Have, e.Need)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
