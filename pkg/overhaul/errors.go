package overhaul

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunActive is returned when an overhaul run is requested for a guild
// that already has one in flight. Concurrent runs against the same guild
// are rejected rather than queued.
var ErrRunActive = errors.New("an overhaul run is already active for this guild")

// ValidationError aggregates every problem found in a configuration so the
// operator sees the full list at once instead of fixing one field per
// attempt.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "configuration is invalid"
	case 1:
		return "configuration is invalid: " + e.Problems[0]
	default:
		return fmt.Sprintf("configuration is invalid (%d problems): %s",
			len(e.Problems), strings.Join(e.Problems, "; "))
	}
}

// Add appends a formatted problem to the list.
func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Empty reports whether any problems were recorded.
func (e *ValidationError) Empty() bool { return len(e.Problems) == 0 }

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
