package emitter

import (
	"errors"
	"fmt"
	"strings"
)

// ChainSeparator joins keys in chain diagnostics.
const ChainSeparator = " -> "

// CycleError reports that a key was emitted while its own dispatch was
// still in flight.
//
// Chain holds every key of the emission chain at the time of detection,
// followed by the re-emitted key, e.g. ["a", "b", "a"].
type CycleError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclical mutation detected: %s", strings.Join(e.Chain, ChainSeparator))
}

// Path returns the chain joined by ChainSeparator.
func (e *CycleError) Path() string {
	return strings.Join(e.Chain, ChainSeparator)
}

// DepthError reports that the emission chain reached its configured limit.
type DepthError struct {
	Limit int
	Chain []string
}

// Error implements the error interface.
func (e *DepthError) Error() string {
	return fmt.Sprintf("emission chain exceeded max depth (%d): %s", e.Limit, strings.Join(e.Chain, ChainSeparator))
}

// IsCycleError returns true if err is or wraps a *CycleError.
func IsCycleError(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

// IsDepthError returns true if err is or wraps a *DepthError.
func IsDepthError(err error) bool {
	var de *DepthError
	return errors.As(err, &de)
}
