package connect

import (
	"errors"
	"fmt"
)

// ErrMissingContext is matched by errors.Is for every *MissingContextError.
var ErrMissingContext = errors.New("store used outside its provider")

// MissingContextError reports a read, write or subscription through a
// container whose store was never provided in the given context.
type MissingContextError struct {
	Container string
}

// Error implements the error interface.
func (e *MissingContextError) Error() string {
	return fmt.Sprintf("%s: no %q store in context; wrap the caller with Container.Provide", ErrMissingContext, e.Container)
}

// Unwrap returns ErrMissingContext.
func (e *MissingContextError) Unwrap() error {
	return ErrMissingContext
}

// IsMissingContextError returns true if err is or wraps a *MissingContextError.
func IsMissingContextError(err error) bool {
	var me *MissingContextError
	return errors.As(err, &me)
}
