package spec

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a CUE compilation failure with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

// Validation error codes (E200-E299).
const (
	ErrNoFields          = "E201" // state declares no fields
	ErrUnknownWhen       = "E202" // effect watches an unknown field
	ErrUnknownSet        = "E203" // effect writes an unknown field
	ErrEmptyExpression   = "E204" // effect has no `to` expression
	ErrInvalidExpression = "E205" // `to` does not compile
	ErrInvalidGuard      = "E206" // `if` does not compile
	ErrInvalidName       = "E207" // store name is empty
	ErrUnknownGuardKey   = "E208" // guard watches an unknown field
	ErrInvalidReject     = "E209" // guard `reject` is empty or does not compile
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// VetoError is returned by a Set rejected by a guard.
type VetoError struct {
	Store   string
	Key     string
	Value   any
	Message string
}

func (e *VetoError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rejected by guard"
	}
	return fmt.Sprintf("store %s: %s = %v: %s", e.Store, e.Key, e.Value, msg)
}

// IsVetoError returns true if err is or wraps a *VetoError.
func IsVetoError(err error) bool {
	var ve *VetoError
	return errors.As(err, &ve)
}

// ValidationErrors is returned by Build when a definition does not validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
}
