package store

import (
	"errors"
	"fmt"
)

// FieldError reports an unknown or invalid field key.
//
// Accessors such as Get, Set and On panic with a *FieldError when given a
// key the store does not have; it is a programmer error. SetterFor and
// Lookup report the same condition without panicking.
type FieldError struct {
	Store  string
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Store != "" {
		return fmt.Sprintf("store %s: field %q: %s", e.Store, e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
}

// TypeError reports a value that cannot be stored in a field.
type TypeError struct {
	Key  string
	Want string
	Got  string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("field %q: cannot use %s as %s", e.Key, e.Got, e.Want)
}

// QuotaError reports that one top-level Set cascaded into more accepted
// mutations than the configured maximum.
type QuotaError struct {
	Store string
	Key   string
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("store %s: mutation of %q exceeded max steps (%d > %d)", e.Store, e.Key, e.Steps, e.Limit)
}

// IsQuotaError returns true if err is or wraps a *QuotaError.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsTypeError returns true if err is or wraps a *TypeError.
func IsTypeError(err error) bool {
	var te *TypeError
	return errors.As(err, &te)
}

// IsFieldError returns true if err is or wraps a *FieldError.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}
