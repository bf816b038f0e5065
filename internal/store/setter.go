package store

// Setter writes one field. Setters are created once per field when the
// store is constructed, so Store.Set(key) returns the same *Setter for the
// lifetime of the store.
type Setter struct {
	key string
	set func(any) error
}

// Key returns the field key this setter writes.
func (s *Setter) Key() string {
	return s.key
}

// Set stores v in the field if it differs structurally from the current
// value, then notifies subscribers before returning.
//
// Set returns a *TypeError if v does not fit the field, the error of a
// vetoing Before hook, a *QuotaError, or the first error raised while
// dispatching the change (including *emitter.CycleError).
func (s *Setter) Set(v any) error {
	return s.set(v)
}
