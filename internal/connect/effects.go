package connect

import (
	"fmt"

	"github.com/roach88/statebox/internal/store"
)

// MultiEffect wires reactive behavior across several stores.
type MultiEffect func(Stores) error

// ApplyEffects runs each effect once, in order. The first error aborts.
func ApplyEffects(stores Stores, effects ...MultiEffect) error {
	for i, effect := range effects {
		if effect == nil {
			continue
		}
		if err := effect(stores); err != nil {
			return fmt.Errorf("multi-store effect %d: %w", i, err)
		}
	}
	return nil
}

// Lookup returns the store for alias or a *MissingContextError.
func (s Stores) Lookup(alias string) (store.Engine, error) {
	e, ok := s[alias]
	if !ok {
		return nil, &MissingContextError{Container: alias}
	}
	return e, nil
}
