package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/statebox/internal/spec"
)

// loadDefinitions loads every store definition at path. Missing paths are
// reported with ErrCodeNotFound, everything else with ErrCodeLoadFailed.
func loadDefinitions(f *OutputFormatter, path string) ([]spec.Definition, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", path), nil)
	}
	defs, err := spec.Load(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load definitions", err)
	}
	f.VerboseLog("Loaded %d store(s) from %s", len(defs), path)
	return defs, nil
}

// pickDefinition selects the named definition. An empty name is allowed
// when there is exactly one.
func pickDefinition(f *OutputFormatter, defs []spec.Definition, name string) (*spec.Definition, error) {
	if name == "" {
		if len(defs) == 1 {
			return &defs[0], nil
		}
		names := make([]string, len(defs))
		for i := range defs {
			names[i] = defs[i].Name
		}
		return nil, f.Fail(ExitCommandError, ErrCodeNoDefinition,
			fmt.Sprintf("found %d stores %v; pick one with --store", len(defs), names), nil)
	}
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i], nil
		}
	}
	return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("store %q not found", name), nil)
}
