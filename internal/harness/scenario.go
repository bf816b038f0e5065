package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statebox/internal/spec"
)

// Scenario is one store conformance test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is a CUE file holding the store definition. Relative paths are
	// resolved against the scenario file. Mutually exclusive with State.
	Spec string `yaml:"spec,omitempty"`

	// Store selects a definition from Spec by name, and names inline stores.
	// May be omitted when Spec holds a single definition.
	Store string `yaml:"store,omitempty"`

	// State is the inline initial state. A YAML mapping keeps key order.
	State yaml.Node `yaml:"state,omitempty"`

	// Effects and Guards are the inline store's rules.
	Effects []spec.Rule  `yaml:"effects,omitempty"`
	Guards  []spec.Guard `yaml:"guards,omitempty"`

	// MaxSteps overrides the store's step quota when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Steps are the writes to perform, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step writes one field.
type Step struct {
	Set   string `yaml:"set"`
	Value any    `yaml:"value"`

	// ExpectError names the error kind the write must fail with: one of
	// cycle, depth, quota, type, veto or any. Empty means the write must
	// succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Error kinds accepted by Step.ExpectError.
const (
	ErrorCycle = "cycle"
	ErrorDepth = "depth"
	ErrorQuota = "quota"
	ErrorType  = "type"
	ErrorVeto  = "veto"
	ErrorAny   = "any"
)

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Key is the field a trace assertion is about.
	Key string `yaml:"key,omitempty"`

	// Value and Previous restrict trace_contains to changes with these
	// values. Omitted means any value.
	Value    any `yaml:"value,omitempty"`
	Previous any `yaml:"previous,omitempty"`

	// Keys is the expected order for trace_order. Each key matches its
	// first change in the trace; other changes may come in between.
	Keys []string `yaml:"keys,omitempty"`

	// Count is the exact number of changes for trace_count.
	Count int `yaml:"count,omitempty"`

	// Expect holds the expected final values for final_state. Keys not
	// listed are not checked.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly. A relative Spec path is resolved against
// the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) {
		scenario.Spec = filepath.Join(filepath.Dir(path), scenario.Spec)
	}
	if scenario.Spec != "" {
		if _, err := os.Stat(scenario.Spec); err != nil {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", scenario.Spec)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	inline := s.State.Kind != 0
	switch {
	case s.Spec == "" && !inline:
		return fmt.Errorf("either spec or state is required")
	case s.Spec != "" && inline:
		return fmt.Errorf("spec and state are mutually exclusive")
	case s.Spec != "" && (len(s.Effects) > 0 || len(s.Guards) > 0):
		return fmt.Errorf("effects and guards belong in the spec file")
	case inline && s.State.Kind != yaml.MappingNode:
		return fmt.Errorf("state must be a mapping")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.Set == "" {
			return fmt.Errorf("steps[%d]: set is required", i)
		}
		switch step.ExpectError {
		case "", ErrorCycle, ErrorDepth, ErrorQuota, ErrorType, ErrorVeto, ErrorAny:
		default:
			return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Keys) == 0 {
			return fmt.Errorf("assertions[%d]: keys list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// definition resolves the scenario's store definition.
func (s *Scenario) definition() (*spec.Definition, error) {
	if s.Spec != "" {
		defs, err := spec.LoadFile(s.Spec)
		if err != nil {
			return nil, err
		}
		if s.Store == "" {
			if len(defs) != 1 {
				return nil, fmt.Errorf("%s holds %d stores; set store to pick one", s.Spec, len(defs))
			}
			return &defs[0], nil
		}
		for i := range defs {
			if defs[i].Name == s.Store {
				return &defs[i], nil
			}
		}
		return nil, fmt.Errorf("store %q not found in %s", s.Store, s.Spec)
	}

	name := s.Store
	if name == "" {
		name = s.Name
	}
	def := &spec.Definition{
		Name:    name,
		State:   map[string]any{},
		Effects: s.Effects,
		Guards:  s.Guards,
	}
	content := s.State.Content
	for i := 0; i+1 < len(content); i += 2 {
		var key string
		if err := content[i].Decode(&key); err != nil {
			return nil, fmt.Errorf("state key at line %d: %w", content[i].Line, err)
		}
		var v any
		if err := content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("state %s: %w", key, err)
		}
		if _, dup := def.State[key]; dup {
			return nil, fmt.Errorf("state key %q declared twice", key)
		}
		def.Keys = append(def.Keys, key)
		def.State[key] = spec.Normalize(v)
	}
	return def, nil
}
