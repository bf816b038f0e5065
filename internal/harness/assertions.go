package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statebox/internal/spec"
	"github.com/roach88/statebox/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d: %s %v -> %v\n", event.Seq, event.Step, event.Key, event.Previous, event.Value)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// assertTraceContains checks that some change of Key matches Value and
// Previous when they are given.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Key != assertion.Key {
			continue
		}
		if assertion.Value != nil && !valuesEqual(assertion.Value, event.Value) {
			continue
		}
		if assertion.Previous != nil && !valuesEqual(assertion.Previous, event.Previous) {
			continue
		}
		return nil
	}

	expected := "change of " + assertion.Key
	if assertion.Previous != nil {
		expected += fmt.Sprintf(" from %v", assertion.Previous)
	}
	if assertion.Value != nil {
		expected += fmt.Sprintf(" to %v", assertion.Value)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first change of each key appears in the
// given order.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Key]; !seen {
			positions[event.Key] = i + 1
		}
	}

	for _, key := range assertion.Keys {
		if positions[key] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all keys present: %v", assertion.Keys),
				Actual:   fmt.Sprintf("missing key: %s", key),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Keys); i++ {
		prev, curr := assertion.Keys[i-1], assertion.Keys[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("keys in order: %v", assertion.Keys),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the exact number of changes of Key.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Key == assertion.Key {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d changes of %s", assertion.Count, assertion.Key),
			Actual:   fmt.Sprintf("%d changes", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the listed keys of the final state.
func assertFinalState(state map[string]any, assertion Assertion) error {
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		expected := assertion.Expect[key]
		actual, exists := state[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   "no such field",
			}
		}
		if !valuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, spec.Normalize(expected), spec.Normalize(expected)),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}
	return nil
}

// valuesEqual compares a YAML-decoded expectation with a store value.
func valuesEqual(expected, actual any) bool {
	return value.Equal(spec.Normalize(expected), actual)
}
