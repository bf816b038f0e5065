package harness

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/spec"
	"github.com/roach88/statebox/internal/store"
)

func mustLoad(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return scenario
}

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return scenario
}

// =============================================================================
// Run
// =============================================================================

func TestRun_CounterDoubles(t *testing.T) {
	result, err := Run(mustLoad(t, "counter_doubles"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	// Effects subscribe before the trace, so derived changes land first.
	assert.Equal(t, TraceEvent{Seq: 1, Step: 1, Key: "doubled", Previous: int64(0), Value: int64(2), Version: 3}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Step: 1, Key: "count", Previous: int64(0), Value: int64(1), Version: 2}, result.Trace[1])
	assert.Equal(t, 3, result.Trace[2].Step, "step 2 is a no-op")
	assert.Equal(t, map[string]any{"count": int64(3), "doubled": int64(6)}, result.State)
}

func TestRun_CartItems(t *testing.T) {
	result, err := Run(mustLoad(t, "cart_items"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []any{"apple", "pear"}, result.State["items"])
}

func TestRun_GuardVeto(t *testing.T) {
	result, err := Run(mustLoad(t, "balance_guard"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(5), result.State["balance"])
}

func TestRun_Cycle(t *testing.T) {
	result, err := Run(mustLoad(t, "pingpong_cycle"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Quota(t *testing.T) {
	result, err := Run(mustLoad(t, "relay_quota"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FreshStorePerRun(t *testing.T) {
	scenario := mustLoad(t, "counter_doubles")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.State, second.State)
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected
description: a veto nobody expected
state: {n: 1}
guards: [{key: n, reject: "value > 10"}]
steps:
  - {set: n, value: 11}
assertions:
  - {type: final_state, expect: {n: 1}}
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] (set n): unexpected error")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := mustParse(t, `
name: missing_error
description: the write succeeds although a cycle was expected
state: {n: 1}
steps:
  - {set: n, value: 2, expect_error: cycle}
assertions:
  - {type: trace_count, key: n, count: 1}
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"steps[0] (set n): expected cycle error, got none"}, result.Errors)
}

func TestRun_WrongErrorKind(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_kind
description: a veto where a quota error was expected
state: {n: 1}
guards: [{key: n, reject: "true"}]
steps:
  - {set: n, value: 2, expect_error: quota}
assertions:
  - {type: trace_count, key: n, count: 0}
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected quota error, got veto")
}

func TestRun_AnyError(t *testing.T) {
	scenario := mustParse(t, `
name: any_error
description: any error kind is accepted
state: {n: 1}
guards: [{key: n, reject: "true"}]
steps:
  - {set: n, value: 2, expect_error: any}
assertions:
  - {type: trace_count, key: n, count: 0}
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownKeyStep(t *testing.T) {
	scenario := mustParse(t, `
name: unknown_key
description: writes to a missing field fail the run
state: {n: 1}
steps:
  - {set: m, value: 2}
assertions:
  - {type: final_state, expect: {n: 1}}
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `steps[0]: store unknown_key: field "m"`)
}

func TestRun_InvalidDefinition(t *testing.T) {
	scenario := mustParse(t, `
name: broken
description: effect points at a missing field
state: {n: 1}
effects: [{when: n, set: nope, to: "value"}]
steps:
  - {set: n, value: 2}
assertions:
  - {type: trace_count, key: n, count: 1}
`)
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario broken")
	assert.Contains(t, err.Error(), string(spec.ErrUnknownSet))
}

func TestRun_AssertionFailuresCollected(t *testing.T) {
	scenario := mustParse(t, `
name: failing
description: two assertions fail
state: {n: 1}
steps:
  - {set: n, value: 2}
assertions:
  - {type: trace_count, key: n, count: 5}
  - {type: final_state, expect: {n: 3}}
  - {type: trace_contains, key: n, value: 2}
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
}

func TestRun_Options(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario := mustLoad(t, "pingpong_cycle")
	result, err := Run(scenario, WithLogger(logger), WithStoreOptions(store.WithDevMode(true)))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, buf.String(), "cyclical mutation detected")
}

func TestRun_MaxStepsOverride(t *testing.T) {
	scenario := mustLoad(t, "relay_quota")
	scenario.MaxSteps = 0
	scenario.Steps[0].ExpectError = ""
	scenario.Assertions = []Assertion{{Type: AssertFinalState, Expect: map[string]any{"d": 4}}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

// =============================================================================
// ErrorKind
// =============================================================================

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&emitter.CycleError{Chain: []string{"a", "a"}}, ErrorCycle},
		{&emitter.DepthError{Limit: 2, Chain: []string{"a", "b", "c"}}, ErrorDepth},
		{&store.QuotaError{Store: "s", Key: "k", Steps: 4, Limit: 3}, ErrorQuota},
		{&store.TypeError{Key: "k"}, ErrorType},
		{&spec.VetoError{Store: "s", Key: "k"}, ErrorVeto},
		{fmt.Errorf("wrapped: %w", &spec.VetoError{Store: "s", Key: "k"}), ErrorVeto},
		{errors.New("plain"), ErrorAny},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
