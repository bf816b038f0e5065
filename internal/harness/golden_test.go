package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_CounterDoubles(t *testing.T) {
	result, err := RunWithGolden(t, mustLoad(t, "counter_doubles"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_BalanceGuard(t *testing.T) {
	result, err := RunWithGolden(t, mustLoad(t, "balance_guard"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_InvalidScenario(t *testing.T) {
	scenario := mustParse(t, `
name: invalid
description: effect reads a missing field
state: {n: 1}
effects: [{when: m, set: n, to: "1"}]
steps: [{set: n, value: 2}]
assertions: [{type: trace_count, key: n, count: 1}]
`)
	_, err := RunWithGolden(t, scenario)
	require.Error(t, err)
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "tiny",
		Trace:        []TraceEvent{{Seq: 1, Step: 1, Key: "n", Previous: int64(0), Value: int64(1), Version: 2}},
		FinalState:   map[string]any{"n": int64(1)},
	}
	data, err := snapshot.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), `"scenario_name": "tiny"`)
	assert.Contains(t, string(data), `"previous": 0`)
}

// Every scenario under testdata/scenarios must pass.
func TestScenarios_AllPass(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "file name should match scenario name")

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			if _, err := os.Stat(filepath.Join("testdata", "golden", name+".golden")); err == nil {
				require.NoError(t, AssertGolden(t, name, result))
			}
		})
	}
}
