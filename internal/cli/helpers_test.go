package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const storesCUE = `package stores

store: counter: {
	state: {
		count:   0
		doubled: 0
	}
	effects: [
		{when: "count", set: "doubled", to: "value * 2"},
	]
}

store: cart: {
	state: {
		items:      []
		item_count: 0
	}
	effects: [
		{when: "items", set: "item_count", to: "len(value)"},
	]
	guards: [
		{key: "items", reject: "len(value) > 3", message: "cart is full"},
	]
}
`

const cycleCUE = `store: pingpong: {
	state: {
		a: 0
		b: 0
	}
	effects: [
		{when: "a", set: "b", to: "value + 1"},
		{when: "b", set: "a", to: "value + 1"},
	]
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
