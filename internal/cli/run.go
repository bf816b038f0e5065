package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/statebox/internal/devtools"
	"github.com/roach88/statebox/internal/spec"
	"github.com/roach88/statebox/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Store    string
	Sets     []string
	Database string
	Label    string
	Dev      bool

	// IDs overrides the recorder's session id generator (for testing).
	IDs devtools.IDGenerator
}

// Assignment is one parsed --set flag.
type Assignment struct {
	Key   string
	Value any
}

// RunResult is the outcome of a run.
type RunResult struct {
	Store   string         `json:"store"`
	Version int64          `json:"version"`
	Keys    []string       `json:"keys"`
	State   map[string]any `json:"state"`
	Session string         `json:"session,omitempty"`
	Changes int64          `json:"changes,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Build a store and apply writes",
		Long: `Build a store from its CUE definition, apply --set writes in order
and print the final state.

Values are parsed as YAML, so --set count=3 writes an integer,
--set 'items=[a, b]' a list and --set name=bob a string. Every change,
including the ones effects make, is logged to stderr.

With --db the changes are recorded to a SQLite file and can be shown
later with "statebox trace".

Examples:
  statebox run ./stores.cue --store counter --set count=1 --set count=3
  statebox run ./stores.cue --store cart --set 'items=[apple]' --db ./trace.db
  statebox run ./cycle.cue --set a=1 --dev`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "store to run (optional when the path holds one)")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "key=value write, repeatable")
	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.env.Database, "record changes to this SQLite file")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label stored with the recorded session")
	cmd.Flags().BoolVar(&opts.Dev, "dev", rootOpts.env.Dev, "log cycle diagnostics")

	return cmd
}

func runStore(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	assignments, err := ParseAssignments(opts.Sets)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidSet, "invalid --set", err)
	}

	defs, err := loadDefinitions(f, path)
	if err != nil {
		return err
	}
	def, err := pickDefinition(f, defs, opts.Store)
	if err != nil {
		return err
	}

	s, err := spec.Build(def, store.WithLogger(logger), store.WithDevMode(opts.Dev))
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCheckFailed, fmt.Sprintf("store %s is invalid", def.Name), err)
	}
	defer devtools.AttachLogger(s, logger).Unsubscribe()

	result := RunResult{Store: s.Name(), Keys: s.Keys()}

	var session *devtools.Session
	if opts.Database != "" {
		rec, err := devtools.Open(opts.Database, devtools.WithRecorderLogger(logger))
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := rec.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		session, err = rec.Record(ctx, s, devtools.SessionOptions{Label: opts.Label, IDs: opts.IDs})
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to start recording", err)
		}
		defer session.Stop()
		result.Session = session.ID()
	}

	for _, a := range assignments {
		setter, err := s.SetterFor(a.Key)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cannot set %s", a.Key), err)
		}
		if err := setter.Set(a.Value); err != nil {
			return f.Fail(ExitFailure, ErrCodeWriteFailed, fmt.Sprintf("set %s=%v failed", a.Key, a.Value), err)
		}
	}

	result.Version = s.Version()
	result.State = s.StateMap()
	if session != nil {
		result.Changes = session.Len()
		if err := session.Err(); err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "recording incomplete", err)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	outputRunText(f, result)
	return nil
}

func outputRunText(f *OutputFormatter, result RunResult) {
	w := f.Writer
	fmt.Fprintf(w, "%s (v%d)\n", result.Store, result.Version)
	for _, key := range result.Keys {
		fmt.Fprintf(w, "  %s = %s\n", key, formatValue(result.State[key]))
	}
	if result.Session != "" {
		fmt.Fprintf(w, "recorded %d change(s) as session %s\n", result.Changes, result.Session)
	}
}

// formatValue renders a state value in YAML flow style, the way it would
// be written with --set.
func formatValue(v any) string {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	setFlowStyle(&node)
	data, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(string(data), "\n")
}

func setFlowStyle(n *yaml.Node) {
	n.Style |= yaml.FlowStyle
	for _, c := range n.Content {
		setFlowStyle(c)
	}
}

// ParseAssignments parses key=value pairs. Values are decoded as YAML and
// normalized the way definition values are; an empty value is null.
func ParseAssignments(sets []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(sets))
	for _, raw := range sets {
		key, text, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%q: want key=value", raw)
		}
		var v any
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("%q: %w", raw, err)
		}
		out = append(out, Assignment{Key: key, Value: spec.Normalize(v)})
	}
	return out, nil
}
