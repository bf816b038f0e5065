package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/devtools"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - show one session in full
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded sessions",
		Long: `Show sessions recorded with "statebox run --db".

Without --session, lists every session with its store and change count.
With --session, prints the session's initial state followed by each
change in the order subscribers saw it.

Examples:
  statebox trace --db ./trace.db
  statebox trace --db ./trace.db --session 0190b6c4-...
  statebox trace --db ./trace.db --session 0190b6c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.env.Database, "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to show")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if opts.Database == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "--db is required (or set STATEBOX_DB)", nil)
	}
	// Open would create a missing file.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	rec, err := devtools.Open(opts.Database, devtools.WithRecorderLogger(opts.logger(cmd.ErrOrStderr())))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer rec.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Session == "" {
		sessions, err := rec.Sessions(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list sessions", err)
		}
		if f.JSON() {
			return f.Success(sessions)
		}
		outputSessionsText(f, sessions)
		return nil
	}

	session, err := rec.ReadSession(ctx, opts.Session)
	if errors.Is(err, devtools.ErrSessionNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to read session", err)
	}
	if f.JSON() {
		return f.Success(session)
	}
	fmt.Fprint(f.Writer, devtools.FormatSession(session))
	return nil
}

func outputSessionsText(f *OutputFormatter, sessions []devtools.SessionInfo) {
	w := f.Writer
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range sessions {
		if s.Label != "" {
			fmt.Fprintf(w, "%s  %s  %d change(s)  %q\n", s.ID, s.Store, s.Changes, s.Label)
		} else {
			fmt.Fprintf(w, "%s  %s  %d change(s)\n", s.ID, s.Store, s.Changes)
		}
	}
}
