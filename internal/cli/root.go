package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	env Env
}

// Env holds defaults taken from the environment. Flags override them.
type Env struct {
	Format   string `env:"STATEBOX_FORMAT" envDefault:"text"`
	Verbose  bool   `env:"STATEBOX_VERBOSE"`
	Database string `env:"STATEBOX_DB"`
	Dev      bool   `env:"STATEBOX_DEV"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{Format: "text"}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the statebox CLI.
func NewRootCommand() *cobra.Command {
	cfg, envErr := ParseEnv()
	opts := &RootOptions{env: cfg}

	cmd := &cobra.Command{
		Use:   "statebox",
		Short: "statebox - reactive typed state stores",
		Long: `Define stores in CUE, exercise them from the command line and
check their behavior with YAML scenarios.

Environment:
  STATEBOX_FORMAT   default for --format
  STATEBOX_VERBOSE  default for --verbose
  STATEBOX_DB       default for --db
  STATEBOX_DEV      default for --dev`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", envErr)
			}
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// logger returns a text logger on w. Verbose lowers the level to debug.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
