package store

import (
	"log/slog"

	"github.com/roach88/statebox/internal/emitter"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	name     string
	devMode  bool
	logger   *slog.Logger
	maxSteps int
	maxDepth int
}

func defaultOptions() options {
	return options{
		name:     "store",
		maxSteps: DefaultMaxSteps,
		maxDepth: emitter.DefaultMaxDepth,
	}
}

// WithName names the store in logs and errors. Default: "store".
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDevMode enables verbose diagnostics. In dev mode every mutation
// aborted by a cycle, quota or depth error is logged at warn level with the
// full emission chain and the attempted value. Behavior is otherwise
// unchanged.
func WithDevMode(enabled bool) Option {
	return func(o *options) {
		o.devMode = enabled
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxSteps sets the maximum number of accepted mutations a single
// top-level Set may cascade into. Default: DefaultMaxSteps.
// Use WithMaxSteps(0) to disable the quota.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithMaxDepth caps the emission chain length. Default:
// emitter.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}
