package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/spec"
	"github.com/roach88/statebox/internal/store"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	storeOpts []store.Option
}

// WithLogger sets the logger handed to the store. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStoreOptions appends options used to build the store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(c *config) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// Run executes a scenario against a fresh store and returns the result.
//
// The returned error reports problems with the scenario itself (its
// definition does not compile or build). Behavior that differs from the
// scenario's expectations is reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	def, err := scenario.definition()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	storeOpts := []store.Option{store.WithLogger(cfg.logger)}
	if scenario.MaxSteps > 0 {
		storeOpts = append(storeOpts, store.WithMaxSteps(scenario.MaxSteps))
	}
	s, err := spec.Build(def, append(storeOpts, cfg.storeOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult()
	step := 0
	sub := s.OnAll().Subscribe(emitter.Func(func(c store.Change) {
		result.AddTrace(step, c.Key, c.PreviousValue, c.Value, c.Version)
	}))
	defer sub.Unsubscribe()

	for i, st := range scenario.Steps {
		step = i + 1
		setter, err := s.SetterFor(st.Set)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			continue
		}
		err = setter.Set(spec.Normalize(st.Value))
		if msg := checkStepError(st.ExpectError, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] (set %s): %s", i, st.Set, msg))
		}
	}

	result.State = s.StateMap()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkStepError compares a step's error with its expectation and returns
// a failure message, or "" when they agree.
func checkStepError(expect string, err error) string {
	if expect == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected %s error, got none", expect)
	}
	if kind := ErrorKind(err); expect != ErrorAny && kind != expect {
		return fmt.Sprintf("expected %s error, got %s: %v", expect, kind, err)
	}
	return ""
}

// ErrorKind classifies err into one of the Step.ExpectError kinds.
// Unrecognized errors are "any".
func ErrorKind(err error) string {
	var (
		cycle *emitter.CycleError
		depth *emitter.DepthError
		quota *store.QuotaError
		typ   *store.TypeError
		veto  *spec.VetoError
	)
	switch {
	case errors.As(err, &cycle):
		return ErrorCycle
	case errors.As(err, &depth):
		return ErrorDepth
	case errors.As(err, &quota):
		return ErrorQuota
	case errors.As(err, &typ):
		return ErrorType
	case errors.As(err, &veto):
		return ErrorVeto
	default:
		return ErrorAny
	}
}
