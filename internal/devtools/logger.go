package devtools

import (
	"context"
	"log/slog"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/store"
)

// LoggerOption configures AttachLogger.
type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	level   slog.Level
	message string
	keys    map[string]bool
}

// WithLevel sets the level changes are logged at. Default: slog.LevelInfo.
func WithLevel(level slog.Level) LoggerOption {
	return func(c *loggerConfig) {
		c.level = level
	}
}

// WithMessage sets the log message. Default: "state changed".
func WithMessage(msg string) LoggerOption {
	return func(c *loggerConfig) {
		c.message = msg
	}
}

// WithKeys limits logging to the given field keys.
func WithKeys(keys ...string) LoggerOption {
	return func(c *loggerConfig) {
		c.keys = make(map[string]bool, len(keys))
		for _, k := range keys {
			c.keys[k] = true
		}
	}
}

// AttachLogger logs every change of e to logger. Unsubscribe the returned
// subscription to detach.
func AttachLogger(e store.Engine, logger *slog.Logger, opts ...LoggerOption) *emitter.Subscription {
	cfg := loggerConfig{level: slog.LevelInfo, message: "state changed"}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := e.Name()
	return e.OnAll().Subscribe(emitter.Func(func(c store.Change) {
		if cfg.keys != nil && !cfg.keys[c.Key] {
			return
		}
		logger.LogAttrs(context.Background(), cfg.level, cfg.message,
			slog.String("store", name),
			slog.String("key", c.Key),
			slog.Any("previous", c.PreviousValue),
			slog.Any("value", c.Value),
			slog.Int64("version", c.Version),
		)
	}))
}
