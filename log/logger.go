// Package log builds the zap loggers used across framescript and routes
// script console output into them.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Option configures New.
type Option func(*config)

type config struct {
	level     zapcore.Level
	format    Format
	addSource bool
	sink      zapcore.WriteSyncer
}

func defaultConfig() config {
	return config{
		level:  zapcore.InfoLevel,
		format: FormatConsole,
		sink:   zapcore.Lock(os.Stderr),
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level zapcore.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithFormat selects console or JSON encoding.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) Option {
	return func(c *config) {
		c.addSource = enabled
	}
}

// WithSink redirects output, mainly for tests.
func WithSink(ws zapcore.WriteSyncer) Option {
	return func(c *config) {
		c.sink = ws
	}
}

// New creates a logger with the given options.
func New(opts ...Option) (*zap.Logger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.format {
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole, "":
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format: %q", cfg.format)
	}

	core := zapcore.NewCore(enc, cfg.sink, zap.NewAtomicLevelAt(cfg.level))
	var zopts []zap.Option
	if cfg.addSource {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(core, zopts...), nil
}

// ParseLevel converts a level name such as "debug" or "warn".
func ParseLevel(s string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
