package host

import (
	"fmt"

	"github.com/reglet-dev/framescript/bridge"
	"github.com/reglet-dev/framescript/render"
	"go.uber.org/zap"
)

// ErrorPolicy decides what a failed frame does to the session.
type ErrorPolicy string

const (
	// AbortOnError ends the session at the first failed frame.
	AbortOnError ErrorPolicy = "abort"
	// SkipOnError logs a failed frame, drops it and continues.
	SkipOnError ErrorPolicy = "skip"
)

// ParseErrorPolicy accepts "abort" or "skip". The empty string means abort.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", AbortOnError:
		return AbortOnError, nil
	case SkipOnError:
		return SkipOnError, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want abort or skip)", s)
	}
}

// Option defines a functional option for configuring a Session.
type Option func(*Session)

// WithRuntimeOptions passes options through to the session's bridge.Runtime.
func WithRuntimeOptions(opts ...bridge.Option) Option {
	return func(s *Session) {
		s.runtimeOpts = append(s.runtimeOpts, opts...)
	}
}

// WithSink sets where finished frames go. The default discards them.
func WithSink(sink render.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithErrorPolicy sets how failed frames are handled.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(s *Session) {
		s.policy = p
	}
}

// WithLogger sets the logger for the session and its runtime.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
