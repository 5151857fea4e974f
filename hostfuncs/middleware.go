package hostfuncs

import (
	"context"

	"go.uber.org/zap"
)

// Middleware wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	counting := func(next Handler) Handler {
//	    return func(ctx context.Context, args Args) (any, error) {
//	        calls.Add(1)
//	        return next(ctx, args)
//	    }
//	}
type Middleware func(next Handler) Handler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that converts panics in an
// operation into an INTERNAL_ERROR OperationError instead of unwinding
// through the interpreter.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, args Args) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = nil
					err = NewPanicError(r)
				}
			}()
			return next(ctx, args)
		}
	}
}

// LoggingMiddleware returns a middleware that logs operation invocations at
// debug level and failures at warn level.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, args Args) (any, error) {
			funcName := "unknown"
			if hc, ok := ctx.(HostContext); ok {
				funcName = hc.FunctionName()
			}
			if ce := logger.Check(zap.DebugLevel, "invoking host operation"); ce != nil {
				ce.Write(zap.String("op", funcName), zap.Int("args", len(args)))
			}
			resp, err := next(ctx, args)
			if err != nil {
				logger.Warn("host operation failed", zap.String("op", funcName), zap.Error(err))
			}
			return resp, err
		}
	}
}
