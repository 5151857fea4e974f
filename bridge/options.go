package bridge

import (
	"github.com/dop251/goja_nodejs/console"
	"github.com/reglet-dev/framescript/hostfuncs"
	"go.uber.org/zap"
)

// Option defines a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(r *Runtime) {
		r.cfg = cfg
	}
}

// WithModulePath sets the synthetic location of the main module.
func WithModulePath(p string) Option {
	return func(r *Runtime) {
		r.cfg.ModulePath = p
	}
}

// WithLanguage sets the language of the main module source.
func WithLanguage(lang Language) Option {
	return func(r *Runtime) {
		r.cfg.Language = lang
	}
}

// WithConsole enables or disables the script console.
func WithConsole(enabled bool) Option {
	return func(r *Runtime) {
		r.cfg.EnableConsole = enabled
	}
}

// WithModuleLoader sets the collaborator that supplies imported modules.
// Without it every import fails.
func WithModuleLoader(loader ModuleLoader) Option {
	return func(r *Runtime) {
		r.loader = loader
	}
}

// WithOperations configures the runtime with a host operation registry.
// Without it the runtime uses hostfuncs.DefaultRegistry.
func WithOperations(registry *hostfuncs.HandlerRegistry) Option {
	return func(r *Runtime) {
		r.ops = registry
	}
}

// WithCapability adds a value to the capability state visible to operations.
func WithCapability(v any) Option {
	return func(r *Runtime) {
		r.state.Put(v)
	}
}

// WithLogger sets the logger for the runtime and, unless WithPrinter is
// also given, for script console output.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPrinter routes script console output to p.
func WithPrinter(p console.Printer) Option {
	return func(r *Runtime) {
		r.printer = p
	}
}
