package hostfuncs

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"
)

// HandlerRegistry is an immutable collection of named host operations.
// Once created via NewRegistry, operations cannot be added or removed,
// which keeps the script-visible operation table fixed for a session.
type HandlerRegistry struct {
	handlers   map[string]Handler
	requests   map[string]reflect.Type
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	handlers   map[string]Handler
	requests   map[string]reflect.Type
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Returns an error if any operation name is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(ShapesBundle()),
//	    WithHandler("op_custom", customOp),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers: make(map[string]Handler),
		requests: make(map[string]reflect.Type),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := lo.Keys(b.handlers)
	sort.Strings(names)

	// Apply middleware in reverse order so first middleware wraps outermost
	wrapped := make(map[string]Handler, len(b.handlers))
	for name, handler := range b.handlers {
		h := handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[name] = h
	}

	return &HandlerRegistry{
		handlers:   wrapped,
		requests:   b.requests,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Invoke dispatches an operation call by name.
// Unknown names fail with a NOT_FOUND OperationError.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, args Args) (any, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return nil, NewNotFoundError(name)
	}

	hctx := HostContextFrom(ctx, name)
	return handler(hctx, args)
}

// Has returns true if an operation with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of all registered operation names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

func (b *registryBuilder) addHandler(name string, handler Handler, req reflect.Type) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler %q is nil", name)
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate handler name: %q", name)
	}
	b.handlers[name] = handler
	if req != nil {
		b.requests[name] = req
	}
	return nil
}

// WithRawHandler registers an untyped Handler with the given name.
// Use WithHandler for typed registration with argument decoding and validation.
func WithRawHandler(name string, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, handler, nil); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithHandler registers a typed host operation.
// The function is wrapped with NewTypedHandler.
//
// Example usage:
//
//	WithHandler("op_echo", func(ctx context.Context, req EchoRequest) (EchoResponse, error) {
//	    return EchoResponse{Text: req.Text}, nil
//	})
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, NewTypedHandler(fn), reflect.TypeOf((*Req)(nil)).Elem()); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
