package hostfuncs

import (
	"reflect"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// HostFuncBundle is a pre-configured set of related host operations.
// Bundles allow registering multiple operations at once.
type HostFuncBundle interface {
	// Handlers returns a map of operation names to handlers.
	Handlers() map[string]Handler
}

// typedBundle is implemented by bundles that know the request type of each
// operation, so the registry can publish schemas for them.
type typedBundle interface {
	requestTypes() map[string]reflect.Type
}

type staticBundle struct {
	handlers map[string]Handler
	requests map[string]reflect.Type
}

func (b *staticBundle) Handlers() map[string]Handler {
	return b.handlers
}

func (b *staticBundle) requestTypes() map[string]reflect.Type {
	return b.requests
}

// ShapesBundle returns the drawing operations: op_shapes_rect.
func ShapesBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[string]Handler{
			OpShapesRect: NewTypedHandler(PerformRect),
		},
		requests: map[string]reflect.Type{
			OpShapesRect: reflect.TypeOf(RectRequest{}),
		},
	}
}

type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[string]Handler {
	return lo.Assign(lo.Map(b.bundles, func(bundle HostFuncBundle, _ int) map[string]Handler {
		return bundle.Handlers()
	})...)
}

func (b *compositeBundle) requestTypes() map[string]reflect.Type {
	result := make(map[string]reflect.Type)
	for _, bundle := range b.bundles {
		if tb, ok := bundle.(typedBundle); ok {
			for name, t := range tb.requestTypes() {
				result[name] = t
			}
		}
	}
	return result
}

// AllBundles returns a bundle containing every built-in operation.
func AllBundles() HostFuncBundle {
	return &compositeBundle{
		bundles: []HostFuncBundle{
			ShapesBundle(),
		},
	}
}

// WithBundle registers all operations from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		var requests map[string]reflect.Type
		if tb, ok := bundle.(typedBundle); ok {
			requests = tb.requestTypes()
		}
		for name, handler := range bundle.Handlers() {
			if err := b.addHandler(name, handler, requests[name]); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// DefaultRegistry builds the standard operation table: every built-in
// bundle behind logging and panic recovery.
func DefaultRegistry(logger *zap.Logger) (*HandlerRegistry, error) {
	return NewRegistry(
		WithMiddleware(LoggingMiddleware(logger), PanicRecoveryMiddleware()),
		WithBundle(AllBundles()),
	)
}
