package hostfuncs

import (
	"context"

	"github.com/reglet-dev/framescript/draw"
)

// HostContext is what an operation sees of the script call that reached it:
// the operation name, the capability state of the calling runtime and a
// scratch map for middleware.
type HostContext interface {
	context.Context

	// FunctionName is the registered operation name, e.g. op_shapes_rect.
	FunctionName() string

	// State is the calling runtime's capability store, or nil when the call
	// did not come through a runtime.
	State() *State

	// Canvas borrows the drawing context from State.
	Canvas() (*draw.Context, bool)

	// SetValue and GetValue hold values for the rest of this one call.
	// The map lives on the HostContext itself, not on the context chain.
	SetValue(key, value any)
	GetValue(key any) (value any, ok bool)
}

type opCall struct {
	context.Context
	op      string
	state   *State
	scratch map[any]any
}

// NewHostContext starts the HostContext of one call to op. The capability
// state is taken from ctx once, here.
func NewHostContext(ctx context.Context, op string) HostContext {
	state, _ := StateFrom(ctx)
	return &opCall{Context: ctx, op: op, state: state}
}

func (c *opCall) FunctionName() string { return c.op }

func (c *opCall) State() *State { return c.state }

func (c *opCall) Canvas() (*draw.Context, bool) {
	dc, ok := Borrow[*draw.Context](c.state)
	return dc, ok && dc != nil
}

func (c *opCall) SetValue(key, value any) {
	if c.scratch == nil {
		c.scratch = make(map[any]any)
	}
	c.scratch[key] = value
}

func (c *opCall) GetValue(key any) (any, bool) {
	v, ok := c.scratch[key]
	return v, ok
}

// HostContextFrom returns ctx itself when a registry already wrapped it,
// so middleware and the operation share one scratch map.
func HostContextFrom(ctx context.Context, op string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, op)
}
