package hostfuncs

import (
	"context"
)

// OpShapesRect is the registered name of the rectangle operation.
const OpShapesRect = "op_shapes_rect"

// RectRequest is the argument list of op_shapes_rect. Any number is
// accepted, NaN and the infinities included; renderers skip what they
// cannot place.
type RectRequest struct {
	// X is the horizontal centre of the rectangle, in pixels from the frame centre.
	X float32 `json:"x" jsonschema:"description=Horizontal centre in pixels from the frame centre"`

	// Y is the vertical centre of the rectangle, in pixels from the frame centre (up is positive).
	Y float32 `json:"y" jsonschema:"description=Vertical centre in pixels from the frame centre"`
}

// PerformRect issues one fixed-size plum rectangle at (X, Y) on the drawing
// context held in the call's capability state.
func PerformRect(ctx context.Context, req RectRequest) (Void, error) {
	call := HostContextFrom(ctx, OpShapesRect)
	if call.State() == nil {
		return Void{}, NewInternalError("no capability state attached to call")
	}
	dc, ok := call.Canvas()
	if !ok {
		return Void{}, NewInternalError("drawing context not available")
	}
	dc.Rect(req.X, req.Y)
	return Void{}, nil
}
