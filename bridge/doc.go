// Package bridge runs a single script module inside a goja interpreter and
// calls its main export once per frame.
//
// A Runtime is created around a host-owned draw.Context. Scripts reach the
// context only through host operations registered in a
// hostfuncs.HandlerRegistry; the default registry provides the rectangle
// operation exposed to scripts as shapes.rect and drawRect.
//
// Basic usage:
//
//	dc := draw.NewContext()
//	rt, err := bridge.New(dc, bridge.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer rt.Close()
//
//	if err := rt.Compile(ctx, `export function main(t) { shapes.rect(Math.sin(t), 0); }`); err != nil {
//		return err
//	}
//	if err := rt.Run(ctx, 0.5); err != nil {
//		return err
//	}
//	frame := dc.Flush()
//
// Compile accepts ECMAScript modules (or TypeScript with WithLanguage).
// Module code is strict. Imports are resolved relative to the synthetic
// module path and served by the configured ModuleLoader; by default every
// import fails.
//
// Compile drains queued promise jobs and timers before returning, and
// waits for top-level await to finish. Run does the same, so a main that
// returns a promise is awaited before Run returns.
// Run and Compile never overlap on one Runtime. Nothing bounds how long a
// script may run.
//
// A second Compile replaces the loaded module but keeps the interpreter:
// globals and cached imports from earlier modules remain visible. Create a
// new Runtime when scripts must be isolated from each other.
package bridge
