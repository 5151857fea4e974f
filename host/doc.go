// Package host drives scripts frame by frame.
//
// A Session owns a bridge.Runtime and the draw.Context it writes into. It
// compiles a script once, then calls Step for every frame: each Step runs
// the script's main export, flushes the commands the script issued and
// hands the resulting render.Frame to a sink. Frames never overlap.
//
// Whether a failed frame ends the session is decided by the ErrorPolicy.
// AbortOnError stops at the first failure; SkipOnError logs the failure,
// drops that frame's partial output and keeps going, returning every
// skipped failure at the end.
//
// Scenes describe a whole run in YAML (script, size, frame rate, error
// policy) and are loaded with a SceneLoader, which renders the manifest as
// a text/template before parsing it.
package host
