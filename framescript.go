// Package framescript runs untrusted ECMAScript modules once per animation
// frame against a host-owned drawing context.
//
// The bridge package holds the script runtime, hostfuncs the operations a
// script may call, draw the drawing context, and host the frame loop that
// ties them together. This package carries the configuration helpers they
// share.
package framescript

// Config is a loosely typed configuration map, typically decoded from a
// config file or flag set, before validation into a typed options struct.
type Config map[string]interface{}

// Version of framescript.
const Version = "0.1.0"
