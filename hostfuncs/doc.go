// Package hostfuncs provides the host operations a script can call.
// Operations are plain Go functions with no interpreter dependency; the
// bridge package installs a HandlerRegistry into the script runtime.
package hostfuncs
