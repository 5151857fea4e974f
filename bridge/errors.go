package bridge

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies compile and run failures.
type ErrorKind string

const (
	// KindParse means the source could not be transformed or parsed.
	KindParse ErrorKind = "parse"
	// KindImport means an imported module could not be resolved or loaded.
	KindImport ErrorKind = "import"
	// KindEvaluation means top-level code threw or left a rejected promise unhandled.
	KindEvaluation ErrorKind = "evaluation"

	// KindNoModuleLoaded means Run was called before a successful Compile.
	KindNoModuleLoaded ErrorKind = "no_module_loaded"
	// KindMissingEntryPoint means the module has no callable main export.
	KindMissingEntryPoint ErrorKind = "missing_entry_point"
	// KindScriptThrew means main threw or its promise rejected.
	KindScriptThrew ErrorKind = "script_threw"
	// KindUnsettled means main returned a promise that was still pending
	// once every queued job and timer had run.
	KindUnsettled ErrorKind = "unsettled"
)

// ErrClosed is returned by every call on a closed Runtime.
var ErrClosed = errors.New("bridge: runtime is closed")

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrParse             = &CompileError{Kind: KindParse}
	ErrImport            = &CompileError{Kind: KindImport}
	ErrEvaluation        = &CompileError{Kind: KindEvaluation}
	ErrNoModuleLoaded    = &RunError{Kind: KindNoModuleLoaded}
	ErrMissingEntryPoint = &RunError{Kind: KindMissingEntryPoint}
	ErrScriptThrew       = &RunError{Kind: KindScriptThrew}
	ErrUnsettled         = &RunError{Kind: KindUnsettled}
)

// CompileError reports a failed Compile. Message and Stack are the script's
// own error text when the failure came from script code.
type CompileError struct {
	Kind      ErrorKind
	Specifier string
	Message   string
	Stack     string
	Cause     error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("compile")
	if e.Specifier != "" {
		b.WriteString(" ")
		b.WriteString(e.Specifier)
	}
	fmt.Fprintf(&b, ": %s error", e.Kind)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Cause }

// Is matches another *CompileError with the same Kind.
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	return ok && t.Kind == e.Kind
}

// RunError reports a failed Run. A failed Run never unloads the module.
type RunError struct {
	Kind    ErrorKind
	Message string
	Stack   string
	Cause   error
}

func (e *RunError) Error() string {
	msg := "run: " + string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Cause }

// Is matches another *RunError with the same Kind.
func (e *RunError) Is(target error) bool {
	t, ok := target.(*RunError)
	return ok && t.Kind == e.Kind
}

// importError marks a failure raised by the require path so top-level
// evaluation errors can be told apart from unresolved imports.
type importError struct {
	specifier string
	err       error
}

func (e *importError) Error() string {
	return fmt.Sprintf("cannot load module %q: %v", e.specifier, e.err)
}

func (e *importError) Unwrap() error { return e.err }
