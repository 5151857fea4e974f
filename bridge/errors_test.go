package bridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileError_Error(t *testing.T) {
	err := &CompileError{Kind: KindParse, Specifier: "file:///main.js", Message: "unexpected token"}
	assert.Equal(t, "compile file:///main.js: parse error: unexpected token", err.Error())

	bare := &CompileError{Kind: KindEvaluation}
	assert.Equal(t, "compile: evaluation error", bare.Error())
}

func TestRunError_Error(t *testing.T) {
	err := &RunError{Kind: KindScriptThrew, Message: "Error: boom"}
	assert.Equal(t, "run: script_threw: Error: boom", err.Error())
	assert.Equal(t, "run: no_module_loaded", (&RunError{Kind: KindNoModuleLoaded}).Error())
}

func TestErrors_IsMatchesKind(t *testing.T) {
	cause := errors.New("root cause")
	compileErr := fmt.Errorf("load scene: %w", &CompileError{Kind: KindImport, Cause: cause})
	runErr := fmt.Errorf("frame 3: %w", &RunError{Kind: KindMissingEntryPoint})

	assert.ErrorIs(t, compileErr, ErrImport)
	assert.NotErrorIs(t, compileErr, ErrParse)
	assert.ErrorIs(t, compileErr, cause)

	assert.ErrorIs(t, runErr, ErrMissingEntryPoint)
	assert.NotErrorIs(t, runErr, ErrScriptThrew)
	assert.NotErrorIs(t, runErr, ErrImport)
}

func TestImportError(t *testing.T) {
	err := &importError{specifier: "./lib.js", err: ErrModuleNotFound}
	assert.Equal(t, `cannot load module "./lib.js": module not found`, err.Error())
	assert.ErrorIs(t, err, ErrModuleNotFound)
}
