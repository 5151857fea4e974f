package bridge

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/dop251/goja"
	"github.com/reglet-dev/framescript/hostfuncs"
)

//go:embed bootstrap.js
var bootstrapSource string

const bootstrapName = "ext:framescript/bootstrap.js"

// installBootstrap builds the operation table and hands it to the bootstrap
// script, which publishes the script-facing API.
func (r *Runtime) installBootstrap(vm *goja.Runtime) error {
	prg, err := goja.Compile(bootstrapName, bootstrapSource, true)
	if err != nil {
		return fmt.Errorf("compile bootstrap: %w", err)
	}
	v, err := vm.RunProgram(prg)
	if err != nil {
		return fmt.Errorf("run bootstrap: %w", err)
	}
	install, ok := goja.AssertFunction(v)
	if !ok {
		return fmt.Errorf("bootstrap did not evaluate to a function")
	}
	if _, err := install(goja.Undefined(), r.opsObject(vm)); err != nil {
		return fmt.Errorf("install bootstrap: %w", err)
	}
	return nil
}

func (r *Runtime) opsObject(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	for _, name := range r.ops.Names() {
		_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
			return r.callOp(vm, name, call)
		})
	}
	return obj
}

// callOp runs a host operation inline on the interpreter goroutine.
// Failures are thrown into the script as Error objects that carry the
// OperationError, so the host can recover it from a RunError.
func (r *Runtime) callOp(vm *goja.Runtime, name string, call goja.FunctionCall) goja.Value {
	args := make(hostfuncs.Args, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i] = a.Export()
	}

	res, err := r.invokeOp(name, args)
	if err != nil {
		jsErr := vm.NewGoError(err)
		if opErr, ok := hostfuncs.AsOperationError(err); ok {
			_ = jsErr.Set("code", opErr.Type)
		}
		panic(jsErr)
	}

	switch res.(type) {
	case nil, hostfuncs.Void:
		return goja.Undefined()
	default:
		return vm.ToValue(res)
	}
}

func (r *Runtime) invokeOp(name string, args hostfuncs.Args) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, hostfuncs.NewPanicError(p)
		}
	}()
	ctx := hostfuncs.WithState(r.opContext(), r.state)
	return r.ops.Invoke(ctx, name, args)
}

func (r *Runtime) opContext() context.Context {
	if r.callCtx != nil {
		return r.callCtx
	}
	return context.Background()
}
