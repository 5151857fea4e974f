package bridge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"reflect"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/reglet-dev/framescript"
	"github.com/reglet-dev/framescript/draw"
	"github.com/reglet-dev/framescript/hostfuncs"
	"github.com/reglet-dev/framescript/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var promiseType = reflect.TypeOf((*goja.Promise)(nil))

// Runtime owns one script interpreter and drives a single module through
// Compile and per-frame Run calls.
//
// All methods are safe to call from multiple goroutines; calls are
// serialized and never overlap. Script code, queued jobs, timers and host
// operations all execute on the goroutine that made the call.
type Runtime struct {
	mu sync.Mutex

	cfg     Config
	logger  *zap.Logger
	printer console.Printer
	loader  ModuleLoader
	ops     *hostfuncs.HandlerRegistry
	state   *hostfuncs.State

	loop    *eventloop.EventLoop
	vm      *goja.Runtime
	resolve goja.Callable

	module     *Module
	generation uint64

	// Per-call state, valid only while a Compile or Run is in flight.
	callCtx    context.Context
	unhandled  []*goja.Promise
	rejections map[*goja.Promise]struct{}

	closed bool
}

// New creates a Runtime whose operations draw into dc. The returned runtime
// has no module loaded.
func New(dc *draw.Context, opts ...Option) (*Runtime, error) {
	if dc == nil {
		return nil, errors.New("bridge: drawing context is required")
	}

	r := &Runtime{
		cfg:        DefaultConfig(),
		logger:     zap.NewNop(),
		loader:     NoImports(),
		state:      hostfuncs.NewState(),
		rejections: make(map[*goja.Promise]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := framescript.ValidateStruct(&r.cfg); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}
	if r.loader == nil {
		r.loader = NoImports()
	}
	if r.ops == nil {
		reg, err := hostfuncs.DefaultRegistry(r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		r.ops = reg
	}
	if r.printer == nil {
		r.printer = log.NewScriptPrinter(r.logger)
	}
	r.state.Put(dc)

	reg := require.NewRegistry(require.WithLoader(r.loadSource))
	reg.RegisterNativeModule("console", console.RequireWithPrinter(r.printer))

	r.loop = eventloop.NewEventLoop(
		eventloop.EnableConsole(false),
		eventloop.WithRegistry(reg),
	)

	var initErr error
	r.loop.Run(func(vm *goja.Runtime) {
		initErr = r.init(vm)
	})
	if initErr != nil {
		return nil, initErr
	}

	r.logger.Debug("bridge runtime ready",
		zap.String("module", r.cfg.Specifier()),
		zap.Strings("ops", r.ops.Names()))
	return r, nil
}

func (r *Runtime) init(vm *goja.Runtime) error {
	r.vm = vm

	// The event loop enabled the registry on vm; its require is the one
	// resolver for this interpreter.
	resolve, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return errors.New("bridge: event loop did not install require")
	}
	r.resolve = resolve

	if r.cfg.EnableConsole {
		if err := r.installConsole(vm); err != nil {
			return err
		}
	}
	if err := vm.Set("require", r.requireModule); err != nil {
		return fmt.Errorf("install require: %w", err)
	}

	vm.SetPromiseRejectionTracker(r.trackRejection)

	return r.installBootstrap(vm)
}

// installConsole publishes a console global bound to the runtime's printer.
func (r *Runtime) installConsole(vm *goja.Runtime) error {
	module := vm.NewObject()
	_ = module.Set("exports", vm.NewObject())
	console.RequireWithPrinter(r.printer)(vm, module)
	if err := vm.Set("console", module.Get("exports")); err != nil {
		return fmt.Errorf("install console: %w", err)
	}
	return nil
}

// Compile loads source as the body of the synthetic main module, evaluates
// it and drains every queued job and timer. On success the module replaces
// the previously loaded one; on failure the previous module stays loaded.
func (r *Runtime) Compile(ctx context.Context, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	specifier := r.cfg.Specifier()
	prg, err := compileModule(source, r.cfg.ModulePath, r.cfg.Language, r.loader)
	if err != nil {
		ce := &CompileError{Kind: KindParse, Specifier: specifier, Message: err.Error(), Cause: err}
		var ie *importError
		if errors.As(err, &ie) {
			ce.Kind = KindImport
		}
		return ce
	}

	var (
		module  *goja.Object
		pending *goja.Promise
		evalErr error
	)
	r.begin(ctx)
	r.loop.Run(func(vm *goja.Runtime) {
		module, pending, evalErr = r.evaluate(vm, prg, specifier)
	})
	unhandled := r.end()

	if evalErr != nil {
		return evalErr
	}
	if pending != nil {
		switch pending.State() {
		case goja.PromiseStateRejected:
			ce := &CompileError{Kind: KindEvaluation, Specifier: specifier, Cause: goErrorOf(pending.Result())}
			ce.Message, ce.Stack = describe(pending.Result())
			var ie *importError
			if errors.As(ce.Cause, &ie) {
				ce.Kind = KindImport
			}
			return ce
		case goja.PromiseStatePending:
			return &CompileError{Kind: KindEvaluation, Specifier: specifier, Message: "top-level await never settled"}
		}
		unhandled = lo.Without(unhandled, pending)
	}
	if len(unhandled) > 0 {
		msg, stack := describe(unhandled[0].Result())
		return &CompileError{
			Kind:      KindEvaluation,
			Specifier: specifier,
			Message:   "unhandled promise rejection: " + msg,
			Stack:     stack,
		}
	}

	ns, keys := namespaceOf(r.vm, module)
	r.generation++
	mod := &Module{
		id:        ModuleID{Specifier: specifier, Generation: r.generation},
		namespace: ns,
		exports:   keys,
	}
	r.module = mod

	r.logger.Debug("module compiled",
		zap.Stringer("module", mod.id),
		zap.Strings("exports", mod.exports))
	return nil
}

// evaluate runs the module body. For a module using top-level await it
// returns the promise of the body's completion; the namespace is read from
// module once that promise has settled.
func (r *Runtime) evaluate(vm *goja.Runtime, prg *goja.Program, specifier string) (*goja.Object, *goja.Promise, error) {
	wrapper, err := vm.RunProgram(prg)
	if err != nil {
		return nil, nil, r.compileFailure(KindEvaluation, specifier, err)
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, nil, &CompileError{Kind: KindEvaluation, Specifier: specifier, Message: "module wrapper is not callable"}
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	_ = module.Set("exports", exports)
	_ = module.Set("id", specifier)

	res, err := fn(exports, exports, vm.Get("require"), module)
	if err != nil {
		return nil, nil, r.compileFailure(KindEvaluation, specifier, err)
	}
	return module, promiseOf(res), nil
}

// promiseOf returns the promise v holds, or nil.
func promiseOf(v goja.Value) *goja.Promise {
	if obj, ok := v.(*goja.Object); ok && obj.ExportType() == promiseType {
		return obj.Export().(*goja.Promise)
	}
	return nil
}

// compileFailure classifies an error raised while evaluating module code.
func (r *Runtime) compileFailure(kind ErrorKind, specifier string, err error) *CompileError {
	ce := &CompileError{Kind: kind, Specifier: specifier, Message: err.Error()}

	var ie *importError
	if errors.As(err, &ie) {
		ce.Kind = KindImport
		ce.Cause = ie
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		ce.Message, ce.Stack = describeException(exc)
		if ce.Cause == nil {
			ce.Cause = exc.Unwrap()
		}
	}
	return ce
}

// Run invokes the loaded module's main export with t and waits until the
// call, and any promise it returns, has settled.
func (r *Runtime) Run(ctx context.Context, t float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.module == nil {
		return &RunError{Kind: KindNoModuleLoaded, Message: "run called before a successful compile"}
	}

	var (
		runErr  error
		promise *goja.Promise
	)
	r.begin(ctx)
	r.loop.Run(func(vm *goja.Runtime) {
		fn, ok := goja.AssertFunction(r.module.namespace.Get(EntryPoint))
		if !ok {
			runErr = &RunError{
				Kind:    KindMissingEntryPoint,
				Message: fmt.Sprintf("module %s has no callable %q export", r.module.id.Specifier, EntryPoint),
			}
			return
		}
		res, err := fn(goja.Undefined(), vm.ToValue(float64(t)))
		if err != nil {
			runErr = scriptThrew(err)
			return
		}
		promise = promiseOf(res)
	})
	unhandled := r.end()

	for _, p := range unhandled {
		if p == promise {
			continue
		}
		msg, _ := describe(p.Result())
		r.logger.Warn("unhandled promise rejection during frame",
			zap.Stringer("module", r.module.id),
			zap.String("reason", msg))
	}

	if runErr != nil {
		return runErr
	}
	if promise != nil {
		switch promise.State() {
		case goja.PromiseStateRejected:
			msg, stack := describe(promise.Result())
			return &RunError{Kind: KindScriptThrew, Message: msg, Stack: stack, Cause: goErrorOf(promise.Result())}
		case goja.PromiseStatePending:
			return &RunError{Kind: KindUnsettled, Message: "entry point promise never settled"}
		}
	}
	return nil
}

func scriptThrew(err error) *RunError {
	re := &RunError{Kind: KindScriptThrew, Message: err.Error(), Cause: err}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		re.Message, re.Stack = describeException(exc)
		re.Cause = exc.Unwrap()
	}
	return re
}

// goErrorOf returns the Go error carried by a GoError value, if any.
func goErrorOf(v goja.Value) error {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	inner := obj.Get("value")
	if inner == nil {
		return nil
	}
	err, _ := inner.Export().(error)
	return err
}

// Module returns the identifier of the loaded module.
func (r *Runtime) Module() (ModuleID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.module == nil {
		return ModuleID{}, false
	}
	return r.module.id, true
}

// Exports returns the sorted export names of the loaded module.
func (r *Runtime) Exports() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.module == nil {
		return nil
	}
	out := make([]string, len(r.module.exports))
	copy(out, r.module.exports)
	return out
}

// Operations returns the registry installed into the interpreter.
func (r *Runtime) Operations() *hostfuncs.HandlerRegistry {
	return r.ops
}

// Close tears down the interpreter. Further calls return ErrClosed.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.module = nil
	r.vm = nil
	r.resolve = nil
	r.loop = nil
	r.logger.Debug("bridge runtime closed")
	return nil
}

func (r *Runtime) begin(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.callCtx = ctx
	r.unhandled = r.unhandled[:0]
	clear(r.rejections)
}

// end returns the promises still rejected without a handler.
func (r *Runtime) end() []*goja.Promise {
	var out []*goja.Promise
	for _, p := range r.unhandled {
		if _, ok := r.rejections[p]; ok {
			out = append(out, p)
		}
	}
	r.callCtx = nil
	r.unhandled = r.unhandled[:0]
	clear(r.rejections)
	return out
}

func (r *Runtime) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		if _, ok := r.rejections[p]; !ok {
			r.rejections[p] = struct{}{}
			r.unhandled = append(r.unhandled, p)
		}
	case goja.PromiseRejectionHandle:
		delete(r.rejections, p)
	}
}

// requireModule is the script-visible require. It delegates to the
// goja_nodejs resolver and marks load failures as import errors. Values
// thrown by module code, including failed operations, pass through as is.
func (r *Runtime) requireModule(call goja.FunctionCall) goja.Value {
	specifier := call.Argument(0)
	v, err := r.resolve(goja.Undefined(), specifier)
	if err == nil {
		return v
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		cause := exc.Unwrap()
		if cause == nil || !isLoadFailure(cause) {
			panic(exc)
		}
		err = cause
	}
	r.logger.Debug("import failed", zap.String("specifier", specifier.String()), zap.Error(err))
	panic(r.vm.NewGoError(&importError{specifier: specifier.String(), err: err}))
}

// isLoadFailure reports whether a Go error raised through require came from
// resolving or loading a module rather than from code the module ran.
func isLoadFailure(err error) bool {
	var ie *importError
	if errors.As(err, &ie) {
		return false
	}
	_, isOp := hostfuncs.AsOperationError(err)
	return !isOp
}

// loadSource adapts the ModuleLoader to the require registry: it maps
// missing modules to require.ModuleFileDoesNotExistError so resolution
// can try other candidates, and transforms module syntax the same way as the main module.
func (r *Runtime) loadSource(p string) ([]byte, error) {
	src, err := r.loader.Load(p)
	if err != nil {
		if errors.Is(err, ErrModuleNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	if path.Ext(p) == ".json" {
		return src, nil
	}
	code, err := transpile(string(src), p, languageFor(p, r.cfg.Language))
	if err != nil {
		return nil, err
	}
	return []byte(code), nil
}
