package bridge

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
)

// Module wrapper shared with the require loader, so every module body sees
// the same three free variables.
const (
	wrapperPrefix      = "(function(exports, require, module) {"
	asyncWrapperPrefix = "(async function(exports, require, module) {"
	wrapperSuffix      = "\n})"

	// strictBanner opens every transformed body; module code is strict.
	strictBanner = `"use strict";`

	loaderPluginName = "framescript-modules"
)

// exportClause matches the single export statement esbuild emits at the
// end of a bundled ES module.
var exportClause = regexp.MustCompile(`(?m)^export\s*\{([^}]*)\};?[ \t]*$`)

// ModuleID identifies a loaded module. Specifier is the same for every
// compile of a Runtime; Generation increases with each successful compile.
type ModuleID struct {
	Specifier  string
	Generation uint64
}

func (id ModuleID) String() string {
	return fmt.Sprintf("%s#%d", id.Specifier, id.Generation)
}

// Module is a compiled and evaluated script module.
type Module struct {
	id        ModuleID
	namespace *goja.Object
	exports   []string
}

// transformError carries esbuild diagnostics.
type transformError struct {
	messages []api.Message
}

func (e *transformError) Error() string {
	parts := make([]string, 0, len(e.messages))
	for _, m := range e.messages {
		if loc := m.Location; loc != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column+1, m.Text))
		} else {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// transpile rewrites ECMAScript module syntax (or TypeScript) into a
// CommonJS body the interpreter can evaluate inside the module wrapper.
// An inline source map keeps stack positions pointing at the original text.
func transpile(source, sourcefile string, lang Language) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:     lang.loader(),
		Format:     api.FormatCommonJS,
		Target:     api.ES2017,
		Sourcefile: sourcefile,
		Sourcemap:  api.SourceMapInline,
		Banner:     strictBanner,
	})
	if len(result.Errors) > 0 {
		return "", &transformError{messages: result.Errors}
	}
	return string(result.Code), nil
}

// compileModule turns module source into a program that evaluates to the
// wrapper function. Modules using top-level await get an async wrapper,
// whose call returns the promise of the module's evaluation.
func compileModule(source, modulePath string, lang Language, loader ModuleLoader) (*goja.Program, error) {
	prefix := wrapperPrefix
	code, err := transpile(source, modulePath, lang)
	if err != nil && usesTopLevelAwait(err) {
		prefix = asyncWrapperPrefix
		code, err = bundleModule(source, modulePath, lang, loader)
	}
	if err != nil {
		return nil, err
	}
	return goja.Compile(modulePath, prefix+code+wrapperSuffix, true)
}

// usesTopLevelAwait reports whether a transform failed only because
// CommonJS output cannot carry top-level await.
func usesTopLevelAwait(err error) bool {
	var te *transformError
	if !errors.As(err, &te) {
		return false
	}
	for _, m := range te.messages {
		if !strings.HasPrefix(m.Text, "Top-level await") {
			return false
		}
	}
	return len(te.messages) > 0
}

// bundleModule builds source and everything it imports into one ES module
// body, then rewrites its export clause into assignments on exports so the
// body can run inside the async wrapper. Imports are read through loader.
func bundleModule(source, modulePath string, lang Language, loader ModuleLoader) (string, error) {
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   source,
			ResolveDir: path.Dir(modulePath),
			Sourcefile: modulePath,
			Loader:     lang.loader(),
		},
		Bundle:    true,
		Format:    api.FormatESModule,
		Target:    api.ES2017,
		Supported: map[string]bool{"top-level-await": true},
		Sourcemap: api.SourceMapInline,
		LogLevel:  api.LogLevelSilent,
		Plugins:   []api.Plugin{loaderPlugin(loader, lang)},
	})
	if len(result.Errors) > 0 {
		for _, m := range result.Errors {
			var ie *importError
			if err, ok := m.Detail.(error); ok && errors.As(err, &ie) {
				return "", ie
			}
		}
		return "", &transformError{messages: result.Errors}
	}
	if len(result.OutputFiles) != 1 {
		return "", fmt.Errorf("bundle of %s produced %d outputs", modulePath, len(result.OutputFiles))
	}
	return rewriteExports(string(result.OutputFiles[0].Contents)), nil
}

// loaderPlugin resolves every import against the importing module's
// directory and loads it through loader.
func loaderPlugin(loader ModuleLoader, fallback Language) api.Plugin {
	return api.Plugin{
		Name: loaderPluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					p := args.Path
					if !strings.HasPrefix(p, "/") {
						p = path.Join(args.ResolveDir, p)
					}
					return api.OnResolveResult{
						Path:       path.Clean(p),
						Namespace:  loaderPluginName,
						PluginData: args.Path,
					}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: loaderPluginName},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					specifier, _ := args.PluginData.(string)
					src, err := loader.Load(args.Path)
					if err != nil {
						return api.OnLoadResult{}, &importError{specifier: specifier, err: err}
					}
					contents := string(src)
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: path.Dir(args.Path),
						Loader:     moduleLoaderFor(args.Path, fallback),
					}, nil
				})
		},
	}
}

func moduleLoaderFor(p string, fallback Language) api.Loader {
	if path.Ext(p) == ".json" {
		return api.LoaderJSON
	}
	return languageFor(p, fallback).loader()
}

// rewriteExports replaces the trailing export clause of a bundle with
// assignments on exports.
func rewriteExports(code string) string {
	locs := exportClause.FindAllStringSubmatchIndex(code, -1)
	if len(locs) == 0 {
		return code
	}
	loc := locs[len(locs)-1]

	var b strings.Builder
	for _, item := range strings.Split(code[loc[2]:loc[3]], ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		local, exported := item, item
		if i := strings.Index(item, " as "); i >= 0 {
			local, exported = strings.TrimSpace(item[:i]), strings.TrimSpace(item[i+4:])
		}
		fmt.Fprintf(&b, "exports[%q] = %s;\n", strings.Trim(exported, `"`), local)
	}
	return code[:loc[0]] + b.String() + code[loc[1]:]
}

// namespaceOf returns module.exports as an object together with its sorted keys.
func namespaceOf(vm *goja.Runtime, module *goja.Object) (*goja.Object, []string) {
	v := module.Get("exports")
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return vm.NewObject(), nil
	}
	ns := v.ToObject(vm)
	keys := ns.Keys()
	sort.Strings(keys)
	return ns, keys
}

// describe extracts a message and stack from a thrown or rejected value.
func describe(v goja.Value) (message, stack string) {
	if v == nil {
		return "undefined", ""
	}
	defer func() {
		if recover() != nil {
			message = "<unprintable value>"
		}
	}()
	if obj, ok := v.(*goja.Object); ok {
		if s := obj.Get("stack"); s != nil && !goja.IsUndefined(s) && !goja.IsNull(s) {
			stack = s.String()
		}
	}
	return v.String(), stack
}

// describeException is describe for a *goja.Exception, falling back to
// the interpreter's own stack rendering.
func describeException(exc *goja.Exception) (message, stack string) {
	message, stack = describe(exc.Value())
	if stack == "" {
		stack = exc.String()
	}
	return message, stack
}
