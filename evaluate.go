package quire

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dop251/goja"

	"go.quire.dev/quire/resolver"
)

// Module text runs inside the usual CommonJS function form, bound to the
// resolved filename, with this === exports.
const (
	moduleWrapperPrefix = "(function (require, exports, module, __filename, __dirname) {\n"
	moduleWrapperSuffix = "\n})"
)

type moduleResult struct {
	exports any
	err     error
}

// evaluate runs path's source text as a module body on the shard's event
// loop and returns the exported value. Evaluation exceptions propagate
// as errors; nothing is caught locally. Context cancellation abandons
// the wait only: work already scheduled on the loop runs to completion.
func (inst *instance) evaluate(ctx context.Context, res PathResolver, path, text string) (any, error) {
	prog, err := compileModule(path, text)
	if err != nil {
		return nil, err
	}

	done := make(chan moduleResult, 1)
	inst.eventLoop.RunOnLoop(func(vm *goja.Runtime) {
		exports, err := inst.runModule(vm, res, prog, path)
		if err != nil {
			done <- moduleResult{err: err}
			return
		}
		done <- moduleResult{exports: exports.Export()}
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.exports, r.err
	}
}

func compileModule(path, text string) (*goja.Program, error) {
	prog, err := goja.Compile(path, moduleWrapperPrefix+text+moduleWrapperSuffix, false)
	if err != nil {
		return nil, fmt.Errorf("error compiling module %s: %w", path, err)
	}
	return prog, nil
}

// runModule must be called on the loop. It instantiates the wrapper with
// a fresh module/exports pair and returns module.exports as a vm value,
// so nested require calls keep object identity.
func (inst *instance) runModule(vm *goja.Runtime, res PathResolver, prog *goja.Program, path string) (goja.Value, error) {
	wrapper, err := vm.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("error evaluating module %s: %w", path, err)
	}

	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, fmt.Errorf("internal error: wrapper for %s is not a function", path)
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	_, err = fn(exports,
		inst.requireFunc(vm, res, dir),
		exports,
		module,
		vm.ToValue(path),
		vm.ToValue(dir),
	)
	if err != nil {
		return nil, fmt.Errorf("error evaluating module %s: %w", path, err)
	}

	return module.Get("exports"), nil
}

// requireFunc builds the require function a module body sees. Relative
// specifiers resolve against the requiring module's own directory and
// evaluate recursively through the same pipeline, fresh each time.
// Specifiers with no match on disk fall through to the registry's
// native modules.
func (inst *instance) requireFunc(vm *goja.Runtime, res PathResolver, dir string) goja.Value {
	return vm.ToValue(func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()

		path, err := res.Resolve(specifier, dir)
		if err != nil {
			if errors.Is(err, resolver.ErrNotFound) {
				if v, ok := inst.requireNative(vm, call.Argument(0)); ok {
					return v
				}
			}
			panic(vm.NewGoError(err))
		}

		text, err := inst.loader.Text(path)
		if err != nil {
			panic(vm.NewGoError(err))
		}

		prog, err := compileModule(path, text)
		if err != nil {
			panic(vm.NewGoError(err))
		}

		exports, err := inst.runModule(vm, res, prog, path)
		if err != nil {
			panic(vm.NewGoError(err))
		}

		return exports
	})
}

// requireNative delegates to the registry-backed global require, which
// serves modules registered through RegisterNative.
func (inst *instance) requireNative(vm *goja.Runtime, name goja.Value) (goja.Value, bool) {
	fn, ok := goja.AssertFunction(vm.Get("require"))
	if !ok {
		return nil, false
	}

	v, err := fn(goja.Undefined(), name)
	if err != nil {
		return nil, false
	}
	return v, true
}
