package quire

import (
	"context"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/dop251/goja_nodejs/url"
	"github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"

	"go.quire.dev/quire/source"
)

// Registered under a custom name so the registry's built-in console
// module is left alone.
const consoleModuleName = "quire:console"

// instance is one shard: a single event loop, its vm, and a require
// registry backed by the shared source loader.
type instance struct {
	logger    *zap.Logger
	eventLoop *eventloop.EventLoop
	loader    *source.Loader
	vm        *goja.Runtime
}

func newInstance(logger *zap.Logger, loader *source.Loader, native *xsync.MapOf[string, require.ModuleLoader]) (inst *instance, err error) {
	registry := require.NewRegistryWithLoader(loader.Require)
	registry.RegisterNativeModule(consoleModuleName, console.RequireWithPrinter(newZapPrinter(logger)))
	native.Range(func(name string, ml require.ModuleLoader) bool {
		registry.RegisterNativeModule(name, ml)
		return true
	})

	eventLoop := eventloop.NewEventLoop(
		eventloop.EnableConsole(false),
		eventloop.WithRegistry(registry),
	)
	eventLoop.Start()

	defer func() {
		if err != nil {
			eventLoop.StopNoWait()
		}
	}()

	inst = &instance{
		logger:    logger,
		eventLoop: eventLoop,
		loader:    loader,
	}

	setup := make(chan error, 1)
	eventLoop.RunOnLoop(func(vm *goja.Runtime) {
		url.Enable(vm)
		vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
		vm.Set("console", require.Require(vm, consoleModuleName))

		inst.vm = vm // reference is kept for .Interrupt

		setup <- nil
	})

	err = <-setup
	return
}

func (inst *instance) stop(interrupt bool) {
	if interrupt {
		inst.vm.Interrupt(context.Canceled)
	}
	inst.eventLoop.StopNoWait()
	inst.logger.Debug("shard event loop stopped", zap.Bool("interrupt", interrupt))
}
