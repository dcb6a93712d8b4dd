// Package quire loads CommonJS modules from disk into embedded goja
// runtimes on demand: resolve a specifier, read the source, evaluate it
// as a module body on a node-style event loop, and hand the exported
// value back to Go. Every load evaluates afresh; nothing is cached.
package quire

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.quire.dev/quire/resolver"
	"go.quire.dev/quire/source"

	"github.com/dop251/goja_nodejs/require"
	"github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/cpu"
)

// PathResolver maps a module specifier plus a base directory to an
// absolute file path. *resolver.Resolver is the stock implementation;
// callers may substitute their own strategy per load.
type PathResolver interface {
	Resolve(specifier, baseDir string) (string, error)
}

// Config configures a Runtime.
type Config struct {
	// Logger is required.
	Logger *zap.Logger
	// Shards > 1 round-robins loads across multiple JavaScript runtimes.
	// Defaults to 1. Recommend not exceeding 4.
	Shards int
	// BaseDir is the directory specifiers resolve against when a load
	// does not name one. Defaults to the process working directory.
	BaseDir string
	// Resolver replaces the default path resolver.
	Resolver PathResolver
}

type Runtime struct {
	logger    *zap.Logger
	loader    *source.Loader
	baseDir   string
	native    *xsync.MapOf[string, require.ModuleLoader]
	resOnce   sync.Once
	res       PathResolver
	shards    []atomic.Pointer[instance]
	_         cpu.CacheLinePad
	nextShard uint32
	_         cpu.CacheLinePad
	numShards int
}

// NewRuntime returns a new quire runtime. Shard event loops are started
// lazily, on the first load that reaches each shard.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.Shards < 0 {
		return nil, fmt.Errorf("shards cannot be negative")
	}
	shards := cfg.Shards
	if shards == 0 {
		shards = 1
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error determining working directory: %w", err)
		}
		baseDir = wd
	}

	rt := &Runtime{
		logger:    cfg.Logger,
		loader:    source.NewLoader(),
		baseDir:   baseDir,
		native:    xsync.NewMapOf[require.ModuleLoader](),
		res:       cfg.Resolver,
		shards:    make([]atomic.Pointer[instance], shards),
		numShards: shards,
	}

	cfg.Logger.Info("Quire runtime configured",
		zap.Int("shards", shards),
		zap.String("baseDir", baseDir),
	)

	return rt, nil
}

// RegisterNative exposes a host module to evaluated code under name, in
// addition to whatever exists on disk. Registration applies to shards
// built after the call, so register everything before the first load.
func (rt *Runtime) RegisterNative(name string, loader require.ModuleLoader) {
	rt.native.Store(name, loader)
}

// defaultResolver lazily builds the shared default resolver. It is
// write-once and read-only afterwards, so concurrent loads share it
// without locking.
func (rt *Runtime) defaultResolver() PathResolver {
	rt.resOnce.Do(func() {
		if rt.res == nil {
			rt.res = resolver.New(resolver.Options{})
		}
	})
	return rt.res
}

// getShard picks the next shard round-robin, building its instance on
// first use. A lost construction race shuts down the spare loop.
func (rt *Runtime) getShard() (*instance, error) {
	n := atomic.AddUint32(&rt.nextShard, 1)
	slot := &rt.shards[int(n)%rt.numShards]

	if inst := slot.Load(); inst != nil {
		return inst, nil
	}

	inst, err := newInstance(rt.logger, rt.loader, rt.native)
	if err != nil {
		return nil, err
	}

	if !slot.CompareAndSwap(nil, inst) {
		inst.stop(false)
		return slot.Load(), nil
	}

	return inst, nil
}

// Stop shuts down every started shard. Specifying interrupt will
// interrupt currently running VMs instead of graceful exit. This is
// useful when a loaded module was misbehaving.
func (rt *Runtime) Stop(interrupt bool) {
	for i := range rt.shards {
		old := rt.shards[i].Swap(nil)
		if old != nil {
			old.stop(interrupt)
		}
	}
}
