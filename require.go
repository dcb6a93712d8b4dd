package quire

import (
	"context"

	"go.quire.dev/quire/resolver"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadOptions adjust a single load. The zero value uses the runtime's
// defaults.
type LoadOptions struct {
	// Resolver replaces the runtime's resolver for this load, including
	// require calls made by the evaluated module.
	Resolver PathResolver
	// BaseDir replaces the runtime's base directory for this load.
	BaseDir string
}

// Require resolves specifier, reads the file, and evaluates its text as
// a module body, returning the exported value. The first failure in the
// chain is returned as-is; every call evaluates afresh.
func (rt *Runtime) Require(ctx context.Context, specifier string) (any, error) {
	return rt.RequireWith(ctx, LoadOptions{}, specifier)
}

// RequireWith is Require with an explicit resolver or base directory.
func (rt *Runtime) RequireWith(ctx context.Context, opts LoadOptions, specifier string) (any, error) {
	res, path, err := rt.resolve(opts, specifier)
	if err != nil {
		return nil, err
	}

	text, err := rt.loader.Text(path)
	if err != nil {
		return nil, err
	}

	inst, err := rt.getShard()
	if err != nil {
		return nil, err
	}

	return inst.evaluate(ctx, res, path, text)
}

// RequireAll loads every specifier concurrently and returns the exported
// values in input order. The call is fail-fast: if any one entry fails,
// the whole call fails with that entry's error and results from entries
// that succeeded are discarded. Use GetModule for fallback semantics.
func (rt *Runtime) RequireAll(ctx context.Context, specifiers []string) ([]any, error) {
	return rt.RequireAllWith(ctx, LoadOptions{}, specifiers)
}

// RequireAllWith is RequireAll with an explicit resolver or base
// directory applied to every entry.
func (rt *Runtime) RequireAllWith(ctx context.Context, opts LoadOptions, specifiers []string) ([]any, error) {
	results := make([]any, len(specifiers))

	g, ctx := errgroup.WithContext(ctx)
	for i, specifier := range specifiers {
		i, specifier := i, specifier
		g.Go(func() error {
			v, err := rt.RequireWith(ctx, opts, specifier)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Resolve exposes path resolution alone: the absolute path Require would
// evaluate, without loading it.
func (rt *Runtime) Resolve(specifier string) (string, error) {
	return rt.ResolveWith(LoadOptions{}, specifier)
}

// ResolveWith is Resolve with an explicit resolver or base directory.
func (rt *Runtime) ResolveWith(opts LoadOptions, specifier string) (string, error) {
	_, path, err := rt.resolve(opts, specifier)
	return path, err
}

// GetModule tries each specifier in order through the full load pipeline
// and returns the first successful exports value. Any failure kind, from
// resolution through evaluation, means "try the next candidate". When
// every candidate fails, or none are given, def is returned. GetModule
// never returns an error.
func (rt *Runtime) GetModule(ctx context.Context, def any, specifiers ...string) any {
	for _, specifier := range specifiers {
		v, err := rt.Require(ctx, specifier)
		if err == nil {
			return v
		}
		rt.logger.Debug("module candidate failed",
			zap.String("specifier", specifier),
			zap.Error(err),
		)
	}
	return def
}

// GetResolver returns a freshly configured resolver instance. It is
// never the runtime-shared default, so callers own it outright.
func GetResolver(opts resolver.Options) *resolver.Resolver {
	return resolver.New(opts)
}

func (rt *Runtime) resolve(opts LoadOptions, specifier string) (PathResolver, string, error) {
	res := opts.Resolver
	if res == nil {
		res = rt.defaultResolver()
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = rt.baseDir
	}

	path, err := res.Resolve(specifier, baseDir)
	if err != nil {
		return nil, "", err
	}
	return res, path, nil
}
