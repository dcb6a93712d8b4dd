// Package resolver maps CommonJS module specifiers to absolute file
// paths, following the node lookup rules: extension probing for files,
// package.json entry fields and index files for directories, and
// node_modules walk-up for bare names.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports that no file matched a specifier under the
// effective base directory and options. Match with errors.Is.
var ErrNotFound = errors.New("module not found")

// NotFoundError carries the specifier and base directory of a failed
// resolution. It unwraps to ErrNotFound.
type NotFoundError struct {
	Specifier string
	BaseDir   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot resolve module %q from %q", e.Specifier, e.BaseDir)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Options parameterize resolution. The zero value selects the defaults,
// so New(Options{}) behaves identically to an all-default resolver.
type Options struct {
	// Dir, when set, overrides the base directory of every Resolve call.
	Dir string
	// Extensions are probed in order when a specifier does not name an
	// existing file as-is. Defaults to .js then .json.
	Extensions []string
	// PackageMain is the package.json field naming a directory's entry
	// file. Defaults to "main".
	PackageMain string
}

// Resolver resolves module specifiers against a base directory. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	opts Options
}

// New returns a freshly configured Resolver.
func New(opts Options) *Resolver {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".js", ".json"}
	}
	if opts.PackageMain == "" {
		opts.PackageMain = "main"
	}
	return &Resolver{opts: opts}
}

// Resolve maps specifier to an absolute file path. Relative and absolute
// specifiers are tried as a file then as a directory; bare specifiers
// walk node_modules directories upward from the base directory. The
// Options.Dir override, when present, takes precedence over baseDir.
// Failures are *NotFoundError; resolution is never retried or cached.
func (r *Resolver) Resolve(specifier, baseDir string) (string, error) {
	if r.opts.Dir != "" {
		baseDir = r.opts.Dir
	}
	if baseDir == "" {
		baseDir = "."
	}

	if specifier == "" {
		return "", &NotFoundError{Specifier: specifier, BaseDir: baseDir}
	}

	switch {
	case filepath.IsAbs(specifier):
		if found, ok := r.loadPath(specifier); ok {
			return absPath(found)
		}
	case isRelative(specifier):
		if found, ok := r.loadPath(filepath.Join(baseDir, specifier)); ok {
			return absPath(found)
		}
	default:
		if found, ok := r.loadNodeModules(specifier, baseDir); ok {
			return absPath(found)
		}
	}

	return "", &NotFoundError{Specifier: specifier, BaseDir: baseDir}
}

// loadNodeModules walks from dir to the filesystem root, probing each
// node_modules directory for the bare specifier.
func (r *Resolver) loadNodeModules(specifier, dir string) (string, bool) {
	for {
		if filepath.Base(dir) != "node_modules" {
			candidate := filepath.Join(dir, "node_modules", specifier)
			if found, ok := r.loadPath(candidate); ok {
				return found, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (r *Resolver) loadPath(path string) (string, bool) {
	if found, ok := r.loadFile(path); ok {
		return found, true
	}
	return r.loadDirectory(path)
}

func (r *Resolver) loadFile(path string) (string, bool) {
	if isFile(path) {
		return path, true
	}
	for _, ext := range r.opts.Extensions {
		if isFile(path + ext) {
			return path + ext, true
		}
	}
	return "", false
}

func (r *Resolver) loadDirectory(dir string) (string, bool) {
	if !isDir(dir) {
		return "", false
	}
	if entry := r.packageEntry(dir); entry != "" {
		if found, ok := r.loadFile(filepath.Join(dir, entry)); ok {
			return found, true
		}
	}
	return r.loadFile(filepath.Join(dir, "index"))
}

// packageEntry reads the configured main field out of a directory's
// package.json. Unreadable or malformed manifests fall through to the
// index lookup rather than failing resolution.
func (r *Resolver) packageEntry(dir string) string {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}

	var manifest map[string]any
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ""
	}

	entry, _ := manifest[r.opts.PackageMain].(string)
	return entry
}

func isRelative(specifier string) bool {
	if specifier == "." || specifier == ".." {
		return true
	}
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("error normalizing resolved path: %w", err)
	}
	return abs, nil
}
