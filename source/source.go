// Package source reads module source text off the filesystem.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dop251/goja_nodejs/require"
	pool "github.com/libp2p/go-buffer-pool"
)

// Loader reads files through a pooled scratch buffer so that repeated
// module loads do not churn the allocator. The zero value is usable.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

// Text returns the contents of path as a string. I/O failures are
// surfaced verbatim, wrapped for context; there is no retry.
func (l *Loader) Text(path string) (string, error) {
	buf, err := l.read(path)
	if err != nil {
		return "", err
	}

	text := string(buf)
	pool.Put(buf)
	return text, nil
}

// Require adapts the loader to the goja_nodejs source-loader contract,
// so require() calls made by evaluated code read through the same
// primitive. Missing files map to the sentinel the registry expects.
func (l *Loader) Require(path string) ([]byte, error) {
	buf, err := l.read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	return buf, nil
}

func (l *Loader) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening module file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("error reading module file: %w", err)
	}

	buf := pool.Get(int(info.Size()))
	if _, err := io.ReadFull(f, buf); err != nil {
		pool.Put(buf)
		return nil, fmt.Errorf("error reading module file: %w", err)
	}

	return buf, nil
}
