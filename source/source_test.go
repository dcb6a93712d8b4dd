package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	noderequire "github.com/dop251/goja_nodejs/require"
	"github.com/stretchr/testify/require"
)

func TestLoaderText(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "mod.js")
	as.NoError(os.WriteFile(path, []byte(`module.exports = 1`), 0o644))

	l := NewLoader()

	text, err := l.Text(path)
	as.NoError(err)
	as.Equal("module.exports = 1", text)
}

func TestLoaderTextEmptyFile(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.js")
	as.NoError(os.WriteFile(path, nil, 0o644))

	l := NewLoader()

	text, err := l.Text(path)
	as.NoError(err)
	as.Empty(text)
}

func TestLoaderTextMissing(t *testing.T) {
	as := require.New(t)

	l := NewLoader()

	_, err := l.Text(filepath.Join(t.TempDir(), "missing.js"))
	as.Error(err)
	as.ErrorIs(err, fs.ErrNotExist)
}

func TestLoaderRequireContract(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "mod.js")
	as.NoError(os.WriteFile(path, []byte(`module.exports = 2`), 0o644))

	l := NewLoader()

	buf, err := l.Require(path)
	as.NoError(err)
	as.Equal([]byte(`module.exports = 2`), buf)

	_, err = l.Require(filepath.Join(dir, "missing.js"))
	as.ErrorIs(err, noderequire.ModuleFileDoesNotExistError)
}
