package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveRelativeExact(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	want := writeFile(t, dir, "mod.js", "")

	r := New(Options{})

	got, err := r.Resolve("./mod.js", dir)
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveExtensionProbing(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	wantJS := writeFile(t, dir, "mod.js", "")
	wantJSON := writeFile(t, dir, "data.json", "{}")

	r := New(Options{})

	got, err := r.Resolve("./mod", dir)
	as.NoError(err)
	as.Equal(wantJS, got)

	got, err = r.Resolve("./data", dir)
	as.NoError(err)
	as.Equal(wantJSON, got)
}

func TestResolveAbsoluteSpecifier(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	want := writeFile(t, dir, "abs.js", "")

	r := New(Options{})

	got, err := r.Resolve(want, "/nowhere")
	as.NoError(err)
	as.Equal(want, got)

	got, err = r.Resolve(filepath.Join(dir, "abs"), "/nowhere")
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolvePackageMain(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	writeFile(t, dir, "pkg/package.json", `{"main": "lib/entry.js"}`)
	want := writeFile(t, dir, "pkg/lib/entry.js", "")

	r := New(Options{})

	got, err := r.Resolve("./pkg", dir)
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveAlternatePackageMainField(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	writeFile(t, dir, "pkg/package.json", `{"main": "missing.js", "browser": "web.js"}`)
	want := writeFile(t, dir, "pkg/web.js", "")
	writeFile(t, dir, "pkg/index.js", "")

	r := New(Options{PackageMain: "browser"})

	got, err := r.Resolve("./pkg", dir)
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveIndexFallback(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	want := writeFile(t, dir, "pkg/index.js", "")

	r := New(Options{})

	// no package.json at all
	got, err := r.Resolve("./pkg", dir)
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveMalformedPackageJSON(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	writeFile(t, dir, "pkg/package.json", `{not json`)
	want := writeFile(t, dir, "pkg/index.js", "")

	r := New(Options{})

	got, err := r.Resolve("./pkg", dir)
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveNodeModulesWalkUp(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	want := writeFile(t, dir, "node_modules/dep/index.js", "")
	nested := filepath.Join(dir, "app", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	r := New(Options{})

	got, err := r.Resolve("dep", nested)
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveNotFound(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	r := New(Options{})

	_, err := r.Resolve("./missing", dir)
	as.Error(err)
	as.ErrorIs(err, ErrNotFound)

	var notFound *NotFoundError
	as.ErrorAs(err, &notFound)
	as.Equal("./missing", notFound.Specifier)
	as.Equal(dir, notFound.BaseDir)

	_, err = r.Resolve("", dir)
	as.ErrorIs(err, ErrNotFound)

	_, err = r.Resolve("no-such-package", dir)
	as.ErrorIs(err, ErrNotFound)
}

func TestResolveDirOverride(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	want := writeFile(t, dir, "pinned.js", "")

	r := New(Options{Dir: dir})

	// baseDir loses to the configured Dir
	got, err := r.Resolve("./pinned.js", t.TempDir())
	as.NoError(err)
	as.Equal(want, got)
}

func TestResolveCustomExtensions(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	want := writeFile(t, dir, "mod.mjs", "")
	writeFile(t, dir, "mod.js", "")

	r := New(Options{Extensions: []string{".mjs"}})

	got, err := r.Resolve("./mod", dir)
	as.NoError(err)
	as.Equal(want, got)
}

func TestZeroOptionsMatchesDefaults(t *testing.T) {
	as := require.New(t)

	dir := t.TempDir()
	writeFile(t, dir, "mod.js", "")

	zero := New(Options{})
	explicit := New(Options{Extensions: []string{".js", ".json"}, PackageMain: "main"})

	gotZero, err := zero.Resolve("./mod", dir)
	as.NoError(err)
	gotExplicit, err := explicit.Resolve("./mod", dir)
	as.NoError(err)
	as.Equal(gotExplicit, gotZero)
}
