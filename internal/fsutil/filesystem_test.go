package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem(t *testing.T) {
	fsys := OSFileSystem{}
	dir := t.TempDir()
	name := filepath.Join(dir, "nested", "a.txt")

	require.NoError(t, fsys.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, fsys.WriteFile(name, []byte("hello"), 0o644))
	assert.True(t, fsys.Exists(name))

	data, err := fsys.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	w, err := fsys.Create(name)
	require.NoError(t, err)
	_, err = io.WriteString(w, "replaced")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	data, err = os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))

	require.NoError(t, fsys.Remove(name))
	assert.False(t, fsys.Exists(name))
}

func TestMemoryFileSystem(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/out/a.txt", []byte("abc"), 0o644))
	data, err := mfs.ReadFile("/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	w, err := mfs.Create("/out/b.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("created"))
	assert.Empty(t, mustRead(t, mfs, "/out/b.txt"), "contents land on Close")
	require.NoError(t, w.Close())
	assert.Equal(t, "created", string(mustRead(t, mfs, "/out/b.txt")))

	require.NoError(t, mfs.MkdirAll("/x/y/z", 0o755))
	assert.True(t, mfs.Exists("/x/y"))

	require.NoError(t, mfs.Remove("/out/a.txt"))
	assert.False(t, mfs.Exists("/out/a.txt"))
	assert.ErrorIs(t, mfs.Remove("/out/a.txt"), os.ErrNotExist)
	_, err = mfs.ReadFile("/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func mustRead(t *testing.T, fsys FileSystem, name string) []byte {
	t.Helper()
	data, err := fsys.ReadFile(name)
	require.NoError(t, err)
	return data
}

func TestSiblings(t *testing.T) {
	got := Siblings("/data/Grid.shp", []string{".shp", ".dbf"})
	assert.Equal(t, []string{"/data/Grid.shp", "/data/Grid.dbf"}, got)
}

func TestPrepareOutput(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, n := range []string{"/data/Grid.shp", "/data/Grid.shx", "/data/Grid.dbf", "/data/Other.shp"} {
		require.NoError(t, mfs.WriteFile(n, []byte("x"), 0o644))
	}

	err := PrepareOutput(mfs, "/data/Grid.shp", ShapefileSidecars, false)
	assert.ErrorIs(t, err, ErrOutputExists)
	assert.True(t, mfs.Exists("/data/Grid.dbf"), "nothing removed without overwrite")

	require.NoError(t, PrepareOutput(mfs, "/data/Grid.shp", ShapefileSidecars, true))
	names := mfs.Names("/data/")
	sort.Strings(names)
	assert.Equal(t, []string{"/data/Other.shp"}, names)

	require.NoError(t, PrepareOutput(mfs, "/new/dir/grid.geojson", nil, false))
	assert.True(t, mfs.Exists("/new/dir"))
}
