package source

import (
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mht"), "a")
	writeFile(t, filepath.Join(dir, "B.MHT"), "b")
	writeFile(t, filepath.Join(dir, "notes.txt"), "n")
	writeFile(t, filepath.Join(dir, "sub", "c.mht"), "c")

	t.Run("flat", func(t *testing.T) {
		files, err := Discover([]string{dir}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "B.MHT"),
			filepath.Join(dir, "a.mht"),
		}, files)
	})

	t.Run("recursive", func(t *testing.T) {
		files, err := Discover([]string{dir}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "B.MHT"),
			filepath.Join(dir, "a.mht"),
			filepath.Join(dir, "sub", "c.mht"),
		}, files)
	})

	t.Run("explicit file kept and duplicates removed", func(t *testing.T) {
		notes := filepath.Join(dir, "notes.txt")
		files, err := Discover([]string{notes, dir, filepath.Join(dir, "a.mht")}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{
			notes,
			filepath.Join(dir, "B.MHT"),
			filepath.Join(dir, "a.mht"),
		}, files)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Discover([]string{t.TempDir()}, true)
		assert.ErrorIs(t, err, ErrNoInputs)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Discover([]string{filepath.Join(dir, "missing.mht")}, false)
		assert.Error(t, err)
	})
}

func TestDiscoverOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mht"), "a")

	file, err := DiscoverOne([]string{dir}, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.mht"), file)

	writeFile(t, filepath.Join(dir, "b.mht"), "b")
	_, err = DiscoverOne([]string{dir}, false)
	assert.ErrorIs(t, err, ErrNotSingle)
	assert.ErrorContains(t, err, "found 2")

	_, err = DiscoverOne([]string{t.TempDir()}, false)
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.mht")
	writeFile(t, path, "<!DOCTYPE html><html></html>")

	doc, err := ReadDocument(path)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("<!DOCTYPE html><html></html>"))
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "steps.mht", doc.Name)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), doc.Hash)
	assert.EqualValues(t, 28, doc.Size)

	_, err = ReadDocument(filepath.Join(t.TempDir(), "missing.mht"))
	assert.Error(t, err)
}
