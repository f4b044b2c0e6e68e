package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polifund/fundscan/internal/common"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.PDF"))
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.png"))
	touch(t, filepath.Join(root, ".hidden", "d.png"))
	touch(t, filepath.Join(root, ".skip.png"))

	files, stats, err := ListFiles(root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "b.PDF"),
		filepath.Join(root, "sub", "c.png"),
	}
	assert.Equal(t, want, files)
	assert.Equal(t, uint32(4), stats.Scanned, "hidden entries are not scanned")
	assert.Equal(t, uint32(3), stats.Matched)
}

func TestListFilesDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	names := []string{"z.png", "m.jpg", "a.pdf", "k.jpeg"}
	for _, n := range names {
		touch(t, filepath.Join(root, n))
	}

	first, _, err := ListFiles(root)
	require.NoError(t, err)
	second, _, err := ListFiles(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, filepath.Join(root, "a.pdf"), first[0])
}

func TestListFilesMissingFolder(t *testing.T) {
	_, _, err := ListFiles(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
	assert.Contains(t, err.Error(), "input folder not found")
}

func TestListFilesNotADirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "file.pdf")
	touch(t, path)

	_, _, err := ListFiles(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestListFilesEmptyRoot(t *testing.T) {
	_, _, err := ListFiles("  ")
	require.Error(t, err)
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".pdf"))
	assert.True(t, AllowedExt(".JPG"))
	assert.True(t, AllowedExt("jpeg"))
	assert.True(t, AllowedExt(".png"))
	assert.False(t, AllowedExt(".txt"))
	assert.False(t, AllowedExt(".csv"))
	assert.False(t, AllowedExt(""))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/tmp/.hidden"))
	assert.True(t, IsHidden(".env"))
	assert.False(t, IsHidden("/tmp/visible.pdf"))
}
