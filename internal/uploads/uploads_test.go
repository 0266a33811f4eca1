package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWritableDir(t *testing.T) {
	tmp := t.TempDir()
	dir, err := ResolveWritableDir([]string{"", "/proc/definitely-not-writable", tmp})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "uploads"), dir)
	assert.DirExists(t, dir)
}

func TestResolveWritableDirNoCandidates(t *testing.T) {
	_, err := ResolveWritableDir([]string{"", "/proc/definitely-not-writable"})
	assert.Error(t, err)
}

func TestSaveAndRemove(t *testing.T) {
	dir, err := ResolveWritableDir([]string{t.TempDir()})
	require.NoError(t, err)
	store, err := NewStore(dir)
	require.NoError(t, err)

	publicPath, err := store.Save(SubdirItems, "item", ".png", []byte("fake png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(publicPath, "uploads/items/item-"), "got %s", publicPath)
	assert.True(t, strings.HasSuffix(publicPath, ".png"))

	onDisk := filepath.Join(dir, strings.TrimPrefix(publicPath, "uploads/"))
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake png"), data)

	store.Remove(publicPath)
	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err))

	// removing again or removing a non-upload path is a no-op
	store.Remove(publicPath)
	store.Remove("/etc/passwd")
}

func TestNewStoreCreatesSubdirs(t *testing.T) {
	dir, err := ResolveWritableDir([]string{t.TempDir()})
	require.NoError(t, err)
	_, err = NewStore(dir)
	require.NoError(t, err)

	for _, sub := range []string{SubdirItems, SubdirAvatars, SubdirMessages} {
		assert.DirExists(t, filepath.Join(dir, sub))
	}
}
