package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/opcua-server-keystore/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "server.oks")

	backend, err := NewFileBackend(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "file://"+path, backend.LocationURI())
	assert.Equal(t, "file-server.oks", backend.Name())
	assert.True(t, backend.Available(ctx))

	_, err = backend.Load(ctx)
	require.ErrorIs(t, err, interfaces.ErrKeyStoreNotFound)

	require.NoError(t, backend.Save(ctx, []byte("first")))
	data, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	require.NoError(t, backend.Save(ctx, []byte("second")))
	data, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// No temporary files are left next to the keystore
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileBackend_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	// Parent "directory" is a regular file
	backend, err := NewFileBackend(filepath.Join(blocker, "server.oks"), nil)
	require.NoError(t, err)

	_, err = backend.Load(context.Background())
	require.ErrorIs(t, err, interfaces.ErrKeyStoreNotFound)

	require.Error(t, backend.Save(context.Background(), []byte("data")))
}

func TestNewFileBackend_EmptyPath(t *testing.T) {
	_, err := NewFileBackend("", nil)
	require.Error(t, err)
}
