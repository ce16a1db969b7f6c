package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLocalBlobStore(t *testing.T) {
	t.Parallel()

	t.Run("creates missing directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "exports", "nested")
		store, err := NewLocalBlobStore(dir)
		require.NoError(t, err)
		require.Equal(t, dir, store.BaseDir())
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("requires base dir", func(t *testing.T) {
		t.Parallel()
		_, err := NewLocalBlobStore("  ")
		require.Error(t, err)
	})

	t.Run("rejects a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "plain.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := NewLocalBlobStore(file)
		require.Error(t, err)
	})
}

func TestLocalBlobStore_PutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	uri, err := store.PutObject(ctx, "scan-1/hotel_scan_0301.csv", "text/csv", strings.NewReader("name\nFjord"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "scan-1", "hotel_scan_0301.csv"), uri)
	data, err := os.ReadFile(uri)
	require.NoError(t, err)
	require.Equal(t, "name\nFjord", string(data))

	_, err = store.PutObject(ctx, "", "text/csv", strings.NewReader("x"))
	require.Error(t, err)

	_, err = store.PutObject(ctx, "../outside.csv", "text/csv", strings.NewReader("x"))
	require.ErrorContains(t, err, "escapes")
}

func TestLocalBlobStore_RelativeBaseDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	store, err := NewLocalBlobStore(".")
	require.NoError(t, err)
	uri, err := store.PutObject(context.Background(), "hotel_scan_norway.json", "application/json", strings.NewReader("[]"))
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(uri))
	require.Equal(t, "hotel_scan_norway.json", filepath.Base(uri))
}
