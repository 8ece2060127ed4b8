package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "uploads")

	ls, err := storage.NewLocalStorage(basePath)
	require.NoError(t, err)
	assert.NotNil(t, ls)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_UploadDownloadDelete(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := []byte("cover image bytes")
	path, size, err := ls.Upload(ctx, "posts/covers", "Cover.PNG", "image/png", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.True(t, strings.HasPrefix(path, "posts/covers/"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	rc, err := ls.Download(ctx, path)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, got)

	require.NoError(t, ls.Delete(ctx, path))
	_, err = ls.Download(ctx, path)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	// deleting twice is not an error
	assert.NoError(t, ls.Delete(ctx, path))
}

func TestLocalStorage_FolderCannotEscapeBasePath(t *testing.T) {
	base := t.TempDir()
	ls, err := storage.NewLocalStorage(base)
	require.NoError(t, err)

	path, _, err := ls.Upload(context.Background(), "../../etc", "x.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "etc/"))

	_, err = os.Stat(filepath.Join(base, filepath.FromSlash(path)))
	assert.NoError(t, err)
}

func TestNewStorage_Modes(t *testing.T) {
	log := zap.NewNop()

	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, log)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, log)
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, log)
	assert.Error(t, err)
}
