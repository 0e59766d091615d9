package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocalObjectStore(t *testing.T) ObjectStore {
	t.Helper()
	store, err := NewLocalObjectStore(zap.NewNop(), &LocalStorageConfig{
		MediaRoot: t.TempDir(),
		BaseURL:   "http://localhost:8080/media/",
		UploadURL: "http://localhost:8080/media/upload",
	})
	require.NoError(t, err)
	return store
}

func writeTestObject(t *testing.T, store ObjectStore, key string, data []byte) {
	t.Helper()
	ls := store.(*localObjectStore)
	path := ls.path(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// TestLocalObjectStore exercises the full object store contract against the
// filesystem backend.
func TestLocalObjectStore(t *testing.T) {
	store := newTestLocalObjectStore(t)
	key := CoverKey("b:0", "image/jpeg")

	t.Run("Exists Missing Object", func(t *testing.T) {
		exists, err := store.Exists(context.Background(), key)
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Metadata Missing Object", func(t *testing.T) {
		_, err := store.Metadata(context.Background(), key)
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("Exists And Metadata", func(t *testing.T) {
		writeTestObject(t, store, key, []byte("fake-jpeg-bytes"))

		exists, err := store.Exists(context.Background(), key)
		assert.NoError(t, err)
		assert.True(t, exists)

		metadata, err := store.Metadata(context.Background(), key)
		assert.NoError(t, err)
		assert.Equal(t, int64(len("fake-jpeg-bytes")), metadata.Size)
		assert.Equal(t, "image/jpeg", metadata.ContentType)
		assert.False(t, metadata.LastModified.IsZero())
	})

	t.Run("Page Key Nested Folder", func(t *testing.T) {
		pageKey := PageKey("b:0", 3)
		writeTestObject(t, store, pageKey, []byte("page"))
		exists, err := store.Exists(context.Background(), pageKey)
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Upload Credential", func(t *testing.T) {
		credential, err := store.IssueUploadCredential(context.Background(), key, "image/jpeg", 10*1024*1024)
		assert.NoError(t, err)
		assert.Equal(t, "POST", credential.Method)
		assert.Equal(t, "http://localhost:8080/media/upload", credential.URL)
		assert.Equal(t, key, credential.Fields["key"])
		assert.Equal(t, "image/jpeg", credential.Fields["Content-Type"])
	})

	t.Run("Read And Public URLs", func(t *testing.T) {
		url, err := store.IssueReadURL(context.Background(), key, AssetURLValidity)
		assert.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/media/"+key, url)
		assert.Equal(t, url, store.PublicURL(key))
	})

	t.Run("Delete Object", func(t *testing.T) {
		err := store.Delete(context.Background(), key)
		assert.NoError(t, err)
		exists, err := store.Exists(context.Background(), key)
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Delete Missing Object", func(t *testing.T) {
		err := store.Delete(context.Background(), key)
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})
}
