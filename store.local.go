package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var _ ObjectStore = (*localObjectStore)(nil) // ensure localObjectStore implements ObjectStore.

// localObjectStore satisfies the same contract as the S3 backend on top of
// a plain directory tree. Read urls are never really signed here, they are
// served as public media urls.
type localObjectStore struct {
	logger *zap.Logger
	config *LocalStorageConfig
}

// NewLocalObjectStore provides an instance of filesystem-backed object
// store and makes sure the per-kind asset folders exist.
func NewLocalObjectStore(logger *zap.Logger, config *LocalStorageConfig) (ObjectStore, error) {
	for _, folder := range []string{CoversFolder, ModelsFolder, PagesFolder} {
		if err := os.MkdirAll(filepath.Join(config.MediaRoot, folder), 0o755); err != nil {
			return nil, fmt.Errorf("storage: failed to create assets folder %s: %w", folder, err)
		}
	}
	return &localObjectStore{logger: logger, config: config}, nil
}

func (ls *localObjectStore) path(key string) string {
	return filepath.Join(ls.config.MediaRoot, filepath.FromSlash(key))
}

// Exists checks that the key maps to a regular file under the media root.
func (ls *localObjectStore) Exists(_ context.Context, key string) (bool, error) {
	info, err := os.Stat(ls.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// Metadata reports size, mtime and a content type guessed from the extension.
func (ls *localObjectStore) Metadata(_ context.Context, key string) (ObjectMetadata, error) {
	info, err := os.Stat(ls.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMetadata{}, ErrObjectNotFound
		}
		return ObjectMetadata{}, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if len(contentType) == 0 {
		contentType = "application/octet-stream"
	}
	return ObjectMetadata{
		Size:         info.Size(),
		ContentType:  contentType,
		LastModified: info.ModTime(),
	}, nil
}

// Delete removes the underlying file. A missing key is reported as
// ErrObjectNotFound so best-effort cleanup can record it.
func (ls *localObjectStore) Delete(_ context.Context, key string) error {
	err := os.Remove(ls.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// IssueUploadCredential points the client at the local upload endpoint.
// The handler behind that endpoint stores the bytes under the given key.
func (ls *localObjectStore) IssueUploadCredential(_ context.Context, key, contentType string, _ int64) (UploadCredential, error) {
	return UploadCredential{
		URL:    ls.config.UploadURL,
		Method: "POST",
		Fields: map[string]string{
			"key":          key,
			"Content-Type": contentType,
		},
	}, nil
}

// IssueReadURL has no signing on the local backend and degrades to the
// public media url.
func (ls *localObjectStore) IssueReadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return ls.PublicURL(key), nil
}

// PublicURL builds the media url of a key.
func (ls *localObjectStore) PublicURL(key string) string {
	return strings.TrimSuffix(ls.config.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/")
}
