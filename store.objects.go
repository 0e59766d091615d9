package main

import (
	"context"
	"time"
)

// ObjectMetadata is the store-reported state of one object.
type ObjectMetadata struct {
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
}

// UploadCredential authorizes one direct client-to-store upload without the
// bytes ever passing through this service.
type UploadCredential struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ObjectStore is the capability contract every assets backend must satisfy.
// Metadata returns ErrObjectNotFound when the key does not exist. All calls
// may be slow network operations and must never run under the book row lock.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Metadata(ctx context.Context, key string) (ObjectMetadata, error)
	Delete(ctx context.Context, key string) error
	IssueUploadCredential(ctx context.Context, key, contentType string, maxSize int64) (UploadCredential, error)
	IssueReadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
}
