package main

import (
	"fmt"
	"strings"
	"time"
)

// AssetKind identifies one of the per-book asset families.
type AssetKind string

const (
	AssetCover AssetKind = "cover"
	AssetModel AssetKind = "model"
	AssetPage  AssetKind = "page"
)

// Storage key prefixes per asset kind.
const (
	CoversFolder = "assets/covers/"
	ModelsFolder = "assets/models/"
	PagesFolder  = "assets/pages/"
)

// Page textures are probed from 1 up to MaxPageNumber on deletion since
// the book entity does not track how many pages were uploaded.
const (
	MinPageNumber = 1
	MaxPageNumber = 100
)

// Validity window for both upload credentials and signed read urls.
const AssetURLValidity = time.Hour

// assetKindConfig holds the upload rules for one asset kind.
type assetKindConfig struct {
	allowedTypes []string
	maxSizeMB    int64
}

var assetKindConfigs = map[AssetKind]assetKindConfig{
	AssetCover: {
		allowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		maxSizeMB:    10,
	},
	AssetModel: {
		allowedTypes: []string{"model/gltf-binary", "application/octet-stream"},
		maxSizeMB:    100,
	},
	AssetPage: {
		allowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		maxSizeMB:    5,
	},
}

// ParseAssetKind converts its raw form, accepting the legacy plural
// spelling for pages.
func ParseAssetKind(raw string) (AssetKind, error) {
	switch raw {
	case "cover":
		return AssetCover, nil
	case "model":
		return AssetModel, nil
	case "page", "pages":
		return AssetPage, nil
	}
	return "", ErrUnknownAssetKind
}

// AllowedContentTypes returns the upload allow-list for a kind.
func AllowedContentTypes(kind AssetKind) []string {
	return assetKindConfigs[kind].allowedTypes
}

// MaxSizeForAssetKind returns the upload cap in bytes for a kind.
func MaxSizeForAssetKind(kind AssetKind) int64 {
	return assetKindConfigs[kind].maxSizeMB * 1024 * 1024
}

// IsAllowedContentType checks a declared upload content type against
// the kind allow-list.
func IsAllowedContentType(kind AssetKind, contentType string) bool {
	for _, allowed := range assetKindConfigs[kind].allowedTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// MatchesStoredContentType checks the content type reported by the object
// store after upload. Images only need to be in the image family since
// the store may normalize the exact subtype; models must match exactly.
func MatchesStoredContentType(kind AssetKind, contentType string) bool {
	switch kind {
	case AssetCover, AssetPage:
		return strings.HasPrefix(contentType, "image/")
	case AssetModel:
		return contentType == "model/gltf-binary" || contentType == "application/octet-stream"
	}
	return false
}

// CoverKey maps a book to its cover object key. The extension derives from
// the declared content type and falls back to jpg on the read and delete
// paths where no content type is known.
func CoverKey(bookID, contentType string) string {
	ext := "jpg"
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	}
	return fmt.Sprintf("%s%s.%s", CoversFolder, bookID, ext)
}

// CoverKeyForExt maps a book and a recorded cover extension to the cover
// object key. An empty extension falls back to jpg.
func CoverKeyForExt(bookID, ext string) string {
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s%s.%s", CoversFolder, bookID, ext)
}

// ModelKey maps a book to its 3D model object key.
func ModelKey(bookID string) string {
	return fmt.Sprintf("%s%s.glb", ModelsFolder, bookID)
}

// PageKey maps a book and page number to the page texture object key.
func PageKey(bookID string, pageNumber int) string {
	return fmt.Sprintf("%s%s/%d.jpg", PagesFolder, bookID, pageNumber)
}

// UploadGrant is returned to a client allowed to upload directly to the
// object store. Credential carries the store specific url and fields.
type UploadGrant struct {
	Key         string           `json:"key"`
	Kind        AssetKind        `json:"assetKind"`
	PageNumber  int              `json:"pageNumber,omitempty"`
	ContentType string           `json:"contentType"`
	MaxSize     int64            `json:"maxSize"`
	ExpiresIn   int              `json:"expiresIn"`
	Credential  UploadCredential `json:"credential"`
}

// AssetConfirmation reports the store metadata recorded when an upload
// was confirmed and the presence flag flipped.
type AssetConfirmation struct {
	BookID       string    `json:"bookId"`
	Kind         AssetKind `json:"assetKind"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
}

// AssetReadURL is the read-path payload for one asset.
type AssetReadURL struct {
	URL        string    `json:"url"`
	Kind       AssetKind `json:"assetKind"`
	PageNumber int       `json:"pageNumber,omitempty"`
	Signed     bool      `json:"signed"`
	ExpiresIn  int       `json:"expiresIn,omitempty"`
}

// AssetDeletionReport aggregates the best-effort cleanup outcome. Cleared
// lists the kinds whose presence flag was reset, Deleted the object keys
// removed and Failures the per-object errors that did not stop the run.
type AssetDeletionReport struct {
	BookID   string      `json:"bookId"`
	Cleared  []AssetKind `json:"cleared"`
	Deleted  []string    `json:"deleted"`
	Failures []string    `json:"failures,omitempty"`
}
