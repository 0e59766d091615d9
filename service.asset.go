package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type AssetServiceProvider interface {
	RequestUpload(ctx context.Context, bookID string, kind AssetKind, request UploadRequest) (UploadGrant, error)
	ConfirmUpload(ctx context.Context, bookID string, kind AssetKind, objectKey string) (AssetConfirmation, error)
	GetReadURL(ctx context.Context, bookID string, kind AssetKind, pageNumber int, signed bool) (AssetReadURL, error)
	DeleteAssets(ctx context.Context, bookID string) (AssetDeletionReport, error)
}

type AssetService struct {
	logger *zap.Logger
	books  BookStorage
	store  ObjectStore
}

func NewAssetService(logger *zap.Logger, books BookStorage, store ObjectStore) AssetServiceProvider {
	return &AssetService{
		logger: logger,
		books:  books,
		store:  store,
	}
}

// RequestUpload validates the declared upload against the per-kind rules and
// issues a direct-to-store credential. The presence flag stays untouched
// until the upload is confirmed.
func (as *AssetService) RequestUpload(ctx context.Context, bookID string, kind AssetKind, request UploadRequest) (UploadGrant, error) {
	var grant UploadGrant
	if _, err := as.books.GetOne(ctx, bookID); err != nil {
		return grant, err
	}

	if !IsAllowedContentType(kind, request.ContentType) {
		return grant, ErrInvalidContentType
	}

	var key string
	switch kind {
	case AssetCover:
		key = CoverKey(bookID, request.ContentType)
	case AssetModel:
		key = ModelKey(bookID)
	case AssetPage:
		if request.PageNumber < MinPageNumber || request.PageNumber > MaxPageNumber {
			return grant, ErrInvalidPageNumber
		}
		key = PageKey(bookID, request.PageNumber)
	default:
		return grant, ErrUnknownAssetKind
	}

	maxSize := MaxSizeForAssetKind(kind)
	credential, err := as.store.IssueUploadCredential(ctx, key, request.ContentType, maxSize)
	if err != nil {
		return grant, err
	}

	return UploadGrant{
		Key:         key,
		Kind:        kind,
		PageNumber:  request.PageNumber,
		ContentType: request.ContentType,
		MaxSize:     maxSize,
		ExpiresIn:   int(AssetURLValidity.Seconds()),
		Credential:  credential,
	}, nil
}

// ConfirmUpload verifies that the object really landed in the store with an
// acceptable content type, then flips the presence flag. The flag only ever
// turns true through this path.
func (as *AssetService) ConfirmUpload(ctx context.Context, bookID string, kind AssetKind, objectKey string) (AssetConfirmation, error) {
	var confirmation AssetConfirmation
	if _, err := as.books.GetOne(ctx, bookID); err != nil {
		return confirmation, err
	}

	if !keyBelongsTo(kind, bookID, objectKey) {
		return confirmation, fmt.Errorf("object key %s does not belong to book %s %s asset: %w",
			objectKey, bookID, kind, ErrObjectNotFound)
	}

	metadata, err := as.store.Metadata(ctx, objectKey)
	if err != nil {
		return confirmation, err
	}

	if !MatchesStoredContentType(kind, metadata.ContentType) {
		return confirmation, ErrContentTypeMismatch
	}

	if kind == AssetCover {
		// record the extension so reads rebuild the key without probing.
		ext := strings.TrimPrefix(objectKey, CoversFolder+bookID+".")
		if err = as.books.SetCoverExtension(ctx, bookID, ext); err != nil {
			return confirmation, err
		}
	}

	if err = as.books.SetAssetFlag(ctx, bookID, kind, true); err != nil {
		return confirmation, err
	}

	return AssetConfirmation{
		BookID:       bookID,
		Kind:         kind,
		Key:          objectKey,
		Size:         metadata.Size,
		ContentType:  metadata.ContentType,
		LastModified: metadata.LastModified,
	}, nil
}

// GetReadURL issues a read url for a confirmed asset, signed and
// time-limited or public depending on the caller choice. A kind whose
// presence flag is off is reported absent, and the object key is rebuilt
// from the book record alone, so the read path never touches the store
// beyond the url signing itself.
func (as *AssetService) GetReadURL(ctx context.Context, bookID string, kind AssetKind, pageNumber int, signed bool) (AssetReadURL, error) {
	var read AssetReadURL
	book, err := as.books.GetOne(ctx, bookID)
	if err != nil {
		return read, err
	}

	if !book.HasAsset(kind) {
		return read, ErrAssetNotAvailable
	}

	var key string
	switch kind {
	case AssetCover:
		key = CoverKeyForExt(bookID, book.CoverExt)
	case AssetModel:
		key = ModelKey(bookID)
	case AssetPage:
		if pageNumber < MinPageNumber || pageNumber > MaxPageNumber {
			return read, ErrInvalidPageNumber
		}
		key = PageKey(bookID, pageNumber)
	default:
		return read, ErrUnknownAssetKind
	}

	if !signed {
		return AssetReadURL{
			URL:        as.store.PublicURL(key),
			Kind:       kind,
			PageNumber: pageNumber,
		}, nil
	}

	url, err := as.store.IssueReadURL(ctx, key, AssetURLValidity)
	if err != nil {
		return read, err
	}

	return AssetReadURL{
		URL:        url,
		Kind:       kind,
		PageNumber: pageNumber,
		Signed:     true,
		ExpiresIn:  int(AssetURLValidity.Seconds()),
	}, nil
}

// DeleteAssets removes every stored asset of a book best-effort. A failing
// object does not stop the run, it is recorded in the report. The presence
// flags are cleared for every kind the book advertised so it never keeps
// advertising an asset that may be gone, and Cleared only reports those.
func (as *AssetService) DeleteAssets(ctx context.Context, bookID string) (AssetDeletionReport, error) {
	report := AssetDeletionReport{BookID: bookID, Cleared: []AssetKind{}, Deleted: []string{}}
	book, err := as.books.GetOne(ctx, bookID)
	if err != nil {
		return report, err
	}

	coverKeys := []string{}
	for _, contentType := range AllowedContentTypes(AssetCover) {
		coverKeys = append(coverKeys, CoverKey(bookID, contentType))
	}
	as.deleteObjects(ctx, coverKeys, &report)

	as.deleteObjects(ctx, []string{ModelKey(bookID)}, &report)

	pageKeys := []string{}
	for page := MinPageNumber; page <= MaxPageNumber; page++ {
		pageKeys = append(pageKeys, PageKey(bookID, page))
	}
	as.deleteObjects(ctx, pageKeys, &report)

	for _, kind := range []AssetKind{AssetCover, AssetModel, AssetPage} {
		if !book.HasAsset(kind) {
			continue
		}
		if err := as.books.SetAssetFlag(ctx, bookID, kind, false); err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("flag %s: %v", kind, err))
			continue
		}
		report.Cleared = append(report.Cleared, kind)
	}
	return report, nil
}

// deleteObjects removes the keys that exist and records any failure into
// the report. A missing key is neither a deletion nor a failure.
func (as *AssetService) deleteObjects(ctx context.Context, keys []string, report *AssetDeletionReport) {
	for _, key := range keys {
		exists, err := as.store.Exists(ctx, key)
		if err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		if !exists {
			continue
		}
		if err = as.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		report.Deleted = append(report.Deleted, key)
	}
}

// keyBelongsTo guards the confirmation path against flipping a presence
// flag from a foreign object key.
func keyBelongsTo(kind AssetKind, bookID, objectKey string) bool {
	switch kind {
	case AssetCover:
		return strings.HasPrefix(objectKey, CoversFolder+bookID+".")
	case AssetModel:
		return objectKey == ModelKey(bookID)
	case AssetPage:
		return strings.HasPrefix(objectKey, PagesFolder+bookID+"/")
	}
	return false
}
