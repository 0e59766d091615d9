package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// RequestAssetUpload validates a declared upload and issues a direct-to-store
// upload credential. No book state changes until the upload is confirmed.
func (api *APIHandler) RequestAssetUpload(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		if err := WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	kind, err := ParseAssetKind(ps.ByName("kind"))
	if err != nil {
		api.logger.Error("unknown asset kind", zap.String("asset.kind", ps.ByName("kind")), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "unknown asset kind", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	request := UploadRequest{}
	if err = DecodeUploadRequestBody(r, &request); err != nil {
		api.logger.Error("failed to request asset upload", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "failed to request the asset upload", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	grant, err := api.assetService.RequestUpload(r.Context(), id, kind, request)
	if err == ErrBookNotFound {
		api.logger.Error("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err == ErrInvalidContentType || err == ErrInvalidPageNumber {
		api.logger.Error("invalid asset upload request", zap.String("book.id", id),
			zap.String("asset.kind", string(kind)), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusBadRequest, err.Error(), EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to request asset upload", zap.String("book.id", id),
			zap.String("asset.kind", string(kind)), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to request the asset upload", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	api.logger.Info("success to issue asset upload credential", zap.String("book.id", id),
		zap.String("asset.kind", string(kind)), zap.String("asset.key", grant.Key), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusOK, "Asset upload credential issued successfully.", nil, grant)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// ConfirmAssetUpload verifies the uploaded object and flips the book
// presence flag for the asset kind.
func (api *APIHandler) ConfirmAssetUpload(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		if err := WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	kind, err := ParseAssetKind(ps.ByName("kind"))
	if err != nil {
		api.logger.Error("unknown asset kind", zap.String("asset.kind", ps.ByName("kind")), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "unknown asset kind", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	request := ConfirmUploadRequest{}
	if err = DecodeConfirmUploadRequestBody(r, &request); err == nil {
		err = ValidateConfirmUploadRequestBody(&request)
	}
	if err != nil {
		api.logger.Error("failed to confirm asset upload", zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "failed to confirm the asset upload", err.Error())
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	confirmation, err := api.assetService.ConfirmUpload(r.Context(), id, kind, request.ObjectKey)
	if err == ErrBookNotFound {
		api.logger.Error("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err == ErrContentTypeMismatch {
		api.logger.Error("stored object content type mismatch", zap.String("book.id", id),
			zap.String("asset.key", request.ObjectKey), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, err.Error(), EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		// the object missing from the store means nothing was uploaded.
		api.logger.Error("failed to confirm asset upload", zap.String("book.id", id),
			zap.String("asset.key", request.ObjectKey), zap.String("request.id", requestID), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, ErrObjectNotFound) {
			status = http.StatusNotFound
		}
		errResp := NewAPIError(requestID, status, "failed to confirm the asset upload", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	api.logger.Info("success to confirm asset upload", zap.String("book.id", id),
		zap.String("asset.kind", string(kind)), zap.String("asset.key", request.ObjectKey), zap.String("request.id", requestID))
	resp := GenericResponse(requestID, http.StatusOK, "Asset upload confirmed successfully.", nil, confirmation)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetAssetReadURL serves a time-limited read url for a confirmed asset.
// Page textures take the page number from the `page` query parameter.
func (api *APIHandler) GetAssetReadURL(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		if err := WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	kind, err := ParseAssetKind(ps.ByName("kind"))
	if err != nil {
		api.logger.Error("unknown asset kind", zap.String("asset.kind", ps.ByName("kind")), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "unknown asset kind", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	pageNumber := 0
	if kind == AssetPage {
		pageNumber, _ = strconv.Atoi(r.URL.Query().Get("page"))
	}

	signed := r.URL.Query().Get("signed") != "false"

	read, err := api.assetService.GetReadURL(r.Context(), id, kind, pageNumber, signed)
	if err == ErrBookNotFound {
		api.logger.Error("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err == ErrAssetNotAvailable {
		api.logger.Info("asset not available", zap.String("book.id", id),
			zap.String("asset.kind", string(kind)), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "asset not available for this book", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err == ErrInvalidPageNumber {
		api.logger.Error("invalid page number", zap.String("book.id", id),
			zap.Int("asset.page", pageNumber), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, err.Error(), EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to get asset read url", zap.String("book.id", id),
			zap.String("asset.kind", string(kind)), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to get the asset read url", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	resp := GenericResponse(requestID, http.StatusOK, "Asset read url issued successfully.", nil, read)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// DeleteBookAssets removes every stored asset of a book best-effort and
// reports the outcome. Partial failures come back with a 207 status.
func (api *APIHandler) DeleteBookAssets(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Error("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		if err := WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	report, err := api.assetService.DeleteAssets(r.Context(), id)
	if err == ErrBookNotFound {
		api.logger.Error("book does not exist", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusNotFound, "book does not exist", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	if err != nil {
		api.logger.Error("failed to delete book assets", zap.String("book.id", id), zap.String("request.id", requestID), zap.Error(err))
		errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to delete the book assets", EmptyData)
		if err = WriteErrorResponse(w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}

	status := http.StatusOK
	message := "Book assets deleted successfully."
	if len(report.Failures) != 0 {
		status = http.StatusMultiStatus
		message = "Book assets deletion partially failed."
		api.logger.Warn("book assets deletion partially failed", zap.String("book.id", id),
			zap.Strings("failures", report.Failures), zap.String("request.id", requestID))
	} else {
		api.logger.Info("success to delete book assets", zap.String("book.id", id),
			zap.Int("deleted", len(report.Deleted)), zap.String("request.id", requestID))
	}
	resp := GenericResponse(requestID, status, message, nil, report)
	if err = WriteResponse(w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", requestID), zap.Error(err))
	}
}
