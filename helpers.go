package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
)

// Caller-visible business errors. Handlers translate them with errors.Is;
// anything else coming out of a service is an infrastructure fault.
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrBookUnavailable     = errors.New("no copies available")
	ErrUnknownAssetKind    = errors.New("unknown asset kind")
	ErrInvalidContentType  = errors.New("content type not allowed for this asset kind")
	ErrInvalidPageNumber   = errors.New("page number must be between 1 and 100")
	ErrContentTypeMismatch = errors.New("stored object content type does not match the asset kind")
	ErrObjectNotFound      = errors.New("object not found in storage")
	ErrAssetNotAvailable   = errors.New("asset not available for this book")
)

type (
	ContextKey        string
	missingFieldError string
)

const (
	BookIDPrefix         string     = "b"
	LoanIDPrefix         string     = "l"
	RequestIDPrefix      string     = "r"
	ContextRequestID     ContextKey = "request.id"
	ContextRequestNumber ContextKey = "request.number"
)

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val := ctx.Value(contextKey); val != nil {
		return val.(string)
	}
	return ""
}

// DecodeCreateOrUpdateBookRequestBody is a helper function to read the content of a book creation or update request.
func DecodeCreateOrUpdateBookRequestBody(r *http.Request, book *Book) error {
	if r.Body == nil {
		return errors.New("invalid create book request body")
	}
	return json.NewDecoder(r.Body).Decode(book)
}

// ValidateCreateBookRequestBody is a helper function to check if the content of a book creation request is valid.
func ValidateCreateBookRequestBody(book *Book) error {
	if len(book.Title) == 0 {
		return missingFieldError("title")
	}

	if len(book.Author) == 0 {
		return missingFieldError("author")
	}

	if book.TotalCopies < 0 {
		return errors.New("totalCopies must not be negative")
	}

	return nil
}

// ValidateUpdateBookRequestBody is a helper function to check if the content of a book update request is valid.
func ValidateUpdateBookRequestBody(book *Book) error {
	if err := ValidateCreateBookRequestBody(book); err != nil {
		return err
	}

	if len(book.ID) == 0 {
		return missingFieldError("id")
	}

	return nil
}

// BorrowRequest is the payload to borrow one copy of a book.
type BorrowRequest struct {
	BorrowerID string `json:"borrowerId"`
	BookID     string `json:"bookId"`
	Days       int    `json:"days,omitempty"`
}

// DecodeBorrowRequestBody is a helper function to read the content of a borrow request.
func DecodeBorrowRequestBody(r *http.Request, br *BorrowRequest) error {
	if r.Body == nil {
		return errors.New("invalid borrow request body")
	}
	return json.NewDecoder(r.Body).Decode(br)
}

// ValidateBorrowRequestBody is a helper function to check if the content of a borrow request is valid.
func ValidateBorrowRequestBody(br *BorrowRequest, maxDays int) error {
	if len(br.BorrowerID) == 0 {
		return missingFieldError("borrowerId")
	}

	if len(br.BookID) == 0 {
		return missingFieldError("bookId")
	}

	if br.Days < 0 || br.Days > maxDays {
		return errors.New("days is out of range")
	}

	return nil
}

// UploadRequest is the payload to request direct-upload credentials.
type UploadRequest struct {
	ContentType string `json:"contentType"`
	PageNumber  int    `json:"pageNumber,omitempty"`
}

// DecodeUploadRequestBody is a helper function to read the content of an asset upload request.
func DecodeUploadRequestBody(r *http.Request, ur *UploadRequest) error {
	if r.Body == nil {
		return errors.New("invalid asset upload request body")
	}
	return json.NewDecoder(r.Body).Decode(ur)
}

// ConfirmUploadRequest is the payload to confirm a direct upload landed.
type ConfirmUploadRequest struct {
	AssetKind string `json:"assetKind"`
	ObjectKey string `json:"objectKey"`
}

// DecodeConfirmUploadRequestBody is a helper function to read the content of an upload confirmation request.
func DecodeConfirmUploadRequestBody(r *http.Request, cr *ConfirmUploadRequest) error {
	if r.Body == nil {
		return errors.New("invalid upload confirmation request body")
	}
	return json.NewDecoder(r.Body).Decode(cr)
}

// ValidateConfirmUploadRequestBody is a helper function to check if the content of an upload confirmation request is valid.
func ValidateConfirmUploadRequestBody(cr *ConfirmUploadRequest) error {
	if len(cr.ObjectKey) == 0 {
		return missingFieldError("objectKey")
	}
	return nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
