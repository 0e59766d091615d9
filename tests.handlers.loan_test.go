package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLoanAPIHandler(t *testing.T, books BookStorage, loans LoanStorage) *APIHandler {
	t.Helper()
	cs := NewCirculationService(zap.NewNop(), testCirculationConfig(), NewMockClocker(),
		NewIDsHandler(), NewBookLocker(), books, loans, &MockQueuer{})
	return NewAPIHandler(zap.NewNop(), testCirculationConfig(), &Statistics{started: time.Now()},
		NewMockClocker(), NewIDsHandler(), nil, cs, nil, nil)
}

func decodeAPIResponse(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	resultMap := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(data, &resultMap))
	return resultMap
}

// TestBorrowBookHandler ensures the borrow endpoint lends a copy and maps
// the domain failures onto the expected statuses.
func TestBorrowBookHandler(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	bookID := NewIDsHandler().Generate(BookIDPrefix)
	require.NoError(t, books.Add(context.Background(), bookID, Book{ID: bookID, TotalCopies: 1, AvailableCopies: 1}))
	api := newTestLoanAPIHandler(t, books, loans)

	borrow := func(t *testing.T) *http.Response {
		t.Helper()
		payload, err := json.Marshal(BorrowRequest{BorrowerID: "u:1", BookID: bookID})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/loans", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.BorrowBook(w, req, httprouter.Params{})
		return w.Result()
	}

	t.Run("should pass: copy available", func(t *testing.T) {
		res := borrow(t)
		defer res.Body.Close()
		assert.Equal(t, http.StatusCreated, res.StatusCode)

		resultMap := decodeAPIResponse(t, res.Body)
		v, ok := resultMap["message"]
		assert.True(t, ok)
		assert.Equal(t, "Book borrowed successfully.", v)

		loanMap, ok := resultMap["data"].(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, bookID, loanMap["bookId"])
		assert.Equal(t, "u:1", loanMap["borrowerId"])
		assert.NotEmpty(t, loanMap["dueAt"])
	})

	t.Run("should fail: no copies left", func(t *testing.T) {
		res := borrow(t)
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)

		resultMap := decodeAPIResponse(t, res.Body)
		v, ok := resultMap["message"]
		assert.True(t, ok)
		assert.Equal(t, "no copies available for this book", v)
	})

	t.Run("should fail: unknown book", func(t *testing.T) {
		missingID := NewIDsHandler().Generate(BookIDPrefix)
		payload, err := json.Marshal(BorrowRequest{BorrowerID: "u:1", BookID: missingID})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/loans", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.BorrowBook(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("should fail: missing borrower", func(t *testing.T) {
		payload, err := json.Marshal(BorrowRequest{BookID: bookID})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/loans", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.BorrowBook(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("should fail: days above maximum", func(t *testing.T) {
		payload, err := json.Marshal(BorrowRequest{BorrowerID: "u:1", BookID: bookID, Days: 91})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/loans", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.BorrowBook(w, req, httprouter.Params{})
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

// TestReturnBookHandler ensures the return endpoint closes a loan and stays
// idempotent on repeated calls.
func TestReturnBookHandler(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	bookID := NewIDsHandler().Generate(BookIDPrefix)
	require.NoError(t, books.Add(context.Background(), bookID, Book{ID: bookID, TotalCopies: 1, AvailableCopies: 1}))
	api := newTestLoanAPIHandler(t, books, loans)

	loan, err := api.circulationService.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: bookID})
	require.NoError(t, err)

	doReturn := func(t *testing.T, id string) *http.Response {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/v1/loans/"+id+"/return", nil)
		w := httptest.NewRecorder()
		api.ReturnBook(w, req, httprouter.Params{{Key: "id", Value: id}})
		return w.Result()
	}

	t.Run("should pass: open loan", func(t *testing.T) {
		res := doReturn(t, loan.ID)
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)

		resultMap := decodeAPIResponse(t, res.Body)
		loanMap, ok := resultMap["data"].(map[string]interface{})
		assert.True(t, ok)
		assert.NotEmpty(t, loanMap["returnedAt"])

		book, err := books.GetOne(context.Background(), bookID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), book.AvailableCopies)
	})

	t.Run("should pass: already closed loan", func(t *testing.T) {
		res := doReturn(t, loan.ID)
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)

		book, err := books.GetOne(context.Background(), bookID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), book.AvailableCopies)
	})

	t.Run("should fail: unknown loan", func(t *testing.T) {
		res := doReturn(t, NewIDsHandler().Generate(LoanIDPrefix))
		defer res.Body.Close()
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("should fail: invalid loan id", func(t *testing.T) {
		res := doReturn(t, "not-a-loan-id")
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

// TestGetBorrowerLoansHandler ensures the history endpoint lists loans with
// their total.
func TestGetBorrowerLoansHandler(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	bookID := NewIDsHandler().Generate(BookIDPrefix)
	require.NoError(t, books.Add(context.Background(), bookID, Book{ID: bookID, TotalCopies: 2, AvailableCopies: 2}))
	api := newTestLoanAPIHandler(t, books, loans)

	_, err := api.circulationService.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: bookID})
	require.NoError(t, err)
	_, err = api.circulationService.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: bookID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/borrowers/u:1/loans", nil)
	w := httptest.NewRecorder()
	api.GetBorrowerLoans(w, req, httprouter.Params{{Key: "id", Value: "u:1"}})
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	resultMap := decodeAPIResponse(t, res.Body)
	v, ok := resultMap["total"]
	assert.True(t, ok)
	assert.Equal(t, float64(2), v)
}
