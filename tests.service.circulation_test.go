package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCirculationConfig() *Config {
	return &Config{
		Circulation: CirculationConfig{
			DefaultLoanDays: 14,
			MaxLoanDays:     90,
		},
	}
}

func newTestCirculationService(books BookStorage, loans LoanStorage, queue Queuer) CirculationServiceProvider {
	return NewCirculationService(zap.NewNop(), testCirculationConfig(), NewMockClocker(),
		NewIDsHandler(), NewBookLocker(), books, loans, queue)
}

// TestBorrow ensures borrowing decrements the copies counter and records
// an open loan with the configured default due date.
func TestBorrow(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	queue := &MockQueuer{}
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", Title: "t", Author: "a", TotalCopies: 3, AvailableCopies: 3}))

	cs := newTestCirculationService(books, loans, queue)
	loan, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	require.NoError(t, err)

	assert.Equal(t, "b:1", loan.BookID)
	assert.Equal(t, "u:1", loan.BorrowerID)
	assert.Nil(t, loan.ReturnedAt)
	assert.Equal(t, loan.BorrowedAt.Add(14*24*time.Hour), loan.DueAt)

	book, err := books.GetOne(context.Background(), "b:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), book.AvailableCopies)

	stored, err := loans.GetOne(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.False(t, stored.Closed())

	assert.Len(t, queue.Events, 1)
	assert.Equal(t, BorrowedEvent, queue.Events[0].Kind)
}

// TestBorrowCustomDays ensures the requested loan duration is honored.
func TestBorrowCustomDays(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 1, AvailableCopies: 1}))

	cs := newTestCirculationService(books, loans, &MockQueuer{})
	loan, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1", Days: 30})
	require.NoError(t, err)
	assert.Equal(t, loan.BorrowedAt.Add(30*24*time.Hour), loan.DueAt)
}

// TestBorrowUnavailable ensures a book with no available copy cannot be
// borrowed and nothing changes.
func TestBorrowUnavailable(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 1, AvailableCopies: 0}))

	cs := newTestCirculationService(books, loans, &MockQueuer{})
	_, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	assert.ErrorIs(t, err, ErrBookUnavailable)

	book, err := books.GetOne(context.Background(), "b:1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), book.AvailableCopies)
}

// TestBorrowUnknownBook ensures borrowing an unknown book fails cleanly.
func TestBorrowUnknownBook(t *testing.T) {
	cs := newTestCirculationService(newMemoryBookStorage(), newMemoryLoanStorage(), &MockQueuer{})
	_, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:missing"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// TestBorrowRollbackOnLoanFailure ensures the decremented copy is restored
// when the loan record cannot be created.
func TestBorrowRollbackOnLoanFailure(t *testing.T) {
	books := newMemoryBookStorage()
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 1, AvailableCopies: 1}))
	loans := &MockLoanStorage{
		AddFunc: func(_ context.Context, _ Loan) error {
			return assert.AnError
		},
	}

	cs := newTestCirculationService(books, loans, &MockQueuer{})
	_, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	assert.Error(t, err)

	book, err := books.GetOne(context.Background(), "b:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.AvailableCopies)
}

// TestBorrowLastCopyRace ensures exactly one of two concurrent borrows of
// the last copy succeeds and the counter never goes negative.
func TestBorrowLastCopyRace(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 1, AvailableCopies: 1}))

	cs := newTestCirculationService(books, loans, &MockQueuer{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrBookUnavailable)
		}
	}
	assert.Equal(t, 1, succeeded)

	book, err := books.GetOne(context.Background(), "b:1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), book.AvailableCopies)
}

// TestReturn ensures returning restores the copy and closes the loan.
func TestReturn(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	queue := &MockQueuer{}
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 1, AvailableCopies: 1}))

	cs := newTestCirculationService(books, loans, queue)
	loan, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	require.NoError(t, err)

	returned, err := cs.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, returned.Closed())

	book, err := books.GetOne(context.Background(), "b:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.AvailableCopies)

	assert.Len(t, queue.Events, 2)
	assert.Equal(t, ReturnedEvent, queue.Events[1].Kind)
}

// TestReturnIdempotent ensures returning an already closed loan is a no-op
// and never restores the copy twice.
func TestReturnIdempotent(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 1, AvailableCopies: 1}))

	cs := newTestCirculationService(books, loans, &MockQueuer{})
	loan, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	require.NoError(t, err)

	first, err := cs.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	require.True(t, first.Closed())

	second, err := cs.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, second.Closed())
	assert.Equal(t, first.ReturnedAt, second.ReturnedAt)

	book, err := books.GetOne(context.Background(), "b:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.AvailableCopies)
}

// TestReturnUnknownLoan ensures returning an unknown loan fails cleanly.
func TestReturnUnknownLoan(t *testing.T) {
	cs := newTestCirculationService(newMemoryBookStorage(), newMemoryLoanStorage(), &MockQueuer{})
	_, err := cs.Return(context.Background(), "l:missing")
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

// TestHistory ensures a borrower loans history lists open and closed loans.
func TestHistory(t *testing.T) {
	books := newMemoryBookStorage()
	loans := newMemoryLoanStorage()
	require.NoError(t, books.Add(context.Background(), "b:1", Book{ID: "b:1", TotalCopies: 2, AvailableCopies: 2}))

	cs := newTestCirculationService(books, loans, &MockQueuer{})
	first, err := cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	require.NoError(t, err)
	_, err = cs.Borrow(context.Background(), BorrowRequest{BorrowerID: "u:1", BookID: "b:1"})
	require.NoError(t, err)
	_, err = cs.Return(context.Background(), first.ID)
	require.NoError(t, err)

	history, err := cs.History(context.Background(), "u:1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	closed := 0
	for _, loan := range history {
		if loan.Closed() {
			closed++
		}
	}
	assert.Equal(t, 1, closed)
}
