package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type CirculationServiceProvider interface {
	Borrow(ctx context.Context, request BorrowRequest) (Loan, error)
	Return(ctx context.Context, loanID string) (Loan, error)
	GetLoan(ctx context.Context, loanID string) (Loan, error)
	History(ctx context.Context, borrowerID string) ([]Loan, error)
}

type CirculationService struct {
	logger *zap.Logger
	config *Config
	clock  Clocker
	ids    UIDHandler
	locker RowLocker
	books  BookStorage
	loans  LoanStorage
	queue  Queuer
}

func NewCirculationService(logger *zap.Logger, config *Config, clock Clocker, ids UIDHandler,
	locker RowLocker, books BookStorage, loans LoanStorage, queue Queuer) CirculationServiceProvider {
	return &CirculationService{
		logger: logger,
		config: config,
		clock:  clock,
		ids:    ids,
		locker: locker,
		books:  books,
		loans:  loans,
		queue:  queue,
	}
}

// Borrow lends one copy of a book. The availability check and the decrement
// run under the book row lock so two concurrent borrows of the last copy
// cannot both succeed. The book state is re-read after the lock is held.
func (cs *CirculationService) Borrow(ctx context.Context, request BorrowRequest) (Loan, error) {
	var loan Loan
	days := request.Days
	if days == 0 {
		days = cs.config.Circulation.DefaultLoanDays
	}

	if err := cs.locker.Acquire(ctx, request.BookID); err != nil {
		return loan, err
	}
	defer cs.locker.Release(request.BookID)

	book, err := cs.books.GetOne(ctx, request.BookID)
	if err != nil {
		return loan, err
	}

	if book.AvailableCopies < 1 {
		return loan, ErrBookUnavailable
	}

	if _, err = cs.books.IncrementAvailable(ctx, request.BookID, -1); err != nil {
		return loan, err
	}

	now := cs.clock.Now()
	loan = Loan{
		ID:         cs.ids.Generate(LoanIDPrefix),
		BookID:     request.BookID,
		BorrowerID: request.BorrowerID,
		BorrowedAt: now,
		DueAt:      now.Add(time.Duration(days) * 24 * time.Hour),
	}

	if err = cs.loans.Add(ctx, loan); err != nil {
		// give the copy back since no loan record exists.
		if _, rerr := cs.books.IncrementAvailable(ctx, request.BookID, 1); rerr != nil {
			cs.logger.Error("circulation: failed to restore copy after loan creation failure",
				zap.String("bookId", request.BookID), zap.Error(rerr))
		}
		return Loan{}, err
	}

	if err = cs.queue.Push(ctx, BorrowQueue, LoanEvent{Kind: BorrowedEvent, Loan: loan, At: now}); err != nil {
		cs.logger.Error("circulation: failed to push event to queue", zap.String("qid", BorrowQueue), zap.Error(err))
	}
	return loan, nil
}

// Return closes a loan and gives the copy back. Closing an already closed
// loan is a no-op. The increment is a single atomic add at the storage
// layer so no row lock is needed here.
func (cs *CirculationService) Return(ctx context.Context, loanID string) (Loan, error) {
	loan, err := cs.loans.GetOne(ctx, loanID)
	if err != nil {
		return loan, err
	}

	if loan.Closed() {
		return loan, nil
	}

	now := cs.clock.Now()
	loan.ReturnedAt = &now
	if loan, err = cs.loans.Update(ctx, loan); err != nil {
		return loan, err
	}

	if _, err = cs.books.IncrementAvailable(ctx, loan.BookID, 1); err != nil {
		// the loan is closed either way. A deleted book simply has no
		// counter to restore anymore.
		cs.logger.Warn("circulation: failed to restore copy on return",
			zap.String("bookId", loan.BookID), zap.String("loanId", loanID), zap.Error(err))
	}

	if err = cs.queue.Push(ctx, ReturnQueue, LoanEvent{Kind: ReturnedEvent, Loan: loan, At: now}); err != nil {
		cs.logger.Error("circulation: failed to push event to queue", zap.String("qid", ReturnQueue), zap.Error(err))
	}
	return loan, nil
}

func (cs *CirculationService) GetLoan(ctx context.Context, loanID string) (Loan, error) {
	loan, err := cs.loans.GetOne(ctx, loanID)
	return loan, err
}

func (cs *CirculationService) History(ctx context.Context, borrowerID string) ([]Loan, error) {
	loans, err := cs.loans.ListByBorrower(ctx, borrowerID)
	return loans, err
}
