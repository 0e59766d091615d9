package main

import (
	"context"
	"time"
)

// Loan records one copy of a book lent to a borrower. It transitions exactly
// once from open (ReturnedAt nil) to closed (ReturnedAt set); closing an
// already closed loan is a no-op.
type Loan struct {
	ID         string     `json:"id"`
	BookID     string     `json:"bookId"`
	BorrowerID string     `json:"borrowerId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	DueAt      time.Time  `json:"dueAt"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
}

// Closed reports whether the loan has been returned.
func (l Loan) Closed() bool {
	return l.ReturnedAt != nil
}

// LoanStorage defines possible operations on loan records.
type LoanStorage interface {
	Add(ctx context.Context, loan Loan) error
	GetOne(ctx context.Context, id string) (Loan, error)
	Update(ctx context.Context, loan Loan) (Loan, error)
	Delete(ctx context.Context, id string) error
	ListByBorrower(ctx context.Context, borrowerID string) ([]Loan, error)
}

// Predefined circulation event kinds pushed onto the queues.
const (
	BorrowedEvent = "borrowed"
	ReturnedEvent = "returned"
)

// LoanEvent is the payload travelling on the circulation queues and
// consumed into the offline loans archive.
type LoanEvent struct {
	Kind string    `json:"kind"`
	Loan Loan      `json:"loan"`
	At   time.Time `json:"at"`
}

// LoanArchiver persists circulation events snapshots for audit purpose.
type LoanArchiver interface {
	Archive(ctx context.Context, event LoanEvent) error
	GetOne(ctx context.Context, loanID string) (Loan, error)
	GetAll(ctx context.Context) ([]Loan, error)
}
