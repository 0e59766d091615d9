package main

import (
	"context"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc                func(ctx context.Context, id string, book Book) error
	GetOneFunc             func(ctx context.Context, id string) (Book, error)
	DeleteFunc             func(ctx context.Context, id string) error
	UpdateFunc             func(ctx context.Context, id string, book Book) (Book, error)
	GetAllFunc             func(ctx context.Context) ([]Book, error)
	IncrementAvailableFunc func(ctx context.Context, id string, delta int64) (int64, error)
	SetAssetFlagFunc       func(ctx context.Context, id string, kind AssetKind, present bool) error
	SetCoverExtensionFunc  func(ctx context.Context, id, ext string) error
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, id string, book Book) error {
	return m.AddFunc(ctx, id, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, id string, book Book) (Book, error) {
	return m.UpdateFunc(ctx, id, book)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// IncrementAvailable mocks the atomic copies counter add by the repository.
func (m *MockBookStorage) IncrementAvailable(ctx context.Context, id string, delta int64) (int64, error) {
	return m.IncrementAvailableFunc(ctx, id, delta)
}

// SetAssetFlag mocks the single presence flag persist by the repository.
func (m *MockBookStorage) SetAssetFlag(ctx context.Context, id string, kind AssetKind, present bool) error {
	return m.SetAssetFlagFunc(ctx, id, kind, present)
}

// SetCoverExtension mocks the cover extension persist by the repository.
func (m *MockBookStorage) SetCoverExtension(ctx context.Context, id, ext string) error {
	return m.SetCoverExtensionFunc(ctx, id, ext)
}

type MockLoanStorage struct {
	AddFunc            func(ctx context.Context, loan Loan) error
	GetOneFunc         func(ctx context.Context, id string) (Loan, error)
	UpdateFunc         func(ctx context.Context, loan Loan) (Loan, error)
	DeleteFunc         func(ctx context.Context, id string) error
	ListByBorrowerFunc func(ctx context.Context, borrowerID string) ([]Loan, error)
}

func (m *MockLoanStorage) Add(ctx context.Context, loan Loan) error {
	return m.AddFunc(ctx, loan)
}

func (m *MockLoanStorage) GetOne(ctx context.Context, id string) (Loan, error) {
	return m.GetOneFunc(ctx, id)
}

func (m *MockLoanStorage) Update(ctx context.Context, loan Loan) (Loan, error) {
	return m.UpdateFunc(ctx, loan)
}

func (m *MockLoanStorage) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockLoanStorage) ListByBorrower(ctx context.Context, borrowerID string) ([]Loan, error) {
	return m.ListByBorrowerFunc(ctx, borrowerID)
}

type MockObjectStore struct {
	ExistsFunc                func(ctx context.Context, key string) (bool, error)
	MetadataFunc              func(ctx context.Context, key string) (ObjectMetadata, error)
	DeleteFunc                func(ctx context.Context, key string) error
	IssueUploadCredentialFunc func(ctx context.Context, key, contentType string, maxSize int64) (UploadCredential, error)
	IssueReadURLFunc          func(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURLFunc             func(key string) string
}

func (m *MockObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	return m.ExistsFunc(ctx, key)
}

func (m *MockObjectStore) Metadata(ctx context.Context, key string) (ObjectMetadata, error) {
	return m.MetadataFunc(ctx, key)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	return m.DeleteFunc(ctx, key)
}

func (m *MockObjectStore) IssueUploadCredential(ctx context.Context, key, contentType string, maxSize int64) (UploadCredential, error) {
	return m.IssueUploadCredentialFunc(ctx, key, contentType, maxSize)
}

func (m *MockObjectStore) IssueReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.IssueReadURLFunc(ctx, key, ttl)
}

func (m *MockObjectStore) PublicURL(key string) string {
	return m.PublicURLFunc(key)
}

// MockQueuer swallows pushed events and never pops anything.
type MockQueuer struct {
	mu     sync.Mutex
	Events []LoanEvent
}

func (m *MockQueuer) Push(_ context.Context, _ string, event LoanEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()
	return nil
}

func (m *MockQueuer) Pop(ctx context.Context, _ ...string) (string, LoanEvent, error) {
	<-ctx.Done()
	return "", LoanEvent{}, ctx.Err()
}

// MockLoanArchiver implements a fake in-memory loans archive.
type MockLoanArchiver struct {
	mu    sync.Mutex
	Loans map[string]Loan
}

func NewMockLoanArchiver() *MockLoanArchiver {
	return &MockLoanArchiver{Loans: make(map[string]Loan)}
}

func (m *MockLoanArchiver) Archive(_ context.Context, event LoanEvent) error {
	m.mu.Lock()
	m.Loans[event.Loan.ID] = event.Loan
	m.mu.Unlock()
	return nil
}

func (m *MockLoanArchiver) GetOne(_ context.Context, loanID string) (Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.Loans[loanID]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	return loan, nil
}

func (m *MockLoanArchiver) GetAll(_ context.Context) ([]Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loans := make([]Loan, 0, len(m.Loans))
	for _, loan := range m.Loans {
		loans = append(loans, loan)
	}
	return loans, nil
}

// memoryBookStorage is a thread-safe in-memory book storage used to verify
// the circulation concurrency behavior without a live redis server.
type memoryBookStorage struct {
	mu    sync.Mutex
	books map[string]Book
}

func newMemoryBookStorage() *memoryBookStorage {
	return &memoryBookStorage{books: make(map[string]Book)}
}

func (ms *memoryBookStorage) Add(_ context.Context, id string, book Book) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.books[id] = book
	return nil
}

func (ms *memoryBookStorage) GetOne(_ context.Context, id string) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	book, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

func (ms *memoryBookStorage) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.books[id]; !ok {
		return ErrBookNotFound
	}
	delete(ms.books, id)
	return nil
}

func (ms *memoryBookStorage) Update(_ context.Context, id string, book Book) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.books[id] = book
	return book, nil
}

func (ms *memoryBookStorage) GetAll(_ context.Context) ([]Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	books := []Book{}
	for _, book := range ms.books {
		books = append(books, book)
	}
	return books, nil
}

func (ms *memoryBookStorage) IncrementAvailable(_ context.Context, id string, delta int64) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	book, ok := ms.books[id]
	if !ok {
		return 0, ErrBookNotFound
	}
	book.AvailableCopies += delta
	ms.books[id] = book
	return book.AvailableCopies, nil
}

func (ms *memoryBookStorage) SetAssetFlag(_ context.Context, id string, kind AssetKind, present bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	book, ok := ms.books[id]
	if !ok {
		return ErrBookNotFound
	}
	switch kind {
	case AssetCover:
		book.HasCover = present
	case AssetModel:
		book.HasModel = present
	case AssetPage:
		book.HasPages = present
	}
	ms.books[id] = book
	return nil
}

func (ms *memoryBookStorage) SetCoverExtension(_ context.Context, id, ext string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	book, ok := ms.books[id]
	if !ok {
		return ErrBookNotFound
	}
	book.CoverExt = ext
	ms.books[id] = book
	return nil
}

// memoryLoanStorage is a thread-safe in-memory loan storage for the same
// concurrency tests.
type memoryLoanStorage struct {
	mu    sync.Mutex
	loans map[string]Loan
}

func newMemoryLoanStorage() *memoryLoanStorage {
	return &memoryLoanStorage{loans: make(map[string]Loan)}
}

func (ms *memoryLoanStorage) Add(_ context.Context, loan Loan) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.loans[loan.ID] = loan
	return nil
}

func (ms *memoryLoanStorage) GetOne(_ context.Context, id string) (Loan, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	loan, ok := ms.loans[id]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	return loan, nil
}

func (ms *memoryLoanStorage) Update(_ context.Context, loan Loan) (Loan, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.loans[loan.ID] = loan
	return loan, nil
}

func (ms *memoryLoanStorage) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.loans[id]; !ok {
		return ErrLoanNotFound
	}
	delete(ms.loans, id)
	return nil
}

func (ms *memoryLoanStorage) ListByBorrower(_ context.Context, borrowerID string) ([]Loan, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	loans := []Loan{}
	for _, loan := range ms.loans {
		if loan.BorrowerID == borrowerID {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
// equals to `2023-07-02 00:00:00 +0000 UTC` in String format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
