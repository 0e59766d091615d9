package main

import (
	"context"
	"net"
	"reflect"
	"sync"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startRedisDockerContainer(t *testing.T) (string, func()) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Failed to start Dockertest: %+v", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		t.Fatalf("Could not connect to Docker: %+v", err)
	}

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Fatalf("Failed to start redis: %+v", err)
	}

	// build address the container is listening on
	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))

	// ensure to wait for the container to be ready
	err = pool.Retry(func() error {
		var e error
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()

		e = client.Ping(context.Background()).Err()
		return e
	})

	if err != nil {
		t.Fatalf("Failed to ping Redis: %+v", err)
	}

	destroyFunc := func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	}

	return addr, destroyFunc
}

func TestRedisBookStorage(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()
	rs := NewRedisBookStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr}))
	testBook0ID, testBook1ID := "b:0", "b:1"
	testBook := Book{
		ID:              testBook0ID,
		Title:           "Redis test book title",
		Description:     "Redis test book desc",
		Author:          "Jerome Amon",
		Genres:          []string{"test"},
		TotalCopies:     3,
		AvailableCopies: 3,
		CreatedAt:       "2023-07-01 20:19:10.7604632 +0000 UTC",
		UpdatedAt:       "2023-07-01 20:19:10.7604632 +0000 UTC",
	}

	t.Run("Add Book", func(t *testing.T) {
		// ensures we can insert new book record.
		err := rs.Add(context.Background(), testBook0ID, testBook)
		assert.NoError(t, err)
	})

	t.Run("Get Existent Book", func(t *testing.T) {
		// ensures we can fetch specific book.
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		if !reflect.DeepEqual(testBook, book) {
			t.Errorf("Got %v but Expected %v.", book, testBook)
		}
	})

	t.Run("Get NonExistent Book", func(t *testing.T) {
		// ensures fetching non-existent book fails.
		book, err := rs.GetOne(context.Background(), testBook1ID)
		assert.Equal(t, ErrBookNotFound, err)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Increment Available Copies", func(t *testing.T) {
		// ensures the counter moves by the given delta and returns the new value.
		count, err := rs.IncrementAvailable(context.Background(), testBook0ID, -1)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = rs.IncrementAvailable(context.Background(), testBook0ID, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)

		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), book.AvailableCopies)
	})

	t.Run("Increment NonExistent Book", func(t *testing.T) {
		_, err := rs.IncrementAvailable(context.Background(), testBook1ID, 1)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("Concurrent Increments", func(t *testing.T) {
		// ensures the storage level add is atomic under concurrency.
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := rs.IncrementAvailable(context.Background(), testBook0ID, 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.Equal(t, int64(13), book.AvailableCopies)

		_, err = rs.IncrementAvailable(context.Background(), testBook0ID, -10)
		assert.NoError(t, err)
	})

	t.Run("Set Asset Flag", func(t *testing.T) {
		// ensures a single flag persists without touching the others.
		err := rs.SetAssetFlag(context.Background(), testBook0ID, AssetCover, true)
		assert.NoError(t, err)
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.True(t, book.HasCover)
		assert.False(t, book.HasModel)
		assert.False(t, book.HasPages)

		err = rs.SetAssetFlag(context.Background(), testBook0ID, AssetCover, false)
		assert.NoError(t, err)
		book, err = rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.False(t, book.HasCover)
	})

	t.Run("Set Asset Flag NonExistent Book", func(t *testing.T) {
		err := rs.SetAssetFlag(context.Background(), testBook1ID, AssetCover, true)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("Set Cover Extension", func(t *testing.T) {
		// ensures the recorded extension persists in its own field.
		err := rs.SetCoverExtension(context.Background(), testBook0ID, "webp")
		assert.NoError(t, err)
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.Equal(t, "webp", book.CoverExt)
	})

	t.Run("Set Cover Extension NonExistent Book", func(t *testing.T) {
		err := rs.SetCoverExtension(context.Background(), testBook1ID, "png")
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("Update Preserves Counter And Flags", func(t *testing.T) {
		// ensures the descriptive update path does not clobber the
		// counter, the flags nor the cover extension owned by the
		// dedicated paths.
		_, err := rs.IncrementAvailable(context.Background(), testBook0ID, -1)
		require.NoError(t, err)
		require.NoError(t, rs.SetAssetFlag(context.Background(), testBook0ID, AssetModel, true))

		updated := testBook
		updated.Title = "Updated title"
		_, err = rs.Update(context.Background(), testBook0ID, updated)
		assert.NoError(t, err)

		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.NoError(t, err)
		assert.Equal(t, "Updated title", book.Title)
		assert.Equal(t, int64(2), book.AvailableCopies)
		assert.True(t, book.HasModel)
		assert.Equal(t, "webp", book.CoverExt)
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		// ensures deleting existent book succeed.
		err := rs.Delete(context.Background(), testBook0ID)
		assert.NoError(t, err)
		book, err := rs.GetOne(context.Background(), testBook0ID)
		assert.Equal(t, ErrBookNotFound, err)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		// ensures deleting non existent book returns an error.
		err := rs.Delete(context.Background(), testBook1ID)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("Get All Books", func(t *testing.T) {
		// ensures we get exact number of stored books.
		err := rs.Add(context.Background(), testBook0ID, testBook)
		assert.NoError(t, err)
		err = rs.Add(context.Background(), testBook1ID, testBook)
		assert.NoError(t, err)
		books, err := rs.GetAll(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 2, len(books))
	})
}

func TestRedisLoanStorage(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()
	ls := NewRedisLoanStorage(zap.NewNop(), redis.NewClient(&redis.Options{Addr: addr}))
	clock := NewMockClocker()
	testLoan := Loan{
		ID:         "l:0",
		BookID:     "b:0",
		BorrowerID: "u:0",
		BorrowedAt: clock.Now(),
		DueAt:      clock.Now().AddDate(0, 0, 14),
	}

	t.Run("Add Loan", func(t *testing.T) {
		err := ls.Add(context.Background(), testLoan)
		assert.NoError(t, err)
	})

	t.Run("Get Existent Loan", func(t *testing.T) {
		loan, err := ls.GetOne(context.Background(), testLoan.ID)
		assert.NoError(t, err)
		if !reflect.DeepEqual(testLoan, loan) {
			t.Errorf("Got %v but Expected %v.", loan, testLoan)
		}
	})

	t.Run("Get NonExistent Loan", func(t *testing.T) {
		loan, err := ls.GetOne(context.Background(), "l:missing")
		assert.Equal(t, ErrLoanNotFound, err)
		assert.Equal(t, Loan{}, loan)
	})

	t.Run("Update Loan", func(t *testing.T) {
		returnedAt := clock.Now().AddDate(0, 0, 7)
		testLoan.ReturnedAt = &returnedAt
		loan, err := ls.Update(context.Background(), testLoan)
		assert.NoError(t, err)
		assert.True(t, loan.Closed())

		loan, err = ls.GetOne(context.Background(), testLoan.ID)
		assert.NoError(t, err)
		assert.True(t, loan.Closed())
	})

	t.Run("List By Borrower", func(t *testing.T) {
		other := testLoan
		other.ID = "l:1"
		other.ReturnedAt = nil
		err := ls.Add(context.Background(), other)
		assert.NoError(t, err)

		loans, err := ls.ListByBorrower(context.Background(), "u:0")
		assert.NoError(t, err)
		assert.Equal(t, 2, len(loans))

		loans, err = ls.ListByBorrower(context.Background(), "u:unknown")
		assert.NoError(t, err)
		assert.Equal(t, 0, len(loans))
	})

	t.Run("Delete Loan", func(t *testing.T) {
		err := ls.Delete(context.Background(), testLoan.ID)
		assert.NoError(t, err)
		_, err = ls.GetOne(context.Background(), testLoan.ID)
		assert.Equal(t, ErrLoanNotFound, err)

		loans, err := ls.ListByBorrower(context.Background(), "u:0")
		assert.NoError(t, err)
		assert.Equal(t, 1, len(loans))
	})

	t.Run("Delete NonExistent Loan", func(t *testing.T) {
		err := ls.Delete(context.Background(), "l:missing")
		assert.Equal(t, ErrLoanNotFound, err)
	})
}
