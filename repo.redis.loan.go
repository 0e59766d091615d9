package main

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	loanKeyPrefix    = "loan:"
	loansByKeyPrefix = "loans:by:"
)

func loanKey(id string) string            { return loanKeyPrefix + id }
func loansByBorrowerKey(id string) string { return loansByKeyPrefix + id }

type redisLoanStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisLoanStorage provides an instance of redis-based loan storage.
func NewRedisLoanStorage(logger *zap.Logger, client *redis.Client) LoanStorage {
	return &redisLoanStorage{
		logger: logger,
		client: client,
	}
}

// Add inserts a new loan record and indexes it under its borrower.
func (rs *redisLoanStorage) Add(ctx context.Context, loan Loan) error {
	dataBytes, err := json.Marshal(loan)
	if err != nil {
		return err
	}
	if err = rs.client.Set(ctx, loanKey(loan.ID), dataBytes, 0).Err(); err != nil {
		return err
	}
	return rs.client.SAdd(ctx, loansByBorrowerKey(loan.BorrowerID), loan.ID).Err()
}

// GetOne retrieves a loan record based on its ID.
func (rs *redisLoanStorage) GetOne(ctx context.Context, id string) (Loan, error) {
	var loan Loan
	dataBytes, err := rs.client.Get(ctx, loanKey(id)).Bytes()
	if err == redis.Nil {
		return loan, ErrLoanNotFound
	}
	if err != nil {
		return loan, err
	}
	err = json.Unmarshal(dataBytes, &loan)
	return loan, err
}

// Update rewrites a loan record in place.
func (rs *redisLoanStorage) Update(ctx context.Context, loan Loan) (Loan, error) {
	dataBytes, err := json.Marshal(loan)
	if err != nil {
		return loan, err
	}
	err = rs.client.Set(ctx, loanKey(loan.ID), dataBytes, 0).Err()
	return loan, err
}

// Delete removes a loan record and unindexes it from its borrower.
func (rs *redisLoanStorage) Delete(ctx context.Context, id string) error {
	loan, err := rs.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if err = rs.client.Del(ctx, loanKey(id)).Err(); err != nil {
		return err
	}
	return rs.client.SRem(ctx, loansByBorrowerKey(loan.BorrowerID), id).Err()
}

// ListByBorrower retrieves all loan records of a given borrower.
func (rs *redisLoanStorage) ListByBorrower(ctx context.Context, borrowerID string) ([]Loan, error) {
	ids, err := rs.client.SMembers(ctx, loansByBorrowerKey(borrowerID)).Result()
	if err != nil {
		return nil, err
	}
	loans := []Loan{}
	for _, id := range ids {
		loan, err := rs.GetOne(ctx, id)
		if err == ErrLoanNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}
