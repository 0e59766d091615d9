package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ LoanArchiver = (*boltLoanArchive)(nil) // ensure boltLoanArchive implements LoanArchiver.

type boltLoanArchive struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltLoanArchive provides an instance of bolt-based loans archive.
func NewBoltLoanArchive(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) LoanArchiver {
	return &boltLoanArchive{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based loans archive.
func (ba *boltLoanArchive) Close() error {
	return ba.client.Close()
}

// Archive persists the loan snapshot carried by a circulation event. The
// loan id is the key so a returned event overwrites the borrowed one and
// the archive always holds the latest known state of each loan.
func (ba *boltLoanArchive) Archive(_ context.Context, event LoanEvent) error {
	loanBytes, err := json.Marshal(event.Loan)
	if err != nil {
		return err
	}
	return ba.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ba.config.BucketName)).Put([]byte(event.Loan.ID), loanBytes)
	})
}

// GetOne retrieves an archived loan snapshot based on its ID.
func (ba *boltLoanArchive) GetOne(_ context.Context, loanID string) (Loan, error) {
	var loan Loan
	// initialize a readable transaction.
	tx, err := ba.client.Begin(false)
	if err != nil {
		return loan, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(ba.config.BucketName)).Get([]byte(loanID))
	if result == nil {
		return loan, ErrLoanNotFound
	}
	err = json.Unmarshal(result, &loan)
	return loan, err
}

// GetAll retrieves all archived loan snapshots.
func (ba *boltLoanArchive) GetAll(_ context.Context) ([]Loan, error) {
	tx, err := ba.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Create a cursor on the loans' bucket.
	c := tx.Bucket([]byte(ba.config.BucketName)).Cursor()

	loans := []Loan{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var loan Loan
		if err = json.Unmarshal(v, &loan); err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}
