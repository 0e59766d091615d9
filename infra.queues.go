package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	BorrowQueue = "borrowing"
	ReturnQueue = "returning"
)

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a circulation events queue.
type Queuer interface {
	Push(ctx context.Context, qid string, event LoanEvent) error
	Pop(ctx context.Context, qids ...string) (string, LoanEvent, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues a circulation event onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, event LoanEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, eventBytes).Err()
}

// Pop returns the first dequeued circulation event from the list of queue ids.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, LoanEvent, error) {
	var event LoanEvent
	var qid string
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return qid, event, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &event); err != nil {
		return qid, event, err
	}
	qid = infos[0]
	return qid, event, nil
}
