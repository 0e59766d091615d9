package main

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

var _ RowLocker = (*BookLocker)(nil) // ensure BookLocker implements RowLocker.

// RowLocker serializes the compound check-and-mutate borrow operation on a
// single book. Only one row is ever held by a caller so no circular wait is
// possible. The lockless atomic increment used on the return path does not
// go through here.
type RowLocker interface {
	Acquire(ctx context.Context, id string) error
	Release(id string)
}

// BookLocker implements RowLocker with one weighted-1 semaphore per book id.
// Semaphores give context-aware acquisition so a caller stuck behind a slow
// borrow honors its request deadline. Entries are kept for the process
// lifetime; the set is bounded by the catalog size.
type BookLocker struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewBookLocker returns a ready to use BookLocker.
func NewBookLocker() *BookLocker {
	return &BookLocker{sems: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until the book row is exclusively held or the context ends.
func (bl *BookLocker) Acquire(ctx context.Context, id string) error {
	bl.mu.Lock()
	sem, ok := bl.sems[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		bl.sems[id] = sem
	}
	bl.mu.Unlock()
	return sem.Acquire(ctx, 1)
}

// Release frees the book row. It must only be called after a successful Acquire.
func (bl *BookLocker) Release(id string) {
	bl.mu.Lock()
	sem := bl.sems[id]
	bl.mu.Unlock()
	sem.Release(1)
}
