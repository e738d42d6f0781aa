// Package memtx provides a journaled pgx.Tx for in-memory storages so they
// share the transaction handling of the Postgres storage.
package memtx

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"
)

// Tx records undo steps and replays them on Rollback.
// Only Commit and Rollback are implemented; the embedded pgx.Tx is nil.
type Tx struct {
	pgx.Tx
	mu     sync.Mutex
	undo   []func()
	closed bool
}

// Begin starts a transaction
func Begin() *Tx {
	return &Tx{}
}

// Record adds an undo step
func (t *Tx) Record(undo func()) {
	t.mu.Lock()
	t.undo = append(t.undo, undo)
	t.mu.Unlock()
}

// Commit drops the journal
func (t *Tx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.undo = nil
	return nil
}

// Rollback replays the journal in reverse order
func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.closed = true
	t.undo = nil
	return nil
}

// Journal records undo on dbTx when it is a memory transaction
func Journal(dbTx pgx.Tx, undo func()) {
	if tx, ok := dbTx.(*Tx); ok && tx != nil {
		tx.Record(undo)
	}
}
