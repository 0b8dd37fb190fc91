// Package repokit provides common types and helpers for repository implementations
package repokit

import (
	"context"
	"time"

	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/store"
)

type (
	// Queryer is the minimal read and write surface for SQL repos
	Queryer = store.RowQuerier
	// TxRunner can execute a function inside a transaction
	TxRunner = store.TxRunner
	// Rows are the result set of a query
	Rows = store.Rows
	// Row is a single row result from a query
	Row = store.Row
	// CommandTag is the result of a command that modifies data
	CommandTag = store.CommandTag
)

// RetryPolicy bounds WithTxRetry
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry retries contention a few times with a short linear backoff
var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: 25 * time.Millisecond}

// WithTx runs fn inside a transaction using the provided TxRunner
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// WithTxRetry reruns the whole transaction when it fails on serialization, deadlock or lock timeout
// fn must be safe to repeat
func WithTxRetry(ctx context.Context, tx TxRunner, p RetryPolicy, fn func(q Queryer) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var err error
	for i := range p.Attempts {
		if err = tx.Tx(ctx, fn); err == nil || !perr.IsRetryable(err) {
			return err
		}
		if i+1 < p.Attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff * time.Duration(i+1)):
			}
		}
	}
	return err
}
