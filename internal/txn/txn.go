// Package txn wraps units of work in a transaction with bounded,
// jitter-delayed retries on conflict-class failures. Every mutation of a
// user aggregate or word-progress row in this codebase runs through it.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/example/vocabtamil/internal/apperr"
)

// Options controls the retry policy for a unit of work
type Options struct {
	// Maximum number of attempts including the first
	MaxAttempts int
	// Bounds for the randomized delay between attempts
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultOptions returns the standard retry policy
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		MinDelay:    100 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

func (o Options) normalized() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.MinDelay <= 0 {
		o.MinDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= o.MinDelay {
		o.MaxDelay = o.MinDelay + 400*time.Millisecond
	}
	return o
}

// WithRetry executes fn inside a transaction. Conflict-class failures
// (serialization errors, deadlocks, unique violations, a busy SQLite
// database) roll back, wait a randomized delay and retry; any other error
// surfaces immediately. Exhausting the attempt budget returns a
// ConflictError wrapping the last failure.
func WithRetry(ctx context.Context, db *sqlx.DB, opts Options, fn func(tx *sqlx.Tx) error) error {
	opts = opts.normalized()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := runOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		if !IsConflict(err) {
			return err
		}
		lastErr = err

		if attempt < opts.MaxAttempts {
			delay := opts.MinDelay + time.Duration(rand.Int63n(int64(opts.MaxDelay-opts.MinDelay)))
			log.Printf("transaction conflict on attempt %d, retrying in %v: %v", attempt, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return apperr.Conflict("transaction retries exhausted", lastErr)
}

func runOnce(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return err
	}
	return nil
}

// IsConflict reports whether err is a concurrent-write conflict worth
// retrying: postgres serialization/deadlock/unique/lock errors, or a busy,
// locked or constraint-violating SQLite database.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"23505", // unique_violation
			"55P03": // lock_not_available
			return true
		}
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrConstraint:
			return true
		}
		return false
	}

	// Driver errors wrapped with %v lose their type; fall back to the
	// well-known message fragments.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
