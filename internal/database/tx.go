package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tablewise/seating/internal/domain"
)

// TxOptions controls transaction retry behavior for serialization
// conflicts.
type TxOptions struct {
	MaxAttempts   int
	RetryInterval time.Duration
	IsoLevel      pgx.TxIsoLevel
}

// DefaultTxOptions retries twice after the initial attempt with a short
// pause, which is enough for row-lock conflicts on capacity documents.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		MaxAttempts:   3,
		RetryInterval: 50 * time.Millisecond,
		IsoLevel:      pgx.ReadCommitted,
	}
}

// serialization_failure and deadlock_detected
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsSerializationError reports whether the error is a PostgreSQL
// serialization or deadlock failure worth retrying.
func IsSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error. Serialization conflicts are retried up to
// MaxAttempts with a fresh transaction each time; other errors return
// immediately.
func (db *PostgresDB) WithTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if opts.MaxAttempts <= 0 {
		opts = DefaultTxOptions()
	}

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.RetryInterval):
			}
		}

		err := db.runInTx(ctx, opts.IsoLevel, fn)
		if err == nil {
			return nil
		}
		if !IsSerializationError(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", domain.ErrTransactionConflict, lastErr)
}

func (db *PostgresDB) runInTx(ctx context.Context, iso pgx.TxIsoLevel, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
