package dbtx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-orgstructure/internal/shared/apperror"
	"go-orgstructure/internal/shared/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	SQLStateSerializationFailure = "40001"
	SQLStateDeadlockDetected     = "40P01"
	SQLStateLockNotAvailable     = "55P03"
)

type TxFunc func(tx *sql.Tx) error

// Runner menjalankan fn di dalam satu transaksi dan mengulang seluruh transaksi
// saat Postgres melaporkan serialization failure, deadlock, atau lock timeout.
//
//go:generate mockgen -source=dbtx.go -destination=mock/dbtx_mock.go -package=mock
type Runner interface {
	Run(ctx context.Context, operation string, fn TxFunc) error
}

type runner struct {
	db           *sql.DB
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       *zap.Logger
}

type Option func(*runner)

func WithMaxAttempts(n int) Option {
	return func(r *runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.initialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.maxDelay = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger.Named("dbtx")
		}
	}
}

func NewRunner(db *sql.DB, opts ...Option) Runner {
	r := &runner{
		db:           db,
		maxAttempts:  3,
		initialDelay: 50 * time.Millisecond,
		maxDelay:     time.Second,
		logger:       zap.L().Named("dbtx"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *runner) Run(ctx context.Context, operation string, fn TxFunc) error {
	attempt := 0
	op := func() error {
		attempt++
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}

		state, retryable := RetryableState(err)
		if !retryable {
			return backoff.Permanent(err)
		}

		if attempt < r.maxAttempts {
			metrics.RecordTxRetry(state)
			r.logger.Warn("transaction conflict, retrying",
				zap.String("operation", operation),
				zap.String("sqlstate", state),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.maxAttempts),
			)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialDelay
	b.MaxInterval = r.maxDelay
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.maxAttempts-1)), ctx))
	if err == nil {
		return nil
	}

	if state, ok := RetryableState(err); ok {
		metrics.RecordWriteConflict("lock_" + state)
		r.logger.Error("transaction retries exhausted",
			zap.String("operation", operation),
			zap.String("sqlstate", state),
			zap.Int("attempts", attempt),
		)
		return apperror.ErrTransaction.WithCause(err)
	}
	return err
}

func (r *runner) runOnce(ctx context.Context, fn TxFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// RetryableState reports whether err is a lock-contention failure worth retrying.
func RetryableState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch pgErr.Code {
	case SQLStateSerializationFailure, SQLStateDeadlockDetected, SQLStateLockNotAvailable:
		return pgErr.Code, true
	default:
		return "", false
	}
}
