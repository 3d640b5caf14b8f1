package dbx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// TxManager hands out a plain handle for reads and runs units of work
// atomically. Implementations must guarantee that fn observes and mutates
// the data as a single transaction.
type TxManager interface {
	DB() DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

const (
	defaultRetryBase = 10 * time.Millisecond
	defaultRetries   = 3
)

// SQLTxManager runs units of work as database/sql transactions and retries
// them when PostgreSQL reports a serialization failure or a deadlock.
type SQLTxManager struct {
	db         *sql.DB
	opts       *sql.TxOptions
	newBackoff func() retry.Backoff
}

// Option configures an SQLTxManager.
type Option func(*SQLTxManager)

// WithTxOptions sets the options passed to BeginTx.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(m *SQLTxManager) { m.opts = opts }
}

// WithBackoff overrides the retry policy. f is called once per unit of work.
func WithBackoff(f func() retry.Backoff) Option {
	return func(m *SQLTxManager) { m.newBackoff = f }
}

func NewSQLTxManager(db *sql.DB, opts ...Option) *SQLTxManager {
	m := &SQLTxManager{
		db: db,
		newBackoff: func() retry.Backoff {
			b := retry.NewExponential(defaultRetryBase)
			b = retry.WithJitterPercent(20, b)
			return retry.WithMaxRetries(defaultRetries, b)
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *SQLTxManager) DB() DBTX {
	return m.db
}

// WithTx runs fn in a transaction, retrying the whole transaction on
// retryable PostgreSQL errors. Other errors are returned as is.
func (m *SQLTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return retry.Do(ctx, m.newBackoff(), func(ctx context.Context) error {
		err := WithTx(ctx, m.db, m.opts, fn)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// IsRetryable reports whether err is a PostgreSQL error after which the
// transaction can simply be run again.
func IsRetryable(err error) bool {
	code, ok := pgErrorCode(err)
	if !ok {
		return false
	}
	return code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	code, ok := pgErrorCode(err)
	return ok && code == pgerrcode.UniqueViolation
}

func pgErrorCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}
