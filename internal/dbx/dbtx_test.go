package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "UPDATE accounts SET disabled = true")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.EqualError(t, err, "conn refused")
}

func noWait() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewConstant(1))
}

func TestSQLTxManager_RetriesSerializationFailure(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewSQLTxManager(db, WithBackoff(noWait))

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := m.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("db error: %w", &pgconn.PgError{Code: pgerrcode.SerializationFailure})
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTxManager_GivesUpAfterMaxRetries(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewSQLTxManager(db, WithBackoff(noWait))

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	deadlock := &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	calls := 0
	err := m.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		calls++
		return deadlock
	})
	require.ErrorIs(t, err, deadlock)
	assert.Equal(t, 3, calls)
}

func TestSQLTxManager_DoesNotRetryOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewSQLTxManager(db, WithBackoff(noWait))

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := m.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		calls++
		return errors.New("not found")
	})
	require.EqualError(t, err, "not found")
	assert.Equal(t, 1, calls)
}

func TestSQLTxManager_DB(t *testing.T) {
	db, _ := newMockDB(t)
	assert.Same(t, db, NewSQLTxManager(db).DB())
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("db error: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsRetryable(unique))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}
