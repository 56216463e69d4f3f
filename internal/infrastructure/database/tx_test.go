package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"

	"ledger/internal/domain"
)

func newMockTxManager(t *testing.T) (*SQLTxManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLTxManager(db, zaptest.NewLogger(t)), mock
}

func TestWithinTxCommits(t *testing.T) {
	m, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
		_, err := q.ExecContext(ctx, "UPDATE accounts SET name = $1", "x")
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	m, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := m.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
		return domain.ErrInsufficientFunds
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithinTxKeepsCauseWhenRollbackFails(t *testing.T) {
	m, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	err := m.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
		return domain.ErrAccountNotFound
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound in chain, got %v", err)
	}
}

func TestWithinTxRollsBackAndRepanics(t *testing.T) {
	m, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("recovered %v, want boom", r)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatal(err)
		}
	}()

	_ = m.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
		panic("boom")
	})
}

func TestWithinTxBeginFailure(t *testing.T) {
	m, mock := newMockTxManager(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := m.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Fatalf("want begin error and fn not called, got err=%v called=%v", err, called)
	}
}
