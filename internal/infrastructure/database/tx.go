package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ledger/internal/domain"
)

type TxFunc func(ctx context.Context, q domain.Querier) error

// TxManager scopes a unit of work to one store transaction: commit when fn
// returns nil, roll back on error or panic.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	// Querier runs statements outside of any transaction.
	Querier() domain.Querier
}

type SQLTxManager struct {
	db     *sql.DB
	opts   *sql.TxOptions
	logger *zap.Logger
}

func NewSQLTxManager(db *sql.DB, logger *zap.Logger) *SQLTxManager {
	return &SQLTxManager{
		db:     db,
		opts:   &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		logger: logger,
	}
}

func (m *SQLTxManager) Querier() domain.Querier {
	return m.db
}

func (m *SQLTxManager) WithinTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := m.db.BeginTx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("Panic inside transaction, rolling back", zap.Any("panic", p))
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			m.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
