package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/domain"
	"ledger/internal/infrastructure/database"
	"ledger/internal/repository/transactions_repo"
)

const transactionColumns = "id, account_id, amount, transaction_type, `timestamp`"

type TransactionRepository struct{}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

func (r *TransactionRepository) CreateTx(ctx context.Context, querier domain.Querier, transaction *domain.Transaction) error {
	query := "INSERT INTO transactions (account_id, amount, transaction_type, `timestamp`) VALUES (?, ?, ?, ?)"
	res, err := querier.ExecContext(ctx, query,
		transaction.AccountID,
		transaction.Amount,
		string(transaction.Type),
		transaction.Timestamp,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return domain.ErrAccountNotFound
		}
		if database.IsCheckViolation(err) || database.IsNumericOutOfRange(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		}
		return fmt.Errorf("failed to create transaction for account %d: %w", transaction.AccountID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read id of transaction for account %d: %w", transaction.AccountID, err)
	}
	transaction.ID = id
	return nil
}

func (r *TransactionRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE id = ?"
	transaction, err := transactions_repo.ScanTransaction(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by id %d: %w", id, err)
	}
	return transaction, nil
}

func (r *TransactionRepository) ListTx(ctx context.Context, querier domain.Querier, filter domain.TransactionFilter, page domain.Page) ([]*domain.Transaction, error) {
	page = page.Normalize()
	where, args := transactions_repo.FilterClause(filter, "`timestamp`", func(int) string { return "?" })
	args = append(args, page.Limit, page.Offset)
	query := "SELECT " + transactionColumns + " FROM transactions" + where + " ORDER BY id ASC LIMIT ? OFFSET ?"

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0, page.Limit)
	for rows.Next() {
		transaction, err := transactions_repo.ScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

var _ transactions_repo.TransactionRepository = (*TransactionRepository)(nil)
