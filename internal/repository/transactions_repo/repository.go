package transactions_repo

import (
	"context"
	"strings"

	"ledger/internal/domain"
)

type TransactionRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, transaction *domain.Transaction) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Transaction, error)
	ListTx(ctx context.Context, querier domain.Querier, filter domain.TransactionFilter, page domain.Page) ([]*domain.Transaction, error)
}

type RowScanner interface {
	Scan(dest ...any) error
}

func ScanTransaction(row RowScanner) (*domain.Transaction, error) {
	transaction := &domain.Transaction{}
	var txType string
	err := row.Scan(
		&transaction.ID,
		&transaction.AccountID,
		&transaction.Amount,
		&txType,
		&transaction.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	transaction.Type = domain.TransactionType(txType)
	transaction.Timestamp = transaction.Timestamp.UTC()
	return transaction, nil
}

// FilterClause renders the filter as a WHERE clause (empty when unfiltered).
// placeholder returns the bind marker for the n-th argument, counted from 1.
func FilterClause(filter domain.TransactionFilter, timestampColumn string, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any
	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, condition+" "+placeholder(len(args)))
	}

	if filter.AccountID != nil {
		add("account_id =", *filter.AccountID)
	}
	if filter.From != nil {
		add(timestampColumn+" >=", filter.From.UTC())
	}
	if filter.To != nil {
		add(timestampColumn+" <=", filter.To.UTC())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
