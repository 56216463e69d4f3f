package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/infrastructure/database"
	"ledger/internal/repository/accounts_repo"
)

type AccountRepository struct{}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

func (r *AccountRepository) CreateTx(ctx context.Context, querier domain.Querier, account *domain.Account) error {
	query := `
		INSERT INTO accounts (name, email, phone, address, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		account.Name,
		account.Email,
		account.Phone,
		account.Address,
		account.Balance,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		if database.IsCheckViolation(err) {
			return fmt.Errorf("%w: initial balance cannot be negative", domain.ErrInvalidAccount)
		}
		return fmt.Errorf("failed to create account %s: %w", account.Email, err)
	}
	return nil
}

func (r *AccountRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error) {
	query := `SELECT ` + accounts_repo.AccountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, querier, query, id)
}

func (r *AccountRepository) GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error) {
	query := `SELECT ` + accounts_repo.AccountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, querier, query, id)
}

func (r *AccountRepository) GetByEmailTx(ctx context.Context, querier domain.Querier, email string) (*domain.Account, error) {
	query := `SELECT ` + accounts_repo.AccountColumns + ` FROM accounts WHERE email = $1`
	return r.getOne(ctx, querier, query, email)
}

func (r *AccountRepository) getOne(ctx context.Context, querier domain.Querier, query string, arg any) (*domain.Account, error) {
	account, err := accounts_repo.ScanAccount(querier.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by %v: %w", arg, err)
	}
	return account, nil
}

func (r *AccountRepository) ListTx(ctx context.Context, querier domain.Querier, page domain.Page) ([]*domain.Account, error) {
	page = page.Normalize()
	query := `SELECT ` + accounts_repo.AccountColumns + ` FROM accounts ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := querier.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0, page.Limit)
	for rows.Next() {
		account, err := accounts_repo.ScanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) UpdateProfileTx(ctx context.Context, querier domain.Querier, id int64, update domain.AccountUpdate, updatedAt time.Time) error {
	columns, args := accounts_repo.ProfileAssignments(update)
	sets := make([]string, 0, len(columns)+1)
	for i, column := range columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i+1))
	}
	args = append(args, updatedAt, id)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)-1))
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update account %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateBalanceTx(ctx context.Context, querier domain.Querier, id int64, delta decimal.Decimal, updatedAt time.Time) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING balance
	`
	var balance decimal.Decimal
	err := querier.QueryRowContext(ctx, query, delta, updatedAt, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		if database.IsCheckViolation(err) {
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		if database.IsNumericOutOfRange(err) {
			return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		}
		return decimal.Zero, fmt.Errorf("failed to update account balance for %d: %w", id, err)
	}
	return balance, nil
}

var _ accounts_repo.AccountRepository = (*AccountRepository)(nil)
