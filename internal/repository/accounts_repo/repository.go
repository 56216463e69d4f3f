package accounts_repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
)

type AccountRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, account *domain.Account) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error)
	// GetByIDForUpdateTx locks the account row until the surrounding transaction ends.
	GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Account, error)
	GetByEmailTx(ctx context.Context, querier domain.Querier, email string) (*domain.Account, error)
	ListTx(ctx context.Context, querier domain.Querier, page domain.Page) ([]*domain.Account, error)
	UpdateProfileTx(ctx context.Context, querier domain.Querier, id int64, update domain.AccountUpdate, updatedAt time.Time) error
	// UpdateBalanceTx adds delta to the balance and returns the new balance.
	UpdateBalanceTx(ctx context.Context, querier domain.Querier, id int64, delta decimal.Decimal, updatedAt time.Time) (decimal.Decimal, error)
}

const AccountColumns = "id, name, email, phone, address, balance, created_at, updated_at"

type RowScanner interface {
	Scan(dest ...any) error
}

func ScanAccount(row RowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	var phone, address sql.NullString
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&phone,
		&address,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		account.Phone = &phone.String
	}
	if address.Valid {
		account.Address = &address.String
	}
	return account, nil
}

// ProfileAssignments lists the columns and values a partial update touches,
// in a fixed order so the generated SQL is deterministic.
func ProfileAssignments(update domain.AccountUpdate) (columns []string, args []any) {
	if update.Name.Set {
		columns = append(columns, "name")
		args = append(args, update.Name.Value)
	}
	if update.Email.Set {
		columns = append(columns, "email")
		args = append(args, update.Email.Value)
	}
	if update.Phone.Set {
		columns = append(columns, "phone")
		args = append(args, update.Phone.Value)
	}
	if update.Address.Set {
		columns = append(columns, "address")
		args = append(args, update.Address.Value)
	}
	return columns, args
}
