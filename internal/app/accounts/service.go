package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger/internal/domain"
	"ledger/internal/domain/event"
	"ledger/internal/infrastructure/database"
	"ledger/internal/outbox"
	"ledger/internal/repository/accounts_repo"
)

type AccountService interface {
	CreateAccount(ctx context.Context, input domain.NewAccount) (*domain.Account, error)
	UpdateAccountProfile(ctx context.Context, id int64, update domain.AccountUpdate) (*domain.Account, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	ListAccounts(ctx context.Context, page domain.Page) ([]*domain.Account, error)
}

// Ledger owns account records and is the only writer of balances.
type Ledger struct {
	txManager   database.TxManager
	accountRepo accounts_repo.AccountRepository
	events      outbox.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

func NewLedger(
	txManager database.TxManager,
	accountRepo accounts_repo.AccountRepository,
	events outbox.Publisher,
	logger *zap.Logger,
) *Ledger {
	if events == nil {
		events = outbox.NopPublisher{}
	}
	return &Ledger{
		txManager:   txManager,
		accountRepo: accountRepo,
		events:      events,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (l *Ledger) CreateAccount(ctx context.Context, input domain.NewAccount) (*domain.Account, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := l.now()
	account := &domain.Account{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		Balance:   input.Balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := l.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
		if err := l.ensureEmailFree(ctx, q, input.Email, 0); err != nil {
			return err
		}
		if err := l.accountRepo.CreateTx(ctx, q, account); err != nil {
			return err
		}
		return l.events.PublishTx(ctx, q, event.AccountCreated{AccountSnapshot: snapshot(account)})
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			l.logger.Warn("Account email already registered", zap.String("email", input.Email))
		} else {
			l.logger.Error("Failed to create account", zap.String("email", input.Email), zap.Error(err))
		}
		return nil, err
	}

	l.logger.Info("Account created",
		zap.Int64("account_id", account.ID),
		zap.String("initial_balance", account.Balance.String()),
	)
	return account, nil
}

func (l *Ledger) UpdateAccountProfile(ctx context.Context, id int64, update domain.AccountUpdate) (*domain.Account, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return l.GetAccount(ctx, id)
	}

	var account *domain.Account
	err := l.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
		current, err := l.accountRepo.GetByIDForUpdateTx(ctx, q, id)
		if err != nil {
			return err
		}
		if update.Email.Set && update.Email.Value != current.Email {
			if err := l.ensureEmailFree(ctx, q, update.Email.Value, id); err != nil {
				return err
			}
		}

		now := l.now()
		if err := l.accountRepo.UpdateProfileTx(ctx, q, id, update, now); err != nil {
			return err
		}
		update.Apply(current)
		current.UpdatedAt = now
		account = current

		return l.events.PublishTx(ctx, q, event.AccountUpdated{
			AccountSnapshot: snapshot(current),
			ChangedFields:   changedFields(update),
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) && !errors.Is(err, domain.ErrDuplicateEmail) {
			l.logger.Error("Failed to update account", zap.Int64("account_id", id), zap.Error(err))
		}
		return nil, err
	}

	l.logger.Info("Account updated", zap.Int64("account_id", id), zap.Strings("fields", changedFields(update)))
	return account, nil
}

func (l *Ledger) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return l.accountRepo.GetByIDTx(ctx, l.txManager.Querier(), id)
}

func (l *Ledger) ListAccounts(ctx context.Context, page domain.Page) ([]*domain.Account, error) {
	return l.accountRepo.ListTx(ctx, l.txManager.Querier(), page.Normalize())
}

// LockAccountTx reads the account and holds its row lock until q's transaction ends.
func (l *Ledger) LockAccountTx(ctx context.Context, q domain.Querier, id int64) (*domain.Account, error) {
	return l.accountRepo.GetByIDForUpdateTx(ctx, q, id)
}

// AdjustBalanceTx applies a deposit or withdrawal to the account inside q's
// transaction and returns the new balance.
func (l *Ledger) AdjustBalanceTx(ctx context.Context, q domain.Querier, id int64, amount decimal.Decimal, txType domain.TransactionType) (decimal.Decimal, error) {
	account, err := l.accountRepo.GetByIDForUpdateTx(ctx, q, id)
	if err != nil {
		return decimal.Zero, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	delta, err := txType.Delta(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if txType == domain.TransactionTypeWithdrawal && account.Balance.LessThan(amount) {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	if !domain.FitsStorePrecision(account.Balance.Add(delta)) {
		return decimal.Zero, fmt.Errorf("%w: balance of account %d would exceed %d integer digits",
			domain.ErrInvalidAmount, id, domain.MaxAmountIntegerDigits)
	}

	balance, err := l.accountRepo.UpdateBalanceTx(ctx, q, id, delta, l.now())
	if err != nil {
		return decimal.Zero, err
	}
	l.logger.Debug("Account balance adjusted",
		zap.Int64("account_id", id),
		zap.String("delta", delta.String()),
		zap.String("balance", balance.String()),
	)
	return balance, nil
}

// ensureEmailFree returns ErrDuplicateEmail when another account owns email.
func (l *Ledger) ensureEmailFree(ctx context.Context, q domain.Querier, email string, ownerID int64) error {
	existing, err := l.accountRepo.GetByEmailTx(ctx, q, email)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check email: %w", err)
	case existing.ID != ownerID:
		return domain.ErrDuplicateEmail
	}
	return nil
}

func snapshot(a *domain.Account) event.AccountSnapshot {
	return event.AccountSnapshot{
		AccountID: a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Address:   a.Address,
		Balance:   a.Balance,
	}
}

func changedFields(u domain.AccountUpdate) []string {
	var fields []string
	if u.Name.Set {
		fields = append(fields, "name")
	}
	if u.Email.Set {
		fields = append(fields, "email")
	}
	if u.Phone.Set {
		fields = append(fields, "phone")
	}
	if u.Address.Set {
		fields = append(fields, "address")
	}
	return fields
}

var _ AccountService = (*Ledger)(nil)
