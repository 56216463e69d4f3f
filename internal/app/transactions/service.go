package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger/internal/domain"
	"ledger/internal/domain/event"
	"ledger/internal/infrastructure/database"
	"ledger/internal/outbox"
	"ledger/internal/repository/transactions_repo"
)

type TransactionService interface {
	RecordTransaction(ctx context.Context, input domain.NewTransaction) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, page domain.Page) ([]*domain.Transaction, error)
}

// AccountLedger is the part of the account ledger the recorder drives from
// inside its own store transaction.
type AccountLedger interface {
	LockAccountTx(ctx context.Context, q domain.Querier, id int64) (*domain.Account, error)
	AdjustBalanceTx(ctx context.Context, q domain.Querier, id int64, amount decimal.Decimal, txType domain.TransactionType) (decimal.Decimal, error)
}

type Recorder struct {
	txManager       database.TxManager
	ledger          AccountLedger
	transactionRepo transactions_repo.TransactionRepository
	events          outbox.Publisher
	logger          *zap.Logger
	now             func() time.Time
}

func NewRecorder(
	txManager database.TxManager,
	ledger AccountLedger,
	transactionRepo transactions_repo.TransactionRepository,
	events outbox.Publisher,
	logger *zap.Logger,
) *Recorder {
	if events == nil {
		events = outbox.NopPublisher{}
	}
	return &Recorder{
		txManager:       txManager,
		ledger:          ledger,
		transactionRepo: transactionRepo,
		events:          events,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// RecordTransaction applies the balance change and stores the transaction
// atomically. On any error nothing is written.
func (r *Recorder) RecordTransaction(ctx context.Context, input domain.NewTransaction) (*domain.Transaction, error) {
	timestamp := r.now()
	if input.Timestamp != nil {
		timestamp = input.Timestamp.UTC()
	}
	// Stores keep microseconds.
	timestamp = timestamp.Truncate(time.Microsecond)
	transaction := &domain.Transaction{
		AccountID: input.AccountID,
		Amount:    input.Amount,
		Type:      input.Type,
		Timestamp: timestamp,
	}

	var balanceAfter decimal.Decimal
	err := r.txManager.WithinTx(ctx, func(ctx context.Context, q domain.Querier) error {
		account, err := r.ledger.LockAccountTx(ctx, q, input.AccountID)
		if err != nil {
			return err
		}
		if err := domain.ValidateAmount(input.Amount); err != nil {
			return err
		}
		if !input.Type.Valid() {
			return domain.ErrInvalidTransactionType
		}
		if input.Type == domain.TransactionTypeWithdrawal && account.Balance.LessThan(input.Amount) {
			return domain.ErrInsufficientFunds
		}

		balanceAfter, err = r.ledger.AdjustBalanceTx(ctx, q, input.AccountID, input.Amount, input.Type)
		if err != nil {
			return err
		}
		if err := r.transactionRepo.CreateTx(ctx, q, transaction); err != nil {
			return err
		}
		return r.events.PublishTx(ctx, q, event.TransactionRecorded{
			TransactionID:   transaction.ID,
			AccountID:       transaction.AccountID,
			Amount:          transaction.Amount,
			TransactionType: string(transaction.Type),
			Timestamp:       transaction.Timestamp,
			BalanceAfter:    balanceAfter,
		})
	})
	if err != nil {
		fields := []zap.Field{
			zap.Int64("account_id", input.AccountID),
			zap.String("transaction_type", string(input.Type)),
			zap.String("amount", input.Amount.String()),
			zap.Error(err),
		}
		if isRejection(err) {
			r.logger.Warn("Transaction rejected", fields...)
		} else {
			r.logger.Error("Failed to record transaction", fields...)
		}
		return nil, err
	}

	r.logger.Info("Transaction recorded",
		zap.Int64("transaction_id", transaction.ID),
		zap.Int64("account_id", transaction.AccountID),
		zap.String("transaction_type", string(transaction.Type)),
		zap.String("amount", transaction.Amount.String()),
		zap.String("balance_after", balanceAfter.String()),
	)
	return transaction, nil
}

func (r *Recorder) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.transactionRepo.GetByIDTx(ctx, r.txManager.Querier(), id)
}

func (r *Recorder) ListTransactions(ctx context.Context, filter domain.TransactionFilter, page domain.Page) ([]*domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return r.transactionRepo.ListTx(ctx, r.txManager.Querier(), filter, page.Normalize())
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidTransactionType) ||
		errors.Is(err, domain.ErrInsufficientFunds)
}

var _ TransactionService = (*Recorder)(nil)
