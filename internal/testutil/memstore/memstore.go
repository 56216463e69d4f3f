// Package memstore is an in-memory store for service tests. WithinTx runs one
// transaction at a time and restores the previous state when fn fails, which
// gives the same all-or-nothing and row-lock semantics as the SQL store.
package memstore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/infrastructure/database"
	"ledger/internal/outbox"
	"ledger/internal/repository/accounts_repo"
	"ledger/internal/repository/transactions_repo"
)

// Fault injection points.
const (
	OpCreateAccount     = "accounts.create"
	OpUpdateBalance     = "accounts.update_balance"
	OpCreateTransaction = "transactions.create"
	OpCreateMessage     = "outbox.create"
)

var errNoSQL = errors.New("memstore: SQL is not supported")

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts      map[int64]domain.Account
	transactions  map[int64]domain.Transaction
	messages      []domain.OutboxMessage
	nextAccountID int64
	nextTxID      int64
	faults        map[string]error
}

func New() *Store {
	return &Store{
		accounts:     make(map[int64]domain.Account),
		transactions: make(map[int64]domain.Transaction),
		faults:       make(map[string]error),
	}
}

type state struct {
	accounts      map[int64]domain.Account
	transactions  map[int64]domain.Transaction
	messages      []domain.OutboxMessage
	nextAccountID int64
	nextTxID      int64
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := state{
		accounts:      make(map[int64]domain.Account, len(s.accounts)),
		transactions:  make(map[int64]domain.Transaction, len(s.transactions)),
		messages:      append([]domain.OutboxMessage(nil), s.messages...),
		nextAccountID: s.nextAccountID,
		nextTxID:      s.nextTxID,
	}
	for id, a := range s.accounts {
		st.accounts[id] = a
	}
	for id, t := range s.transactions {
		st.transactions[id] = t
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = st.accounts
	s.transactions = st.transactions
	s.messages = st.messages
	s.nextAccountID = st.nextAccountID
	s.nextTxID = st.nextTxID
}

func (s *Store) WithinTx(ctx context.Context, fn database.TxFunc) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	saved := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(saved)
			panic(p)
		}
	}()

	if err = fn(ctx, querier{}); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func (s *Store) Querier() domain.Querier {
	return querier{}
}

// Fail makes the next call of op return err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if ok {
		delete(s.faults, op)
	}
	return err
}

func (s *Store) Accounts() AccountRepository {
	return AccountRepository{s: s}
}

func (s *Store) Transactions() TransactionRepository {
	return TransactionRepository{s: s}
}

func (s *Store) Outbox() OutboxRepository {
	return OutboxRepository{s: s}
}

// AllAccounts returns every stored account ordered by id.
func (s *Store) AllAccounts() []domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllTransactions returns every stored transaction ordered by id.
func (s *Store) AllTransactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedTransactions()
}

func (s *Store) Messages() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.messages...)
}

func (s *Store) sortedTransactions() []domain.Transaction {
	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type AccountRepository struct{ s *Store }

func (r AccountRepository) CreateTx(_ context.Context, _ domain.Querier, account *domain.Account) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCreateAccount); err != nil {
		return err
	}
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrDuplicateEmail
		}
	}
	if account.Balance.IsNegative() {
		return domain.ErrInsufficientFunds
	}
	s.nextAccountID++
	account.ID = s.nextAccountID
	s.accounts[account.ID] = *account
	return nil
}

func (r AccountRepository) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r AccountRepository) GetByIDForUpdateTx(ctx context.Context, q domain.Querier, id int64) (*domain.Account, error) {
	return r.GetByIDTx(ctx, q, id)
}

func (r AccountRepository) GetByEmailTx(_ context.Context, _ domain.Querier, email string) (*domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r AccountRepository) ListTx(_ context.Context, _ domain.Querier, page domain.Page) ([]*domain.Account, error) {
	page = page.Normalize()
	all := r.s.AllAccounts()
	out := make([]*domain.Account, 0)
	for i := page.Offset; i < len(all) && len(out) < page.Limit; i++ {
		a := all[i]
		out = append(out, &a)
	}
	return out, nil
}

func (r AccountRepository) UpdateProfileTx(_ context.Context, _ domain.Querier, id int64, update domain.AccountUpdate, updatedAt time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if update.Email.Set {
		for otherID, other := range s.accounts {
			if otherID != id && other.Email == update.Email.Value {
				return domain.ErrDuplicateEmail
			}
		}
	}
	update.Apply(&a)
	a.UpdatedAt = updatedAt
	s.accounts[id] = a
	return nil
}

func (r AccountRepository) UpdateBalanceTx(_ context.Context, _ domain.Querier, id int64, delta decimal.Decimal, updatedAt time.Time) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpUpdateBalance); err != nil {
		return decimal.Zero, err
	}
	a, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	balance := a.Balance.Add(delta)
	if balance.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	a.Balance = balance
	a.UpdatedAt = updatedAt
	s.accounts[id] = a
	return balance, nil
}

type TransactionRepository struct{ s *Store }

func (r TransactionRepository) CreateTx(_ context.Context, _ domain.Querier, transaction *domain.Transaction) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCreateTransaction); err != nil {
		return err
	}
	if _, ok := s.accounts[transaction.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	s.nextTxID++
	transaction.ID = s.nextTxID
	s.transactions[transaction.ID] = *transaction
	return nil
}

func (r TransactionRepository) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return &t, nil
}

func (r TransactionRepository) ListTx(_ context.Context, _ domain.Querier, filter domain.TransactionFilter, page domain.Page) ([]*domain.Transaction, error) {
	page = page.Normalize()
	s := r.s
	s.mu.Lock()
	all := s.sortedTransactions()
	s.mu.Unlock()

	var matched []domain.Transaction
	for _, t := range all {
		if filter.AccountID != nil && t.AccountID != *filter.AccountID {
			continue
		}
		if filter.From != nil && t.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Timestamp.After(*filter.To) {
			continue
		}
		matched = append(matched, t)
	}

	out := make([]*domain.Transaction, 0)
	for i := page.Offset; i < len(matched) && len(out) < page.Limit; i++ {
		t := matched[i]
		out = append(out, &t)
	}
	return out, nil
}

type OutboxRepository struct{ s *Store }

func (r OutboxRepository) CreateMessageTx(_ context.Context, _ domain.Querier, msg *domain.OutboxMessage) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCreateMessage); err != nil {
		return err
	}
	s.messages = append(s.messages, *msg)
	return nil
}

type querier struct{}

func (querier) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (querier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (querier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

var (
	_ database.TxManager                      = (*Store)(nil)
	_ accounts_repo.AccountRepository         = AccountRepository{}
	_ transactions_repo.TransactionRepository = TransactionRepository{}
	_ outbox.MessageWriter                    = OutboxRepository{}
)
