package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"ledger/internal/domain"
	"ledger/internal/domain/event"
	"ledger/internal/outbox"
	"ledger/internal/testutil/memstore"
)

func newTestLedger(t *testing.T, withEvents bool) (*Ledger, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	var events outbox.Publisher = outbox.NopPublisher{}
	if withEvents {
		events = outbox.NewPublisher(store.Outbox())
	}
	return NewLedger(store, store.Accounts(), events, zaptest.NewLogger(t)), store
}

func strPtr(s string) *string { return &s }

func createAccount(t *testing.T, l *Ledger, email string, balance int64) *domain.Account {
	t.Helper()
	account, err := l.CreateAccount(context.Background(), domain.NewAccount{
		Name:    "Test User",
		Email:   email,
		Balance: decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", email, err)
	}
	return account
}

func TestCreateAccount(t *testing.T) {
	l, _ := newTestLedger(t, false)
	account := createAccount(t, l, "test@example.com", 100)

	if account.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	if !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance=%s want=100", account.Balance)
	}
	if account.CreatedAt.IsZero() || !account.CreatedAt.Equal(account.UpdatedAt) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", account.CreatedAt, account.UpdatedAt)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	l, store := newTestLedger(t, false)
	createAccount(t, l, "a@x.com", 0)

	_, err := l.CreateAccount(context.Background(), domain.NewAccount{Name: "Other", Email: "a@x.com"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
	if n := len(store.AllAccounts()); n != 1 {
		t.Fatalf("accounts=%d want=1", n)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	l, store := newTestLedger(t, false)
	cases := []domain.NewAccount{
		{Name: "", Email: "a@x.com"},
		{Name: "A", Email: ""},
		{Name: "A", Email: "a@x.com", Balance: decimal.NewFromInt(-1)},
	}
	for _, input := range cases {
		if _, err := l.CreateAccount(context.Background(), input); !errors.Is(err, domain.ErrInvalidAccount) {
			t.Fatalf("input %+v: want ErrInvalidAccount, got %v", input, err)
		}
	}
	if n := len(store.AllAccounts()); n != 0 {
		t.Fatalf("accounts=%d want=0", n)
	}
}

func TestCreateAccountRollsBackWhenEventFails(t *testing.T) {
	l, store := newTestLedger(t, true)
	store.Fail(memstore.OpCreateMessage, errors.New("outbox unavailable"))

	if _, err := l.CreateAccount(context.Background(), domain.NewAccount{Name: "A", Email: "a@x.com"}); err == nil {
		t.Fatal("expected error")
	}
	if n := len(store.AllAccounts()); n != 0 {
		t.Fatalf("accounts=%d want=0 after rollback", n)
	}
}

func TestCreateAccountPublishesEvent(t *testing.T) {
	l, store := newTestLedger(t, true)
	account := createAccount(t, l, "a@x.com", 50)

	messages := store.Messages()
	if len(messages) != 1 || messages[0].MessageType != event.TypeAccountCreated {
		t.Fatalf("unexpected messages: %+v", messages)
	}
	var envelope event.Envelope
	if err := json.Unmarshal(messages[0].Payload, &envelope); err != nil {
		t.Fatal(err)
	}
	var created event.AccountCreated
	if err := json.Unmarshal(envelope.Payload, &created); err != nil {
		t.Fatal(err)
	}
	if created.AccountID != account.ID || created.Email != "a@x.com" {
		t.Fatalf("unexpected payload: %+v", created)
	}
}

func TestUpdateAccountProfilePhoneOnly(t *testing.T) {
	l, _ := newTestLedger(t, false)
	original, err := l.CreateAccount(context.Background(), domain.NewAccount{
		Name:    "Test User",
		Email:   "test@example.com",
		Address: strPtr("1 Main St"),
		Balance: decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := l.UpdateAccountProfile(context.Background(), original.ID, domain.AccountUpdate{
		Phone: domain.Some(strPtr("555-0100")),
	})
	if err != nil {
		t.Fatalf("UpdateAccountProfile: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != "555-0100" {
		t.Fatalf("phone=%v want 555-0100", updated.Phone)
	}
	if updated.Name != original.Name || updated.Email != original.Email {
		t.Fatalf("name/email changed: %+v", updated)
	}
	if updated.Address == nil || *updated.Address != "1 Main St" {
		t.Fatalf("address changed: %v", updated.Address)
	}
	if !updated.Balance.Equal(original.Balance) {
		t.Fatalf("balance=%s want=%s", updated.Balance, original.Balance)
	}

	stored, err := l.GetAccount(context.Background(), original.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Phone == nil || *stored.Phone != "555-0100" || !stored.Balance.Equal(original.Balance) {
		t.Fatalf("stored account not updated as expected: %+v", stored)
	}
}

func TestUpdateAccountProfileClearsAddress(t *testing.T) {
	l, _ := newTestLedger(t, false)
	original, err := l.CreateAccount(context.Background(), domain.NewAccount{
		Name: "A", Email: "a@x.com", Address: strPtr("old"),
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := l.UpdateAccountProfile(context.Background(), original.ID, domain.AccountUpdate{
		Address: domain.Some[*string](nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Address != nil {
		t.Fatalf("address=%q want nil", *updated.Address)
	}
}

func TestUpdateAccountProfileEmptyReturnsCurrent(t *testing.T) {
	l, store := newTestLedger(t, true)
	account := createAccount(t, l, "a@x.com", 10)

	got, err := l.UpdateAccountProfile(context.Background(), account.ID, domain.AccountUpdate{})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != account.ID || got.Email != account.Email {
		t.Fatalf("unexpected account: %+v", got)
	}
	if n := len(store.Messages()); n != 1 {
		t.Fatalf("messages=%d want=1 (no update event)", n)
	}
}

func TestUpdateAccountProfileDuplicateEmail(t *testing.T) {
	l, _ := newTestLedger(t, false)
	createAccount(t, l, "a@x.com", 0)
	b := createAccount(t, l, "b@x.com", 0)

	_, err := l.UpdateAccountProfile(context.Background(), b.ID, domain.AccountUpdate{Email: domain.Some("a@x.com")})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestUpdateAccountProfileSameEmailIsAllowed(t *testing.T) {
	l, _ := newTestLedger(t, false)
	a := createAccount(t, l, "a@x.com", 0)

	updated, err := l.UpdateAccountProfile(context.Background(), a.ID, domain.AccountUpdate{
		Name:  domain.Some("Renamed"),
		Email: domain.Some("a@x.com"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name=%q want Renamed", updated.Name)
	}
}

func TestUpdateAccountProfileNotFound(t *testing.T) {
	l, _ := newTestLedger(t, false)
	_, err := l.UpdateAccountProfile(context.Background(), 42, domain.AccountUpdate{Name: domain.Some("X")})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	l, _ := newTestLedger(t, false)
	if _, err := l.GetAccount(context.Background(), 1); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}

func TestListAccountsPaging(t *testing.T) {
	l, _ := newTestLedger(t, false)
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		createAccount(t, l, email, 0)
	}

	page, err := l.ListAccounts(context.Background(), domain.Page{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Email != "b@x.com" {
		t.Fatalf("unexpected page: %+v", page)
	}

	all, err := l.ListAccounts(context.Background(), domain.Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len=%d want=3", len(all))
	}
}

func TestAdjustBalanceTx(t *testing.T) {
	l, store := newTestLedger(t, false)
	account := createAccount(t, l, "a@x.com", 100)

	adjust := func(amount int64, txType domain.TransactionType) (decimal.Decimal, error) {
		var balance decimal.Decimal
		err := store.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
			var err error
			balance, err = l.AdjustBalanceTx(ctx, q, account.ID, decimal.NewFromInt(amount), txType)
			return err
		})
		return balance, err
	}

	if balance, err := adjust(500, domain.TransactionTypeDeposit); err != nil || !balance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("deposit: balance=%s err=%v", balance, err)
	}
	if balance, err := adjust(600, domain.TransactionTypeWithdrawal); err != nil || !balance.IsZero() {
		t.Fatalf("withdraw all: balance=%s err=%v", balance, err)
	}
	if _, err := adjust(1, domain.TransactionTypeWithdrawal); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if _, err := adjust(0, domain.TransactionTypeDeposit); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	if _, err := adjust(5, domain.TransactionType("transfer")); !errors.Is(err, domain.ErrInvalidTransactionType) {
		t.Fatalf("want ErrInvalidTransactionType, got %v", err)
	}

	err := store.WithinTx(context.Background(), func(ctx context.Context, q domain.Querier) error {
		_, err := l.AdjustBalanceTx(ctx, q, 999, decimal.NewFromInt(1), domain.TransactionTypeDeposit)
		return err
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}
