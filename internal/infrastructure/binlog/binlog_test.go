package binlog

import (
	"testing"
	"time"

	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/shopspring/decimal"

	"ledger/internal/domain"
)

func TestChangesSplitsUpdateImages(t *testing.T) {
	e := &replication.RowsEvent{
		Table: &replication.TableMapEvent{Schema: []byte("ledger"), Table: []byte("accounts")},
		Rows: [][]any{
			{int64(1), "before"},
			{int64(1), "after"},
			{int64(2), "before-2"},
			{int64(2), "after-2"},
		},
	}
	changes := Changes(replication.UPDATE_ROWS_EVENTv2, e)
	if len(changes) != 2 {
		t.Fatalf("changes=%d want=2", len(changes))
	}
	if changes[1].Before[1] != "before-2" || changes[1].After[1] != "after-2" {
		t.Fatalf("unexpected images: %+v", changes[1])
	}
	if changes[0].Schema != "ledger" || changes[0].Table != "accounts" || changes[0].Action != ActionUpdate {
		t.Fatalf("unexpected change: %+v", changes[0])
	}
}

func TestChangesInsertAndDelete(t *testing.T) {
	e := &replication.RowsEvent{
		Table: &replication.TableMapEvent{Schema: []byte("ledger"), Table: []byte("transactions")},
		Rows:  [][]any{{int64(1)}, {int64(2)}},
	}
	inserts := Changes(replication.WRITE_ROWS_EVENTv2, e)
	if len(inserts) != 2 || inserts[0].After == nil || inserts[0].Before != nil {
		t.Fatalf("unexpected inserts: %+v", inserts)
	}
	deletes := Changes(replication.DELETE_ROWS_EVENTv1, e)
	if len(deletes) != 2 || deletes[1].Before == nil || deletes[1].After != nil {
		t.Fatalf("unexpected deletes: %+v", deletes)
	}
	if got := Changes(replication.QUERY_EVENT, e); got != nil {
		t.Fatalf("non-row event produced %v", got)
	}
}

func TestTransactionFromRow(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC)
	tx, err := TransactionFromRow([]any{int64(7), int64(3), decimal.RequireFromString("200.0000"), "withdrawal", ts})
	if err != nil {
		t.Fatal(err)
	}
	if tx.ID != 7 || tx.AccountID != 3 || tx.Type != domain.TransactionTypeWithdrawal {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(200)) || !tx.Timestamp.Equal(ts) {
		t.Fatalf("unexpected amount/timestamp: %s %v", tx.Amount, tx.Timestamp)
	}

	tx, err = TransactionFromRow([]any{int32(8), int64(3), "12.5000", []byte("deposit"), "2024-01-02 03:04:05.600000"})
	if err != nil {
		t.Fatal(err)
	}
	if !tx.Timestamp.Equal(ts) || tx.Type != domain.TransactionTypeDeposit {
		t.Fatalf("unexpected string-decoded transaction: %+v", tx)
	}

	if _, err := TransactionFromRow([]any{int64(1)}); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestAccountFromRow(t *testing.T) {
	now := time.Now().UTC()
	account, err := AccountFromRow([]any{int64(1), "A", "a@x.com", nil, "Main st", decimal.NewFromInt(40), now, now})
	if err != nil {
		t.Fatal(err)
	}
	if account.Phone != nil || account.Address == nil || *account.Address != "Main st" {
		t.Fatalf("unexpected optional fields: %+v", account)
	}
	if !account.Balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("balance=%s want=40", account.Balance)
	}
}
