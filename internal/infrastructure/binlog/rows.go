package binlog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
)

// Column positions follow the MySQL migrations.
const (
	transactionColID = iota
	transactionColAccountID
	transactionColAmount
	transactionColType
	transactionColTimestamp
	transactionColumnCount
)

const (
	accountColID = iota
	accountColName
	accountColEmail
	accountColPhone
	accountColAddress
	accountColBalance
	accountColCreatedAt
	accountColUpdatedAt
	accountColumnCount
)

func TransactionFromRow(row []any) (*domain.Transaction, error) {
	if len(row) < transactionColumnCount {
		return nil, fmt.Errorf("transactions row has %d columns, want %d", len(row), transactionColumnCount)
	}
	id, err := toInt64(row[transactionColID])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	accountID, err := toInt64(row[transactionColAccountID])
	if err != nil {
		return nil, fmt.Errorf("account_id: %w", err)
	}
	amount, err := toDecimal(row[transactionColAmount])
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	ts, err := toTime(row[transactionColTimestamp])
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	return &domain.Transaction{
		ID:        id,
		AccountID: accountID,
		Amount:    amount,
		Type:      domain.TransactionType(toString(row[transactionColType])),
		Timestamp: ts,
	}, nil
}

func AccountFromRow(row []any) (*domain.Account, error) {
	if len(row) < accountColumnCount {
		return nil, fmt.Errorf("accounts row has %d columns, want %d", len(row), accountColumnCount)
	}
	id, err := toInt64(row[accountColID])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	balance, err := toDecimal(row[accountColBalance])
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	account := &domain.Account{
		ID:      id,
		Name:    toString(row[accountColName]),
		Email:   toString(row[accountColEmail]),
		Phone:   toOptionalString(row[accountColPhone]),
		Address: toOptionalString(row[accountColAddress]),
		Balance: balance,
	}
	if account.CreatedAt, err = toTime(row[accountColCreatedAt]); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if account.UpdatedAt, err = toTime(row[accountColUpdatedAt]); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return account, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	}
	return 0, fmt.Errorf("unexpected integer value %T", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case string:
		return decimal.NewFromString(d)
	case []byte:
		return decimal.NewFromString(string(d))
	case float64:
		return decimal.NewFromFloat(d), nil
	}
	return decimal.Zero, fmt.Errorf("unexpected decimal value %T", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.ParseInLocation("2006-01-02 15:04:05.999999", t, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("unexpected time value %T", v)
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func toOptionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := toString(v)
	return &s
}
