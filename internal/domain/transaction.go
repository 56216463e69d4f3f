package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal:
		return true
	}
	return false
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
	return t, nil
}

// Delta is the signed change the transaction applies to the account balance.
func (t TransactionType) Delta(amount decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case TransactionTypeDeposit:
		return amount, nil
	case TransactionTypeWithdrawal:
		return amount.Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidTransactionType, string(t))
}

type Transaction struct {
	ID        int64
	AccountID int64
	Amount    decimal.Decimal
	Type      TransactionType
	Timestamp time.Time
}

type NewTransaction struct {
	AccountID int64
	Amount    decimal.Decimal
	Type      TransactionType
	// Timestamp defaults to the recorder's clock when nil.
	Timestamp *time.Time
}

// Amounts and balances are stored as NUMERIC(19,4).
const (
	MaxAmountScale         = 4
	MaxAmountIntegerDigits = 15
)

var amountLimit = decimal.New(1, MaxAmountIntegerDigits)

// FitsStorePrecision reports whether v can be stored without rounding or overflow.
func FitsStorePrecision(v decimal.Decimal) bool {
	return v.Equal(v.Round(MaxAmountScale)) && v.Abs().LessThan(amountLimit)
}

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0, got %s", ErrInvalidAmount, amount.String())
	}
	if !FitsStorePrecision(amount) {
		return fmt.Errorf("%w: amount must have at most %d integer and %d fractional digits, got %s",
			ErrInvalidAmount, MaxAmountIntegerDigits, MaxAmountScale, amount.String())
	}
	return nil
}

// TransactionFilter conditions are joined with AND. Time bounds are inclusive.
type TransactionFilter struct {
	AccountID *int64
	From      *time.Time
	To        *time.Time
}

func (f TransactionFilter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: from_date is after to_date", ErrInvalidFilter)
	}
	return nil
}
