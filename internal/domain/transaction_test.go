package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		amount string
		ok     bool
	}{
		{"0.0001", true},
		{"12.5000", true},
		{"999999999999999.9999", true},
		{"0", false},
		{"-1", false},
		{"0.00001", false},
		{"0.00005", false},
		{"1000000000000000", false},
		{"1e30", false},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tc.amount))
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("want ErrInvalidAmount, got %v", err)
			}
		})
	}
}

func TestNewAccountBalancePrecision(t *testing.T) {
	account := NewAccount{Name: "A", Email: "a@x.com"}

	account.Balance = decimal.RequireFromString("100.1234")
	if err := account.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, balance := range []string{"0.00001", "1e15"} {
		account.Balance = decimal.RequireFromString(balance)
		if err := account.Validate(); !errors.Is(err, ErrInvalidAccount) {
			t.Fatalf("balance %s: want ErrInvalidAccount, got %v", balance, err)
		}
	}
}
