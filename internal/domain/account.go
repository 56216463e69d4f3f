package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLength    = 100
	MaxEmailLength   = 100
	MaxPhoneLength   = 20
	MaxAddressLength = 200
)

type Account struct {
	ID        int64
	Name      string
	Email     string
	Phone     *string
	Address   *string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type NewAccount struct {
	Name    string
	Email   string
	Phone   *string
	Address *string
	Balance decimal.Decimal
}

func (a NewAccount) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if err := validateEmail(a.Email); err != nil {
		return err
	}
	if err := validateOptionalLength("phone", a.Phone, MaxPhoneLength); err != nil {
		return err
	}
	if err := validateOptionalLength("address", a.Address, MaxAddressLength); err != nil {
		return err
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidAccount)
	}
	if !FitsStorePrecision(a.Balance) {
		return fmt.Errorf("%w: initial balance must have at most %d integer and %d fractional digits",
			ErrInvalidAccount, MaxAmountIntegerDigits, MaxAmountScale)
	}
	return nil
}

// AccountUpdate is a partial profile update. Balance is deliberately absent:
// it only changes through recorded transactions.
type AccountUpdate struct {
	Name    Optional[string]
	Email   Optional[string]
	Phone   Optional[*string]
	Address Optional[*string]
}

func (u AccountUpdate) IsEmpty() bool {
	return !u.Name.Set && !u.Email.Set && !u.Phone.Set && !u.Address.Set
}

func (u AccountUpdate) Validate() error {
	if u.Name.Set {
		if err := validateName(u.Name.Value); err != nil {
			return err
		}
	}
	if u.Email.Set {
		if err := validateEmail(u.Email.Value); err != nil {
			return err
		}
	}
	if u.Phone.Set {
		if err := validateOptionalLength("phone", u.Phone.Value, MaxPhoneLength); err != nil {
			return err
		}
	}
	if u.Address.Set {
		if err := validateOptionalLength("address", u.Address.Value, MaxAddressLength); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies every supplied field onto the account.
func (u AccountUpdate) Apply(a *Account) {
	if u.Name.Set {
		a.Name = u.Name.Value
	}
	if u.Email.Set {
		a.Email = u.Email.Value
	}
	if u.Phone.Set {
		a.Phone = u.Phone.Value
	}
	if u.Address.Set {
		a.Address = u.Address.Value
	}
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidAccount, MaxNameLength)
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidAccount)
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("%w: email must be at most %d characters", ErrInvalidAccount, MaxEmailLength)
	}
	return nil
}

func validateOptionalLength(field string, value *string, max int) error {
	if value != nil && len(*value) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidAccount, field, max)
	}
	return nil
}
