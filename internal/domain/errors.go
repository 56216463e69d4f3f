package domain

import "errors"

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrInvalidAccount         = errors.New("invalid account data")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidFilter          = errors.New("invalid filter")
)
