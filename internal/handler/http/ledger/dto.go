package ledger_http

import (
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
)

type CreateAccountRequest struct {
	Name    string           `json:"name" validate:"required,max=100"`
	Email   string           `json:"email" validate:"required,email,max=100"`
	Phone   *string          `json:"phone" validate:"omitempty,max=20"`
	Address *string          `json:"address" validate:"omitempty,max=200"`
	Balance *decimal.Decimal `json:"balance"`
}

func (r CreateAccountRequest) toDomain() domain.NewAccount {
	input := domain.NewAccount{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
		Balance: decimal.Zero,
	}
	if r.Balance != nil {
		input.Balance = *r.Balance
	}
	return input
}

// UpdateAccountRequest distinguishes absent fields from explicit nulls.
type UpdateAccountRequest struct {
	Name    domain.Optional[string]  `json:"name"`
	Email   domain.Optional[string]  `json:"email"`
	Phone   domain.Optional[*string] `json:"phone"`
	Address domain.Optional[*string] `json:"address"`
}

func (r UpdateAccountRequest) toDomain() domain.AccountUpdate {
	return domain.AccountUpdate{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
	}
}

type AccountResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     *string         `json:"phone"`
	Address   *string         `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Address:   a.Address,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func newAccountsResponse(accounts []*domain.Account) []AccountResponse {
	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, newAccountResponse(a))
	}
	return resp
}

// CreateTransactionRequest leaves amount and type checks to the recorder so
// that an unknown account is reported first.
type CreateTransactionRequest struct {
	AccountID       int64            `json:"account_id" validate:"required"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
	TransactionType string           `json:"transaction_type" validate:"required"`
	Timestamp       *time.Time       `json:"timestamp"`
}

func (r CreateTransactionRequest) toDomain() domain.NewTransaction {
	return domain.NewTransaction{
		AccountID: r.AccountID,
		Amount:    *r.Amount,
		Type:      domain.TransactionType(r.TransactionType),
		Timestamp: r.Timestamp,
	}
}

type TransactionResponse struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Timestamp       time.Time       `json:"timestamp"`
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		AccountID:       t.AccountID,
		Amount:          t.Amount,
		TransactionType: string(t.Type),
		Timestamp:       t.Timestamp,
	}
}

func newTransactionsResponse(transactions []*domain.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, newTransactionResponse(t))
	}
	return resp
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
