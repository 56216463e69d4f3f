package ledger_http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ledger/internal/app/accounts"
	"ledger/internal/app/transactions"
)

type AccountHandler struct {
	accounts     accounts.AccountService
	transactions transactions.TransactionService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewAccountHandler(a accounts.AccountService, t transactions.TransactionService, v *validator.Validate, l *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: a, transactions: t, validate: v, logger: l}
}

func (h *AccountHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.toDomain())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, newAccountResponse(account))
}

func (h *AccountHandler) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req UpdateAccountRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}
	if req.Email.Set {
		if err := h.validate.Var(req.Email.Value, "required,email"); err != nil {
			writeError(w, h.logger, http.StatusUnprocessableEntity, "email is not a valid email address")
			return
		}
	}

	account, err := h.accounts.UpdateAccountProfile(r.Context(), id, req.toDomain())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}

	list, err := h.accounts.ListAccounts(r.Context(), page)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newAccountsResponse(list))
}

// ListAccountTransactionsHandler lists one account's history; an unknown account is a 404.
func (h *AccountHandler) ListAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	q := r.URL.Query()
	page, err := parsePage(q)
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	filter, err := parseTransactionFilter(q)
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	filter.AccountID = &id

	if _, err := h.accounts.GetAccount(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	list, err := h.transactions.ListTransactions(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newTransactionsResponse(list))
}

