package ledger_http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ledger/internal/app/transactions"
)

type TransactionHandler struct {
	transactions transactions.TransactionService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewTransactionHandler(t transactions.TransactionService, v *validator.Validate, l *zap.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: t, validate: v, logger: l}
}

func (h *TransactionHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	transaction, err := h.transactions.RecordTransaction(r.Context(), req.toDomain())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, newTransactionResponse(transaction))
}

func (h *TransactionHandler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}

	transaction, err := h.transactions.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newTransactionResponse(transaction))
}

func (h *TransactionHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.transactions.ListTransactions(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newTransactionsResponse(list))
}
