package ledger_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ledger/internal/app/accounts"
	"ledger/internal/app/transactions"
)

func RegisterRoutes(r chi.Router, a accounts.AccountService, t transactions.TransactionService, l *zap.Logger) {
	validate := newValidator()
	accountHandler := NewAccountHandler(a, t, validate, l.With(zap.String("component", "AccountHTTPHandler")))
	transactionHandler := NewTransactionHandler(t, validate, l.With(zap.String("component", "TransactionHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, l, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", accountHandler.CreateAccountHandler)
		r.Get("/", accountHandler.ListAccountsHandler)
		r.Get("/{id}", accountHandler.GetAccountHandler)
		r.Put("/{id}", accountHandler.UpdateAccountHandler)
		r.Patch("/{id}", accountHandler.UpdateAccountHandler)
		r.Get("/{id}/transactions", accountHandler.ListAccountTransactionsHandler)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", transactionHandler.CreateTransactionHandler)
		r.Get("/", transactionHandler.ListTransactionsHandler)
		r.Get("/{id}", transactionHandler.GetTransactionHandler)
	})
}
