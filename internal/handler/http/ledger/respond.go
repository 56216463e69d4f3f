package ledger_http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ledger/internal/domain"
)

const (
	detailEmailRegistered        = "Email already registered"
	detailAccountNotFound        = "Account not found"
	detailTransactionNotFound    = "Transaction not found"
	detailInsufficientFunds      = "Insufficient funds"
	detailInvalidTransactionType = "Invalid transaction type"
	detailInvalidAmount          = "Invalid amount"
	detailInvalidBody            = "Invalid request body"
	detailInternal               = "Internal server error"
)

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, detail string) {
	writeJSON(w, logger, status, ErrorResponse{Detail: detail})
}

// writeServiceError maps domain errors onto status codes; anything unknown is a 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, logger, http.StatusNotFound, detailAccountNotFound)
	case errors.Is(err, domain.ErrTransactionNotFound):
		writeError(w, logger, http.StatusNotFound, detailTransactionNotFound)
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, logger, http.StatusConflict, detailEmailRegistered)
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, logger, http.StatusBadRequest, detailInsufficientFunds)
	case errors.Is(err, domain.ErrInvalidTransactionType):
		writeError(w, logger, http.StatusBadRequest, detailInvalidTransactionType)
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, logger, http.StatusBadRequest, detailInvalidAmount)
	case errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidAccount):
		writeError(w, logger, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		writeError(w, logger, http.StatusInternalServerError, detailInternal)
	}
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *zap.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, logger, http.StatusBadRequest, detailInvalidBody)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, logger, http.StatusUnprocessableEntity, validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s is not a valid email address", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
