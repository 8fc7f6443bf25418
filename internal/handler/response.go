package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// referenceDetails points the caller at the journal entry a failure happened on.
type referenceDetails struct {
	Reference   string          `json:"reference"`
	Transaction *transactionDTO `json:"transaction,omitempty"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func appErrorFor(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrUnconfirmed):
		return ErrOutcomeUnconfirmed
	case errors.Is(err, domain.ErrRecipientNotFound):
		return ErrRecipientNotFound
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, domain.ErrSelfTransfer):
		return ErrSelfTransfer
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidCurrency):
		return ErrInvalidCurrency
	case errors.Is(err, domain.ErrValidation):
		return ErrValidationFailed
	case errors.Is(err, domain.ErrDuplicateReference):
		return ErrDuplicateReference
	case errors.Is(err, domain.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, domain.ErrProposalDecided):
		return ErrProposalDecided
	case errors.Is(err, domain.ErrProviderRejected):
		return ErrProviderRejected
	case errors.Is(err, domain.ErrProviderUnavailable):
		return ErrProviderUnavailable
	case errors.Is(err, domain.ErrUnauthorized):
		return ErrInvalidSignature
	case errors.Is(err, domain.ErrForbidden):
		return ErrForbidden
	default:
		return nil
	}
}

func RespondDomainError(w http.ResponseWriter, err error) {
	RespondOutcomeError(w, err, nil)
}

// RespondOutcomeError reports a failed money operation. When the failure is
// tied to a journal entry the reference, and the entry if known, go in details.
func RespondOutcomeError(w http.ResponseWriter, err error, out *engine.Outcome) {
	appErr := appErrorFor(err)
	if appErr == nil {
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	var details any
	var opErr *engine.OpError
	if errors.As(err, &opErr) {
		d := referenceDetails{Reference: opErr.Reference}
		if out != nil && out.Transaction != nil {
			dto := toTransactionDTO(out.Transaction)
			d.Transaction = &dto
		}
		details = d
	}

	RespondAppError(w, appErr, details)
}

func respondEntryError(w http.ResponseWriter, appErr *AppError, t *domain.Transaction) {
	dto := toTransactionDTO(t)
	RespondAppError(w, appErr, referenceDetails{Reference: t.Reference, Transaction: &dto})
}
