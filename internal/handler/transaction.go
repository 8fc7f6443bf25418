package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

type historyService interface {
	List(ctx context.Context, userID uuid.UUID, f domain.TransactionFilter, p domain.Page) (*domain.TransactionPage, error)
	Stats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.Totals, error)
	Today(ctx context.Context, userID uuid.UUID) (*domain.Totals, error)
}

type outcomeEngine interface {
	Outcome(ctx context.Context, reference string, actor uuid.UUID) (*domain.Transaction, error)
	Resolve(ctx context.Context, reference string, actor uuid.UUID) (*domain.Transaction, error)
}

type TransactionHandler struct {
	history historyService
	outcome outcomeEngine
}

func NewTransactionHandler(history historyService, outcome outcomeEngine) *TransactionHandler {
	return &TransactionHandler{history: history, outcome: outcome}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q := r.URL.Query()
	var fields []FieldError
	filter := domain.TransactionFilter{
		Kind:   domain.Kind(q.Get("kind")),
		Status: domain.Status(q.Get("status")),
		Search: q.Get("q"),
	}
	filter.From, fields = parseTimeParam(q.Get("from"), "from", fields)
	filter.To, fields = parseTimeParam(q.Get("to"), "to", fields)
	page := domain.Page{}
	page.Page, fields = parseIntParam(q.Get("page"), "page", fields)
	page.Limit, fields = parseIntParam(q.Get("limit"), "limit", fields)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	result, err := h.history.List(r.Context(), userID, filter, page)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toPageDTO(result))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	t, err := h.outcome.Outcome(r.Context(), r.PathValue("reference"), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

// Resolve asks the provider for the final state of a pending entry.
func (h *TransactionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	t, err := h.outcome.Resolve(r.Context(), r.PathValue("reference"), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction resolve failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}

func (h *TransactionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var fields []FieldError
	from, fields := parseTimeParam(r.URL.Query().Get("from"), "from", fields)
	to, fields := parseTimeParam(r.URL.Query().Get("to"), "to", fields)
	if from == nil {
		fields = append(fields, FieldError{Field: "from", Message: "required"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	var end time.Time
	if to != nil {
		end = *to
	}

	totals, err := h.history.Stats(r.Context(), userID, *from, end)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toTotalsDTO(totals))
}

func (h *TransactionHandler) IncomeToday(w http.ResponseWriter, r *http.Request) {
	h.today(w, r, func(t *domain.Totals) any { return map[string]int64{"income": t.Income} })
}

func (h *TransactionHandler) ExpensesToday(w http.ResponseWriter, r *http.Request) {
	h.today(w, r, func(t *domain.Totals) any { return map[string]int64{"expense": t.Expense} })
}

func (h *TransactionHandler) today(w http.ResponseWriter, r *http.Request, pick func(*domain.Totals) any) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	totals, err := h.history.Today(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, pick(totals))
}

// parseTimeParam accepts RFC 3339 timestamps or plain dates.
func parseTimeParam(raw, field string, fields []FieldError) (*time.Time, []FieldError) {
	if raw == "" {
		return nil, fields
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, fields
		}
	}
	return nil, append(fields, FieldError{Field: field, Message: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
}

func parseIntParam(raw, field string, fields []FieldError) (int, []FieldError) {
	if raw == "" {
		return 0, fields
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, append(fields, FieldError{Field: field, Message: "must be a positive integer"})
	}
	return n, fields
}
