package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

type adminEngine interface {
	Adjust(ctx context.Context, req engine.AdjustmentRequest) (*engine.Outcome, error)
	Settle(ctx context.Context, reference string, to domain.Status, detail string) (*domain.Transaction, error)
}

type AdminHandler struct {
	ledger adminEngine
}

func NewAdminHandler(ledger adminEngine) *AdminHandler {
	return &AdminHandler{ledger: ledger}
}

type adjustmentRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Delta  int64  `json:"delta" validate:"ne=0"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type settleRequest struct {
	Status string `json:"status" validate:"required,oneof=success failed"`
	Detail string `json:"detail" validate:"max=500"`
}

func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	adminID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req adjustmentRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	out, err := h.ledger.Adjust(r.Context(), engine.AdjustmentRequest{
		ActorID:   adminID,
		UserID:    uuid.MustParse(req.UserID),
		Delta:     req.Delta,
		Reason:    req.Reason,
		Reference: referenceFromRequest(r, adminID),
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance adjustment failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("balance adjusted",
		"admin_id", adminID, "user_id", req.UserID, "delta", req.Delta, "reference", out.Transaction.Reference)
	respondOutcome(w, out)
}

// Settle closes a pending entry by operator decision, for outcomes confirmed
// out of band with the provider. Failing an entry refunds its reservation.
func (h *AdminHandler) Settle(w http.ResponseWriter, r *http.Request) {
	adminID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req settleRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	reference := r.PathValue("reference")
	t, err := h.ledger.Settle(r.Context(), reference, domain.Status(req.Status), req.Detail)
	if err != nil {
		logging.FromContext(r.Context()).Warn("manual settlement failed", "reference", reference, "error", err)
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("entry settled by operator",
		"admin_id", adminID, "reference", reference, "status", t.Status)
	RespondSuccess(w, http.StatusOK, toTransactionDTO(t))
}
