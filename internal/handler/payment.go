package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

type paymentEngine interface {
	InternalTransfer(ctx context.Context, req engine.TransferRequest) (*engine.Outcome, error)
	BankTransfer(ctx context.Context, req engine.BankTransferRequest) (*engine.Outcome, error)
}

type PaymentHandler struct {
	payments paymentEngine
}

func NewPaymentHandler(payments paymentEngine) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createTransferRequest struct {
	RecipientUsername string `json:"recipient_username" validate:"required,max=64"`
	Amount            int64  `json:"amount" validate:"gt=0"`
	Note              string `json:"note" validate:"max=140"`
}

type createBankTransferRequest struct {
	Amount        int64  `json:"amount" validate:"gt=0"`
	BankCode      string `json:"bank_code" validate:"required,numeric"`
	BankName      string `json:"bank_name" validate:"max=100"`
	AccountNumber string `json:"account_number" validate:"required,nuban"`
	AccountName   string `json:"account_name" validate:"max=100"`
	Narration     string `json:"narration" validate:"max=100"`
}

func (h *PaymentHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createTransferRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	out, err := h.payments.InternalTransfer(r.Context(), engine.TransferRequest{
		ActorID:           userID,
		RecipientUsername: strings.TrimPrefix(req.RecipientUsername, "@"),
		Amount:            req.Amount,
		Note:              req.Note,
		Reference:         referenceFromRequest(r, userID),
	})
	if err != nil {
		log.Warn("internal transfer failed", "error", err)
		RespondOutcomeError(w, err, out)
		return
	}

	respondOutcome(w, out)
}

func (h *PaymentHandler) BankTransfer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createBankTransferRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	out, err := h.payments.BankTransfer(r.Context(), engine.BankTransferRequest{
		ActorID:       userID,
		Amount:        req.Amount,
		BankCode:      req.BankCode,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		Narration:     req.Narration,
		Reference:     referenceFromRequest(r, userID),
	})
	if err != nil {
		log.Warn("bank transfer failed", "error", err)
		RespondOutcomeError(w, err, out)
		return
	}

	respondOutcome(w, out)
}
