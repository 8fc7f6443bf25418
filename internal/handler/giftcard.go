package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/auth"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

type giftCardEngine interface {
	SubmitGiftCard(ctx context.Context, req engine.SubmitGiftCardRequest) (*domain.Proposal, error)
	ApproveGiftCard(ctx context.Context, proposalID, verifierID uuid.UUID) (*engine.Outcome, error)
	RejectGiftCard(ctx context.Context, proposalID, verifierID uuid.UUID, reason string) (*domain.Proposal, error)
	ListGiftCards(ctx context.Context, submittedBy *uuid.UUID, status domain.ProposalStatus, page domain.Page) ([]domain.Proposal, error)
}

type GiftCardHandler struct {
	giftcards giftCardEngine
}

func NewGiftCardHandler(giftcards giftCardEngine) *GiftCardHandler {
	return &GiftCardHandler{giftcards: giftcards}
}

type submitGiftCardRequest struct {
	Name       string  `json:"name" validate:"required,max=100"`
	Code       string  `json:"code" validate:"required,max=128"`
	CardAmount int64   `json:"card_amount" validate:"gt=0"`
	Rate       int64   `json:"rate" validate:"gt=0"`
	ImageURL   *string `json:"image_url" validate:"omitempty,url"`
}

type rejectGiftCardRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *GiftCardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req submitGiftCardRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.giftcards.SubmitGiftCard(r.Context(), engine.SubmitGiftCardRequest{
		ActorID:    userID,
		Name:       req.Name,
		Code:       req.Code,
		CardAmount: req.CardAmount,
		Rate:       req.Rate,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("gift card submission failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toProposalDTO(p))
}

// List shows verifiers every proposal and everyone else only their own.
func (h *GiftCardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var fields []FieldError
	status := domain.ProposalStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.ProposalStatusPending, domain.ProposalStatusApproved, domain.ProposalStatusRejected:
	default:
		fields = append(fields, FieldError{Field: "status", Message: "must be one of: pending approved rejected"})
	}
	page := domain.Page{}
	page.Page, fields = parseIntParam(r.URL.Query().Get("page"), "page", fields)
	page.Limit, fields = parseIntParam(r.URL.Query().Get("limit"), "limit", fields)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	var submittedBy *uuid.UUID
	if !auth.HasRole(r.Context(), domain.RoleVerifier) {
		submittedBy = &userID
	}

	proposals, err := h.giftcards.ListGiftCards(r.Context(), submittedBy, status, page)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	dtos := make([]proposalDTO, len(proposals))
	for i := range proposals {
		dtos[i] = toProposalDTO(&proposals[i])
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *GiftCardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	verifierID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	proposalID, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	out, err := h.giftcards.ApproveGiftCard(r.Context(), proposalID, verifierID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("gift card approval failed", "proposal_id", proposalID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toOutcomeDTO(out))
}

func (h *GiftCardHandler) Reject(w http.ResponseWriter, r *http.Request) {
	verifierID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	proposalID, appErr := uuidFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req rejectGiftCardRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.giftcards.RejectGiftCard(r.Context(), proposalID, verifierID, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Warn("gift card rejection failed", "proposal_id", proposalID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toProposalDTO(p))
}
