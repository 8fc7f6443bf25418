package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

type SubmitGiftCardRequest struct {
	ActorID    uuid.UUID
	Name       string
	Code       string
	CardAmount int64
	Rate       int64
	ImageURL   *string
}

func (e *Engine) SubmitGiftCard(ctx context.Context, req SubmitGiftCardRequest) (*domain.Proposal, error) {
	if req.Rate <= 0 {
		return nil, fmt.Errorf("SubmitGiftCard: %w", domain.ErrInvalidAmount)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("SubmitGiftCard: name and code required: %w", domain.ErrValidation)
	}

	p := &domain.Proposal{
		ID:          uuid.New(),
		SubmittedBy: req.ActorID,
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		CardAmount:  req.CardAmount,
		Rate:        req.Rate,
		ImageURL:    req.ImageURL,
		Status:      domain.ProposalStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.proposals.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("SubmitGiftCard: %w", err)
	}
	logging.FromContext(ctx).Info("gift card submitted", "proposal_id", p.ID, "rate", p.Rate)
	return p, nil
}

// ApproveGiftCard pays the submitter the agreed rate from the verifier's
// wallet. The proposal decision, the success entry and both wallet changes
// commit in one database transaction.
func (e *Engine) ApproveGiftCard(ctx context.Context, proposalID, verifierID uuid.UUID) (*Outcome, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ApproveGiftCard: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := e.proposals.GetForUpdate(ctx, tx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("ApproveGiftCard: %w", err)
	}
	if p.Status != domain.ProposalStatusPending {
		return nil, fmt.Errorf("ApproveGiftCard: %w", domain.ErrProposalDecided)
	}
	if p.SubmittedBy == verifierID {
		return nil, fmt.Errorf("ApproveGiftCard: %w", domain.ErrSelfTransfer)
	}

	now := time.Now().UTC()
	t := &domain.Transaction{
		Reference:         "GIFT-" + p.ID.String(),
		Kind:              domain.KindGiftCard,
		Title:             "Gift card sale: " + p.Name,
		OriginUserID:      &verifierID,
		DestinationUserID: &p.SubmittedBy,
		Currency:          domain.CurrencyNGN,
		Amount:            p.Rate,
		Status:            domain.StatusSuccess,
		Metadata:          domain.GiftCardMetadata{ProposalID: p.ID, CardName: p.Name, VerifierID: verifierID},
	}
	if err := e.journal.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("ApproveGiftCard: %w", err)
	}

	entries, err := e.wallets.ApplyAll(ctx, tx,
		domain.Adjustment{UserID: verifierID, Currency: t.Currency, Delta: -p.Rate, TransactionID: t.ID},
		domain.Adjustment{UserID: p.SubmittedBy, Currency: t.Currency, Delta: p.Rate, TransactionID: t.ID},
	)
	if err != nil {
		return nil, fmt.Errorf("ApproveGiftCard: %w", err)
	}

	if err := e.proposals.Approve(ctx, tx, p.ID, verifierID, t.ID, now); err != nil {
		return nil, fmt.Errorf("ApproveGiftCard: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ApproveGiftCard: commit: %w", err)
	}

	var balance int64
	for _, le := range entries {
		if le.EntryType == domain.EntryTypeDebit {
			balance = le.BalanceAfter
		}
	}
	logging.FromContext(ctx).Info("gift card approved",
		"proposal_id", p.ID, "reference", t.Reference, "kind", t.Kind, "status", t.Status, "amount", p.Rate)
	return &Outcome{Transaction: t, Balance: balance}, nil
}

func (e *Engine) RejectGiftCard(ctx context.Context, proposalID, verifierID uuid.UUID, reason string) (*domain.Proposal, error) {
	if _, err := e.proposals.GetByID(ctx, proposalID); err != nil {
		return nil, fmt.Errorf("RejectGiftCard: %w", err)
	}
	if err := e.proposals.Reject(ctx, e.db, proposalID, verifierID, strings.TrimSpace(reason), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("RejectGiftCard: %w", err)
	}
	p, err := e.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("RejectGiftCard: %w", err)
	}
	logging.FromContext(ctx).Info("gift card rejected", "proposal_id", p.ID, "verifier_id", verifierID)
	return p, nil
}

// ListGiftCards returns proposals; submittedBy nil lists everyone's.
func (e *Engine) ListGiftCards(ctx context.Context, submittedBy *uuid.UUID, status domain.ProposalStatus, page domain.Page) ([]domain.Proposal, error) {
	out, err := e.proposals.List(ctx, submittedBy, status, page)
	if err != nil {
		return nil, fmt.Errorf("ListGiftCards: %w", err)
	}
	return out, nil
}
