package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

// AdjustmentRequest is an operator credit (Delta > 0) or debit (Delta < 0).
type AdjustmentRequest struct {
	ActorID   uuid.UUID
	UserID    uuid.UUID
	Delta     int64
	Reason    string
	Reference string
}

func (e *Engine) Adjust(ctx context.Context, req AdjustmentRequest) (*Outcome, error) {
	if req.Delta == 0 {
		return nil, fmt.Errorf("Adjust: %w", domain.ErrInvalidAmount)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("Adjust: reason required: %w", domain.ErrValidation)
	}
	if _, err := e.wallets.EnsureWallet(ctx, req.UserID, domain.CurrencyNGN); err != nil {
		return nil, fmt.Errorf("Adjust: %w", err)
	}

	amount := req.Delta
	t := &domain.Transaction{
		Reference: req.Reference,
		Kind:      domain.KindAdjustment,
		Currency:  domain.CurrencyNGN,
		Status:    domain.StatusSuccess,
		Metadata:  domain.AdjustmentMetadata{Reason: req.Reason, ActorID: req.ActorID},
	}
	if amount > 0 {
		t.Title = "Balance credit"
		t.DestinationUserID = &req.UserID
	} else {
		amount = -amount
		t.Title = "Balance debit"
		t.OriginUserID = &req.UserID
	}
	t.Amount = amount
	t.Description = req.Reason
	if t.Reference == "" {
		t.Reference = NewReference("ADJ_")
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Adjust: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := e.journal.Create(ctx, tx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			tx.Rollback()
			return e.replay(ctx, t.Reference, func(existing *domain.Transaction) bool {
				meta, ok := existing.Metadata.(domain.AdjustmentMetadata)
				sameSide := existing.IsDestination(req.UserID)
				if req.Delta < 0 {
					sameSide = existing.IsOrigin(req.UserID)
				}
				return existing.Kind == domain.KindAdjustment && existing.Amount == amount &&
					ok && meta.ActorID == req.ActorID && sameSide
			})
		}
		return nil, fmt.Errorf("Adjust: %w", err)
	}

	entry, err := e.wallets.AdjustBalance(ctx, tx, domain.Adjustment{
		UserID:        req.UserID,
		Currency:      t.Currency,
		Delta:         req.Delta,
		TransactionID: t.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("Adjust: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Adjust: commit: %w", err)
	}

	logging.FromContext(ctx).Info("balance adjusted",
		"reference", t.Reference,
		"kind", t.Kind,
		"status", t.Status,
		"user_id", req.UserID,
		"delta", req.Delta,
		"actor_id", req.ActorID,
	)
	return &Outcome{Transaction: t, Balance: entry.BalanceAfter}, nil
}
