package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

type FundingRequest struct {
	UserID    uuid.UUID
	Amount    int64
	Reference string
	Details   domain.FundingMetadata
}

// Fund records money that arrived from outside, such as a virtual account
// deposit, as a success entry and credits the wallet in the same database
// transaction. A reference seen before is a no-op.
func (e *Engine) Fund(ctx context.Context, req FundingRequest) (*Outcome, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("Fund: %w", domain.ErrInvalidAmount)
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("Fund: reference required: %w", domain.ErrValidation)
	}
	if _, err := e.wallets.EnsureWallet(ctx, req.UserID, domain.CurrencyNGN); err != nil {
		return nil, fmt.Errorf("Fund: %w", err)
	}

	t := &domain.Transaction{
		Reference:         req.Reference,
		Kind:              domain.KindFunding,
		Title:             "Wallet funding",
		Description:       "Deposit via " + req.Details.Channel,
		DestinationUserID: &req.UserID,
		Currency:          domain.CurrencyNGN,
		Amount:            req.Amount,
		Status:            domain.StatusSuccess,
		Metadata:          req.Details,
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Fund: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := e.journal.Create(ctx, tx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			tx.Rollback()
			existing, err := e.journal.GetByReference(ctx, req.Reference)
			if err != nil {
				return nil, fmt.Errorf("Fund: %w", err)
			}
			logging.FromContext(ctx).Info("funding already recorded", "reference", req.Reference)
			return &Outcome{Transaction: existing, Replayed: true}, nil
		}
		return nil, fmt.Errorf("Fund: %w", err)
	}

	entry, err := e.wallets.AdjustBalance(ctx, tx, domain.Adjustment{
		UserID:        req.UserID,
		Currency:      t.Currency,
		Delta:         req.Amount,
		TransactionID: t.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("Fund: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Fund: commit: %w", err)
	}

	logging.FromContext(ctx).Info("wallet funded",
		"reference", t.Reference, "kind", t.Kind, "status", t.Status, "user_id", req.UserID, "amount", req.Amount)
	return &Outcome{Transaction: t, Balance: entry.BalanceAfter}, nil
}
