package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
)

type TransferRequest struct {
	ActorID           uuid.UUID
	RecipientUsername string
	Amount            int64
	Note              string
	Reference         string
}

// InternalTransfer moves funds between two wallets. The entry is recorded
// pending first; both wallet changes and the success transition then commit
// together or not at all.
func (e *Engine) InternalTransfer(ctx context.Context, req TransferRequest) (*Outcome, error) {
	log := logging.FromContext(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("InternalTransfer: %w", domain.ErrInvalidAmount)
	}
	recipient, err := e.users.GetByUsername(ctx, strings.TrimSpace(req.RecipientUsername))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("InternalTransfer: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("InternalTransfer: %w", err)
	}
	if recipient.ID == req.ActorID {
		return nil, fmt.Errorf("InternalTransfer: %w", domain.ErrSelfTransfer)
	}
	same := func(existing *domain.Transaction) bool {
		return sameRequest(req.ActorID, domain.KindTransfer, req.Amount)(existing) && existing.IsDestination(recipient.ID)
	}
	if out, err := e.priorOutcome(ctx, req.Reference, same); out != nil || err != nil {
		return out, err
	}
	if err := e.precheck(ctx, req.ActorID, req.Amount); err != nil {
		return nil, fmt.Errorf("InternalTransfer: %w", err)
	}
	if _, err := e.wallets.EnsureWallet(ctx, recipient.ID, domain.CurrencyNGN); err != nil {
		return nil, fmt.Errorf("InternalTransfer: recipient wallet: %w", err)
	}

	reference := req.Reference
	if reference == "" {
		reference = NewReference("TRF_")
	}
	t := &domain.Transaction{
		Reference:         reference,
		Kind:              domain.KindTransfer,
		Title:             "Transfer to " + recipient.Username,
		Description:       req.Note,
		OriginUserID:      &req.ActorID,
		DestinationUserID: &recipient.ID,
		Currency:          domain.CurrencyNGN,
		Amount:            req.Amount,
		Metadata:          domain.TransferMetadata{RecipientUsername: recipient.Username, Note: req.Note},
	}
	if _, err := e.journal.CreatePending(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			return e.replay(ctx, reference, same)
		}
		return nil, fmt.Errorf("InternalTransfer: %w", err)
	}

	balance, err := e.commitTransfer(ctx, t, recipient.ID)
	if err != nil {
		e.abandon(ctx, t, err)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, &OpError{Reference: reference, Err: domain.ErrInsufficientFunds}
		}
		return nil, &OpError{Reference: reference, Err: fmt.Errorf("%w: %v", domain.ErrInternalFault, err)}
	}

	t.Status = domain.StatusSuccess
	log.Info("internal transfer settled",
		"reference", reference,
		"kind", t.Kind,
		"status", t.Status,
		"recipient_id", recipient.ID,
		"amount", req.Amount,
	)
	return &Outcome{Transaction: t, Balance: balance}, nil
}

func (e *Engine) commitTransfer(ctx context.Context, t *domain.Transaction, recipientID uuid.UUID) (int64, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("commitTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	entries, err := e.wallets.ApplyAll(ctx, tx,
		domain.Adjustment{UserID: *t.OriginUserID, Currency: t.Currency, Delta: -t.Debit(), TransactionID: t.ID},
		domain.Adjustment{UserID: recipientID, Currency: t.Currency, Delta: t.Amount, TransactionID: t.ID},
	)
	if err != nil {
		return 0, fmt.Errorf("commitTransfer: %w", err)
	}
	if _, err := e.journal.Transition(ctx, tx, t.ID, domain.StatusSuccess, nil); err != nil {
		return 0, fmt.Errorf("commitTransfer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commitTransfer: commit: %w", err)
	}

	var balance int64
	for _, le := range entries {
		if le.EntryType == domain.EntryTypeDebit {
			balance = le.BalanceAfter
		}
	}
	return balance, nil
}

type BankTransferRequest struct {
	ActorID       uuid.UUID
	Amount        int64
	BankCode      string
	BankName      string
	AccountNumber string
	AccountName   string
	Narration     string
	Reference     string
}

// BankTransfer pays out to an external bank account. Provider acceptance
// leaves the entry pending; the final status arrives by notification or Resolve.
func (e *Engine) BankTransfer(ctx context.Context, req BankTransferRequest) (*Outcome, error) {
	log := logging.FromContext(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("BankTransfer: %w", domain.ErrInvalidAmount)
	}
	if req.BankCode == "" || req.AccountNumber == "" {
		return nil, fmt.Errorf("BankTransfer: bank code and account number required: %w", domain.ErrValidation)
	}

	same := sameRequest(req.ActorID, domain.KindBankTransfer, req.Amount)
	if out, err := e.priorOutcome(ctx, req.Reference, same); out != nil || err != nil {
		return out, err
	}

	fee, err := e.payouts.GetTransferFee(ctx, req.Amount)
	if err != nil {
		log.Warn("transfer fee quote failed, using default", "error", err, "fee", e.defaultFee)
		fee = e.defaultFee
	}
	if err := e.precheck(ctx, req.ActorID, req.Amount+fee); err != nil {
		return nil, fmt.Errorf("BankTransfer: %w", err)
	}

	reference := req.Reference
	if reference == "" {
		reference = NewReference("BT_")
	}
	title := "Bank transfer"
	if req.AccountName != "" {
		title = "Transfer to " + req.AccountName
	}
	t := &domain.Transaction{
		Reference:    reference,
		Kind:         domain.KindBankTransfer,
		Title:        title,
		Description:  req.Narration,
		OriginUserID: &req.ActorID,
		Currency:     domain.CurrencyNGN,
		Amount:       req.Amount,
		Fee:          fee,
		Metadata: domain.BankTransferMetadata{
			BankCode:      req.BankCode,
			BankName:      req.BankName,
			AccountNumber: req.AccountNumber,
			AccountName:   req.AccountName,
			Narration:     req.Narration,
		},
	}
	if _, err := e.journal.CreatePending(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			return e.replay(ctx, reference, same)
		}
		return nil, fmt.Errorf("BankTransfer: %w", err)
	}

	return e.providerCall(ctx, t, func(ctx context.Context) (*provider.Result, error) {
		return e.payouts.InitiateBankTransfer(ctx, provider.BankTransferRequest{
			Reference:       reference,
			BankCode:        req.BankCode,
			AccountNumber:   req.AccountNumber,
			Amount:          req.Amount,
			Narration:       req.Narration,
			BeneficiaryName: req.AccountName,
		})
	}, false)
}
