package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
)

// Outcome returns the entry for reference if actor took part in it. Entries of
// other users are reported as not found.
func (e *Engine) Outcome(ctx context.Context, reference string, actor uuid.UUID) (*domain.Transaction, error) {
	t, err := e.journal.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("Outcome: %w", err)
	}
	if !t.IsOrigin(actor) && !t.IsDestination(actor) {
		return nil, fmt.Errorf("Outcome: %w", domain.ErrNotFound)
	}
	return t, nil
}

// Settle is the single path by which a pending entry reaches a terminal state
// outside its originating request: provider notifications, provider status
// checks and operator decisions. Failing an entry refunds its reservation.
func (e *Engine) Settle(ctx context.Context, reference string, to domain.Status, detail string) (*domain.Transaction, error) {
	var d *string
	if detail != "" {
		d = &detail
	}
	t, _, err := e.settle(ctx, reference, to, d)
	if err != nil {
		return nil, fmt.Errorf("Settle: %w", err)
	}
	return t, nil
}

// Resolve asks the payout provider for the state of a pending bank transfer
// and settles the entry if the answer is final.
func (e *Engine) Resolve(ctx context.Context, reference string, actor uuid.UUID) (*domain.Transaction, error) {
	t, err := e.Outcome(ctx, reference, actor)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	t, err = e.resolve(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}
	return t, nil
}

// ResolveStale runs Resolve for bank transfers still pending since before
// cutoff, covering completion notifications that never arrived. It returns
// how many reached a final status.
func (e *Engine) ResolveStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	pending, err := e.journal.ListPending(ctx, domain.KindBankTransfer, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("ResolveStale: %w", err)
	}

	settled := 0
	for i := range pending {
		t, err := e.resolve(ctx, &pending[i])
		if err != nil {
			logging.FromContext(ctx).Warn("stale transfer still unresolved", "reference", pending[i].Reference, "error", err)
			continue
		}
		if t.Status.IsTerminal() {
			settled++
		}
	}
	return settled, nil
}

func (e *Engine) resolve(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if t.Status.IsTerminal() {
		return t, nil
	}
	if t.Kind != domain.KindBankTransfer || t.ProviderReference == nil {
		return t, nil
	}

	st, err := e.payouts.VerifyTransfer(ctx, *t.ProviderReference)
	if err != nil {
		return nil, &OpError{Reference: t.Reference, Err: fmt.Errorf("%w: %v", domain.ErrUnconfirmed, err)}
	}
	logging.FromContext(ctx).Info("transfer status checked", "reference", t.Reference, "provider_status", st.Status)

	switch st.Status {
	case provider.TransferSuccessful:
		return e.Settle(ctx, t.Reference, domain.StatusSuccess, "")
	case provider.TransferFailed:
		return e.Settle(ctx, t.Reference, domain.StatusFailed, st.Message)
	default:
		return t, nil
	}
}
