// Package engine moves money. Provider-backed operations follow
// reserve, call, then settle or compensate; internal moves apply every
// wallet change in one database transaction.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
	"github.com/josh-kwaku/wallet-ledger/internal/repository"
)

type walletStore interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
	GetBalance(ctx context.Context, userID uuid.UUID, currency domain.Currency) (int64, error)
	AdjustBalance(ctx context.Context, tx *sql.Tx, adj domain.Adjustment) (*domain.LedgerEntry, error)
	ApplyAll(ctx context.Context, tx *sql.Tx, adjs ...domain.Adjustment) ([]*domain.LedgerEntry, error)
}

type ledgerReader interface {
	NetDebit(ctx context.Context, q repository.Querier, transactionID, userID uuid.UUID) (int64, error)
}

type journal interface {
	CreatePending(ctx context.Context, t *domain.Transaction) (uuid.UUID, error)
	Create(ctx context.Context, q repository.Querier, t *domain.Transaction) error
	Transition(ctx context.Context, q repository.Querier, id uuid.UUID, to domain.Status, detail *string) (bool, error)
	SetProviderReference(ctx context.Context, q repository.Querier, id uuid.UUID, ref string) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, reference string) (*domain.Transaction, error)
	ListPending(ctx context.Context, kind domain.Kind, cutoff time.Time, limit int) ([]domain.Transaction, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type proposalStore interface {
	Create(ctx context.Context, p *domain.Proposal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Proposal, error)
	List(ctx context.Context, submittedBy *uuid.UUID, status domain.ProposalStatus, page domain.Page) ([]domain.Proposal, error)
	Approve(ctx context.Context, tx *sql.Tx, id, verifierID, transactionID uuid.UUID, at time.Time) error
	Reject(ctx context.Context, q repository.Querier, id, verifierID uuid.UUID, reason string, at time.Time) error
}

type vtuGateway interface {
	SendAirtime(ctx context.Context, req provider.AirtimeRequest) (*provider.Result, error)
	SendData(ctx context.Context, req provider.DataRequest) (*provider.Result, error)
	PayBill(ctx context.Context, req provider.BillRequest) (*provider.Result, error)
}

type payoutGateway interface {
	InitiateBankTransfer(ctx context.Context, req provider.BankTransferRequest) (*provider.Result, error)
	GetTransferFee(ctx context.Context, amount int64) (int64, error)
	VerifyTransfer(ctx context.Context, providerRef string) (*provider.TransferStatus, error)
}

type Engine struct {
	db         *sqlx.DB
	wallets    walletStore
	ledger     ledgerReader
	journal    journal
	users      userDirectory
	proposals  proposalStore
	vtu        vtuGateway
	payouts    payoutGateway
	defaultFee int64
}

type Deps struct {
	DB        *sqlx.DB
	Wallets   walletStore
	Ledger    ledgerReader
	Journal   journal
	Users     userDirectory
	Proposals proposalStore
	VTU       vtuGateway
	Payouts   payoutGateway
	// DefaultTransferFee is charged on bank transfers when the fee quote fails.
	DefaultTransferFee int64
}

func New(d Deps) *Engine {
	return &Engine{
		db:         d.DB,
		wallets:    d.Wallets,
		ledger:     d.Ledger,
		journal:    d.Journal,
		users:      d.Users,
		proposals:  d.Proposals,
		vtu:        d.VTU,
		payouts:    d.Payouts,
		defaultFee: d.DefaultTransferFee,
	}
}

// Outcome is what a money operation reports back. Balance is the actor's
// balance right after the operation's own ledger movement.
type Outcome struct {
	Transaction *domain.Transaction
	Balance     int64
	Token       string
	Replayed    bool
}

// OpError ties a failure to the journal entry it happened on so callers can
// query the final state later.
type OpError struct {
	Reference string
	Err       error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reference, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func NewReference(prefix string) string {
	return fmt.Sprintf("%s%d_%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}

func (e *Engine) precheck(ctx context.Context, userID uuid.UUID, need int64) error {
	balance, err := e.wallets.GetBalance(ctx, userID, domain.CurrencyNGN)
	if err != nil {
		return fmt.Errorf("precheck: %w", err)
	}
	if balance < need {
		return fmt.Errorf("precheck: %w", domain.ErrInsufficientFunds)
	}
	return nil
}

// replay resolves a DuplicateReference. The stored entry must describe the same
// request; anything else is a reference collision.
func (e *Engine) replay(ctx context.Context, reference string, same func(*domain.Transaction) bool) (*Outcome, error) {
	existing, err := e.journal.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if !same(existing) {
		return nil, fmt.Errorf("replay: %s belongs to a different request: %w", reference, domain.ErrDuplicateReference)
	}
	logging.FromContext(ctx).Info("idempotent replay", "reference", reference, "status", existing.Status)

	out := &Outcome{Transaction: existing, Replayed: true}
	if existing.OriginUserID != nil {
		if b, err := e.wallets.GetBalance(ctx, *existing.OriginUserID, existing.Currency); err == nil {
			out.Balance = b
		}
	}
	return out, nil
}

// priorOutcome replays a caller-supplied reference that is already journaled.
// It runs before balance checks and fee quotes, so a retry whose first attempt
// spent the funds still gets the stored outcome. A nil Outcome with a nil
// error means the reference is new.
func (e *Engine) priorOutcome(ctx context.Context, reference string, same func(*domain.Transaction) bool) (*Outcome, error) {
	if reference == "" {
		return nil, nil
	}
	out, err := e.replay(ctx, reference, same)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return out, err
}

func sameRequest(actor uuid.UUID, kind domain.Kind, amount int64) func(*domain.Transaction) bool {
	return func(t *domain.Transaction) bool {
		return t.Kind == kind && t.Amount == amount && t.IsOrigin(actor)
	}
}

// reserve debits the origin for t inside its own database transaction.
func (e *Engine) reserve(ctx context.Context, t *domain.Transaction) (*domain.LedgerEntry, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reserve: begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := e.wallets.AdjustBalance(ctx, tx, domain.Adjustment{
		UserID:        *t.OriginUserID,
		Currency:      t.Currency,
		Delta:         -t.Debit(),
		TransactionID: t.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("reserve: commit: %w", err)
	}
	return entry, nil
}

// abandon marks an entry that never moved money as failed.
func (e *Engine) abandon(ctx context.Context, t *domain.Transaction, cause error) {
	detail := cause.Error()
	if _, err := e.journal.Transition(ctx, e.db, t.ID, domain.StatusFailed, &detail); err != nil {
		logging.FromContext(ctx).Error("failed to close abandoned entry, left pending",
			"reference", t.Reference, "error", err)
	}
	t.Status = domain.StatusFailed
	t.ErrorDetail = &detail
}

// settle moves a pending entry to its final status. On failure the origin gets
// back whatever this entry debited. The row lock plus the applied flag from
// Transition make the refund happen at most once however many callers race.
func (e *Engine) settle(ctx context.Context, reference string, to domain.Status, detail *string) (*domain.Transaction, int64, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("settle: begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := e.journal.GetForUpdate(ctx, tx, reference)
	if err != nil {
		return nil, 0, fmt.Errorf("settle: %w", err)
	}

	applied, err := e.journal.Transition(ctx, tx, t.ID, to, detail)
	if err != nil {
		return nil, 0, fmt.Errorf("settle: %w", err)
	}

	var balance int64
	if applied && to == domain.StatusFailed && t.OriginUserID != nil {
		refunded, b, err := e.compensate(ctx, tx, t)
		if err != nil {
			return nil, 0, fmt.Errorf("settle: %w", err)
		}
		balance = b
		if refunded > 0 {
			logging.FromContext(ctx).Info("reservation reversed", "reference", reference, "amount", refunded)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("settle: commit: %w", err)
	}

	if applied {
		t.Status = to
		if detail != nil {
			t.ErrorDetail = detail
		}
	}
	logging.FromContext(ctx).Info("entry settled",
		"reference", reference, "kind", t.Kind, "status", t.Status, "applied", applied)
	return t, balance, nil
}

func (e *Engine) compensate(ctx context.Context, tx *sql.Tx, t *domain.Transaction) (int64, int64, error) {
	net, err := e.ledger.NetDebit(ctx, tx, t.ID, *t.OriginUserID)
	if err != nil {
		return 0, 0, fmt.Errorf("compensate: %w", err)
	}
	if net <= 0 {
		return 0, 0, nil
	}
	entry, err := e.wallets.AdjustBalance(ctx, tx, domain.Adjustment{
		UserID:        *t.OriginUserID,
		Currency:      t.Currency,
		Delta:         net,
		TransactionID: t.ID,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("compensate: %w", err)
	}
	return net, entry.BalanceAfter, nil
}

// providerCall is the shared tail of every provider-backed operation: reserve,
// call, then settle, compensate or leave pending depending on the answer.
func (e *Engine) providerCall(ctx context.Context, t *domain.Transaction, call func(context.Context) (*provider.Result, error), settleOnAccept bool) (*Outcome, error) {
	log := logging.FromContext(ctx).With("reference", t.Reference, "kind", t.Kind)

	reserved, err := e.reserve(ctx, t)
	if err != nil {
		e.abandon(ctx, t, err)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, &OpError{Reference: t.Reference, Err: domain.ErrInsufficientFunds}
		}
		return nil, &OpError{Reference: t.Reference, Err: fmt.Errorf("%w: %v", domain.ErrInternalFault, err)}
	}
	log.Info("funds reserved", "amount", t.Debit(), "balance", reserved.BalanceAfter)

	start := time.Now()
	res, err := call(ctx)
	log = log.With("duration_ms", time.Since(start).Milliseconds())

	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			// Request never reached the provider.
			_, _, settleErr := e.settle(ctx, t.Reference, domain.StatusFailed, ptr(err.Error()))
			if settleErr != nil {
				log.Error("failed to reverse unsent request", "error", settleErr)
			}
			return nil, &OpError{Reference: t.Reference, Err: err}
		}
		log.Warn("provider outcome unconfirmed, entry left pending", "error", err)
		return &Outcome{Transaction: t, Balance: reserved.BalanceAfter},
			&OpError{Reference: t.Reference, Err: fmt.Errorf("%w: %v", domain.ErrUnconfirmed, err)}
	}

	if !res.Success {
		rejection := res.Err()
		settled, balance, err := e.settle(ctx, t.Reference, domain.StatusFailed, ptr(res.Message))
		if err != nil {
			log.Error("failed to compensate declined request", "error", err)
			return nil, &OpError{Reference: t.Reference, Err: fmt.Errorf("%w: %v", domain.ErrInternalFault, err)}
		}
		log.Info("provider declined, reservation reversed", "message", res.Message)
		return &Outcome{Transaction: settled, Balance: balance}, &OpError{Reference: t.Reference, Err: rejection}
	}

	if res.ProviderReference != "" {
		if err := e.journal.SetProviderReference(ctx, e.db, t.ID, res.ProviderReference); err != nil {
			log.Warn("failed to record provider reference", "error", err)
		} else {
			t.ProviderReference = &res.ProviderReference
		}
	}

	out := &Outcome{Transaction: t, Balance: reserved.BalanceAfter, Token: res.Token}
	if !settleOnAccept {
		log.Info("provider accepted, awaiting confirmation")
		return out, nil
	}

	settled, _, err := e.settle(ctx, t.Reference, domain.StatusSuccess, nil)
	if err != nil {
		// The provider has delivered; the entry stays pending for reconciliation.
		log.Error("failed to settle delivered request", "error", err)
		return out, &OpError{Reference: t.Reference, Err: fmt.Errorf("%w: %v", domain.ErrUnconfirmed, err)}
	}
	settled.ProviderReference = t.ProviderReference
	out.Transaction = settled
	log.Info("provider confirmed, entry settled")
	return out, nil
}

func ptr[T any](v T) *T {
	return &v
}
