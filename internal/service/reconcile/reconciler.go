// Package reconcile applies provider notifications to the journal and the
// wallets. Every verified notification is recorded before it is processed so
// that a fault can be retried by the poller without the provider redelivering.
package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

type eventStore interface {
	Record(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, error)
	ClaimRetryable(ctx context.Context, limit, maxAttempts int, minAge time.Duration) ([]domain.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

type ledger interface {
	Fund(ctx context.Context, req engine.FundingRequest) (*engine.Outcome, error)
	Settle(ctx context.Context, reference string, to domain.Status, detail string) (*domain.Transaction, error)
	ResolveStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type accountLookup interface {
	GetByOrderRef(ctx context.Context, orderRef string) (*domain.VirtualAccount, error)
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// errUnmatched marks a notification that names nothing this system knows.
// It is recorded as failed but acknowledged, since redelivery cannot help.
var errUnmatched = errors.New("notification does not match any record")

type Reconciler struct {
	secret      []byte
	events      eventStore
	ledger      ledger
	accounts    accountLookup
	users       userLookup
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	staleAfter  time.Duration
}

func New(
	secret string,
	events eventStore,
	ledger ledger,
	accounts accountLookup,
	users userLookup,
	logger *slog.Logger,
	interval time.Duration,
	maxAttempts int,
	staleAfter time.Duration,
) *Reconciler {
	return &Reconciler{
		secret:      []byte(secret),
		events:      events,
		ledger:      ledger,
		accounts:    accounts,
		users:       users,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		staleAfter:  staleAfter,
	}
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeData struct {
	ID       json.RawMessage `json:"id"`
	TxRef    string          `json:"tx_ref"`
	FlwRef   string          `json:"flw_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type transferData struct {
	ID              json.RawMessage `json:"id"`
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	CompleteMessage string          `json:"complete_message"`
}

// HandleNotification verifies, records and applies one notification. A nil
// error means the provider may stop delivering it. Duplicates of a processed
// notification are acknowledged without effect.
func (r *Reconciler) HandleNotification(ctx context.Context, raw []byte, signature string) error {
	log := logging.FromContext(ctx)

	if !Verify(r.secret, raw, signature) {
		log.Warn("webhook signature mismatch")
		return fmt.Errorf("HandleNotification: %w", domain.ErrUnauthorized)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		return fmt.Errorf("HandleNotification: malformed notification: %w", domain.ErrValidation)
	}

	key, err := eventKey(env, raw)
	if err != nil {
		return fmt.Errorf("HandleNotification: %w", err)
	}

	event, err := r.events.Record(ctx, &domain.WebhookEvent{
		ID:        uuid.New(),
		EventKey:  key,
		EventType: env.Event,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("HandleNotification: %w: %v", domain.ErrInternalFault, err)
	}
	if event.Status == domain.WebhookEventStatusProcessed {
		log.Info("webhook already processed", "event_key", key, "event_type", env.Event)
		return nil
	}

	if err := r.processEvent(ctx, *event); err != nil {
		return fmt.Errorf("HandleNotification: %w", err)
	}
	return nil
}

// eventKey names a notification for deduplication. Events that move money must
// carry a provider id; others without one are keyed by a digest of the body.
func eventKey(env envelope, raw []byte) (string, error) {
	var ids struct {
		ID     json.RawMessage `json:"id"`
		Status string          `json:"status"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &ids); err != nil {
			return "", fmt.Errorf("malformed data: %w", domain.ErrValidation)
		}
	}
	id := rawID(ids.ID)
	if id == "" {
		if movesMoney(env.Event) {
			return "", fmt.Errorf("notification without id: %w", domain.ErrValidation)
		}
		sum := sha256.Sum256(raw)
		return env.Event + ":sha256:" + hex.EncodeToString(sum[:]), nil
	}
	// Transfer notifications can move through several states for one id.
	if env.Event == domain.EventTransferCompleted {
		return env.Event + ":" + id + ":" + strings.ToUpper(ids.Status), nil
	}
	return env.Event + ":" + id, nil
}

func movesMoney(event string) bool {
	return event == domain.EventChargeCompleted || event == domain.EventTransferCompleted
}

func rawID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

// processEvent applies a recorded event and stores the result. Unmatched
// notifications are acknowledged; anything else failing is reported so the
// provider and the poller retry.
func (r *Reconciler) processEvent(ctx context.Context, event domain.WebhookEvent) error {
	log := logging.FromContext(ctx).With("webhook_event_id", event.ID, "event_type", event.EventType)

	err := r.apply(ctx, event)
	if err == nil {
		if err := r.events.MarkProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("processEvent: %w: %v", domain.ErrInternalFault, err)
		}
		return nil
	}

	if markErr := r.events.MarkFailed(ctx, event.ID, err); markErr != nil {
		log.Error("failed to mark webhook event failed", "error", markErr)
	}
	if permanent(err) {
		log.Warn("webhook event not applied", "error", err)
		return nil
	}
	log.Error("webhook event processing failed", "error", err)
	return fmt.Errorf("processEvent: %w: %v", domain.ErrInternalFault, err)
}

// permanent reports failures that redelivery cannot fix.
func permanent(err error) bool {
	return errors.Is(err, errUnmatched) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidCurrency) ||
		errors.Is(err, domain.ErrInvalidTransition)
}

func (r *Reconciler) apply(ctx context.Context, event domain.WebhookEvent) error {
	var env envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return fmt.Errorf("apply: %w", domain.ErrValidation)
	}

	switch env.Event {
	case domain.EventChargeCompleted:
		return r.handleCharge(ctx, env.Data)
	case domain.EventTransferCompleted:
		return r.handleTransfer(ctx, env.Data)
	case domain.EventChargeFailed:
		var d chargeData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			logging.FromContext(ctx).Warn("charge failed, data unreadable", "error", err)
			return nil
		}
		logging.FromContext(ctx).Info("charge failed", "tx_ref", d.TxRef, "status", d.Status, "email", d.Customer.Email)
		return nil
	default:
		logging.FromContext(ctx).Info("unhandled webhook event", "event_type", env.Event)
		return nil
	}
}

func (r *Reconciler) handleCharge(ctx context.Context, raw json.RawMessage) error {
	var d chargeData
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("handleCharge: %w", domain.ErrValidation)
	}
	if !strings.EqualFold(d.Status, "successful") {
		logging.FromContext(ctx).Info("charge not successful, ignoring", "tx_ref", d.TxRef, "status", d.Status)
		return nil
	}
	if d.Currency != "" && !domain.Currency(strings.ToUpper(d.Currency)).IsValid() {
		return fmt.Errorf("handleCharge: currency %q: %w", d.Currency, domain.ErrInvalidCurrency)
	}
	amount, err := provider.ToMinor(d.Amount)
	if err != nil {
		return fmt.Errorf("handleCharge: %w", err)
	}

	userID, err := r.matchFunding(ctx, d.TxRef, d.Customer.Email)
	if err != nil {
		return fmt.Errorf("handleCharge: %w", err)
	}

	out, err := r.ledger.Fund(ctx, engine.FundingRequest{
		UserID:    userID,
		Amount:    amount,
		Reference: "FLW-FUND-" + rawID(d.ID),
		Details: domain.FundingMetadata{
			Channel:       "virtual_account",
			ProviderTxRef: d.TxRef,
			FlwRef:        d.FlwRef,
			PayerEmail:    d.Customer.Email,
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			return fmt.Errorf("handleCharge: %w: %v", domain.ErrValidation, err)
		}
		return fmt.Errorf("handleCharge: %w", err)
	}
	logging.FromContext(ctx).Info("funding reconciled",
		"reference", out.Transaction.Reference, "user_id", userID, "amount", amount, "replayed", out.Replayed)
	return nil
}

// matchFunding finds the credited user by virtual account order reference, then by email.
func (r *Reconciler) matchFunding(ctx context.Context, orderRef, email string) (uuid.UUID, error) {
	if orderRef != "" {
		va, err := r.accounts.GetByOrderRef(ctx, orderRef)
		if err == nil {
			return va.UserID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	if email != "" {
		u, err := r.users.GetByEmail(ctx, email)
		if err == nil {
			return u.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	return uuid.Nil, fmt.Errorf("funding for tx_ref %q: %w", orderRef, errUnmatched)
}

func (r *Reconciler) handleTransfer(ctx context.Context, raw json.RawMessage) error {
	var d transferData
	if err := json.Unmarshal(raw, &d); err != nil || d.Reference == "" {
		return fmt.Errorf("handleTransfer: %w", domain.ErrValidation)
	}

	var to domain.Status
	switch strings.ToUpper(d.Status) {
	case provider.TransferSuccessful:
		to = domain.StatusSuccess
	case provider.TransferFailed:
		to = domain.StatusFailed
	default:
		logging.FromContext(ctx).Info("transfer still in progress", "reference", d.Reference, "status", d.Status)
		return nil
	}

	t, err := r.ledger.Settle(ctx, d.Reference, to, d.CompleteMessage)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("handleTransfer: reference %q: %w", d.Reference, errUnmatched)
		}
		return fmt.Errorf("handleTransfer: %w", err)
	}
	logging.FromContext(ctx).Info("transfer reconciled", "reference", t.Reference, "kind", t.Kind, "status", t.Status)
	return nil
}
