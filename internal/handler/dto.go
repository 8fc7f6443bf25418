package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

// Amounts travel as kobo integers; the *_display fields carry naira for clients.
type transactionDTO struct {
	ID                uuid.UUID       `json:"id"`
	Reference         string          `json:"reference"`
	Kind              string          `json:"kind"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	OriginUserID      *uuid.UUID      `json:"origin_user_id,omitempty"`
	DestinationUserID *uuid.UUID      `json:"destination_user_id,omitempty"`
	Currency          string          `json:"currency"`
	Amount            int64           `json:"amount"`
	AmountDisplay     string          `json:"amount_display"`
	Fee               int64           `json:"fee"`
	Status            string          `json:"status"`
	Metadata          domain.Metadata `json:"metadata,omitempty"`
	ErrorDetail       *string         `json:"error_detail,omitempty"`
	ProviderReference *string         `json:"provider_reference,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:                t.ID,
		Reference:         t.Reference,
		Kind:              string(t.Kind),
		Title:             t.Title,
		Description:       t.Description,
		OriginUserID:      t.OriginUserID,
		DestinationUserID: t.DestinationUserID,
		Currency:          string(t.Currency),
		Amount:            t.Amount,
		AmountDisplay:     provider.ToMajor(t.Amount).StringFixed(2),
		Fee:               t.Fee,
		Status:            string(t.Status),
		Metadata:          t.Metadata,
		ErrorDetail:       t.ErrorDetail,
		ProviderReference: t.ProviderReference,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

type outcomeDTO struct {
	Transaction transactionDTO `json:"transaction"`
	Balance     int64          `json:"balance"`
	Token       string         `json:"token,omitempty"`
	Replayed    bool           `json:"replayed,omitempty"`
}

func toOutcomeDTO(o *engine.Outcome) outcomeDTO {
	return outcomeDTO{
		Transaction: toTransactionDTO(o.Transaction),
		Balance:     o.Balance,
		Token:       o.Token,
		Replayed:    o.Replayed,
	}
}

// outcomeStatus is 202 while the provider has yet to confirm, 200 for a
// replay of a settled entry and 201 otherwise.
func outcomeStatus(o *engine.Outcome) int {
	switch {
	case o.Transaction.Status == domain.StatusPending:
		return http.StatusAccepted
	case o.Replayed:
		return http.StatusOK
	default:
		return http.StatusCreated
	}
}

// respondOutcome writes a completed money operation. A replay reports the
// stored entry as it stands: failed entries are errors, and pending ones are
// unconfirmed unless they are payouts the provider already accepted.
func respondOutcome(w http.ResponseWriter, o *engine.Outcome) {
	if o.Replayed {
		t := o.Transaction
		switch {
		case t.Status == domain.StatusFailed:
			respondEntryError(w, ErrTransactionFailed, t)
			return
		case t.Status == domain.StatusPending && !acceptedPayout(t):
			respondEntryError(w, ErrOutcomeUnconfirmed, t)
			return
		}
	}
	RespondSuccess(w, outcomeStatus(o), toOutcomeDTO(o))
}

func acceptedPayout(t *domain.Transaction) bool {
	return t.Kind == domain.KindBankTransfer && t.ProviderReference != nil
}

type walletDTO struct {
	ID             uuid.UUID `json:"id"`
	Currency       string    `json:"currency"`
	Balance        int64     `json:"balance"`
	BalanceDisplay string    `json:"balance_display"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toWalletDTO(w *domain.Wallet) walletDTO {
	return walletDTO{
		ID:             w.ID,
		Currency:       string(w.Currency),
		Balance:        w.Balance,
		BalanceDisplay: provider.ToMajor(w.Balance).StringFixed(2),
		UpdatedAt:      w.UpdatedAt,
	}
}

type virtualAccountDTO struct {
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	OrderRef      string    `json:"order_ref"`
	CreatedAt     time.Time `json:"created_at"`
}

func toVirtualAccountDTO(va *domain.VirtualAccount) virtualAccountDTO {
	return virtualAccountDTO{
		AccountNumber: va.AccountNumber,
		BankName:      va.BankName,
		OrderRef:      va.OrderRef,
		CreatedAt:     va.CreatedAt,
	}
}

type proposalDTO struct {
	ID              uuid.UUID  `json:"id"`
	SubmittedBy     uuid.UUID  `json:"submitted_by"`
	Name            string     `json:"name"`
	CardAmount      int64      `json:"card_amount"`
	Rate            int64      `json:"rate"`
	ImageURL        *string    `json:"image_url,omitempty"`
	Status          string     `json:"status"`
	VerifierID      *uuid.UUID `json:"verifier_id,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	TransactionID   *uuid.UUID `json:"transaction_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// The card code is never echoed back.
func toProposalDTO(p *domain.Proposal) proposalDTO {
	return proposalDTO{
		ID:              p.ID,
		SubmittedBy:     p.SubmittedBy,
		Name:            p.Name,
		CardAmount:      p.CardAmount,
		Rate:            p.Rate,
		ImageURL:        p.ImageURL,
		Status:          string(p.Status),
		VerifierID:      p.VerifierID,
		VerifiedAt:      p.VerifiedAt,
		RejectionReason: p.RejectionReason,
		TransactionID:   p.TransactionID,
		CreatedAt:       p.CreatedAt,
	}
}

type totalsDTO struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Count   int   `json:"count"`
}

func toTotalsDTO(t *domain.Totals) totalsDTO {
	return totalsDTO{Income: t.Income, Expense: t.Expense, Count: t.Count}
}

type pageDTO struct {
	Items   []transactionDTO `json:"items"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	HasNext bool             `json:"has_next"`
}

func toPageDTO(p *domain.TransactionPage) pageDTO {
	items := make([]transactionDTO, len(p.Items))
	for i := range p.Items {
		items[i] = toTransactionDTO(&p.Items[i])
	}
	return pageDTO{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit, HasNext: p.HasNext}
}
