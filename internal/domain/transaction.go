package domain

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindTransfer     Kind = "transfer"
	KindBankTransfer Kind = "bank_transfer"
	KindAirtime      Kind = "airtime"
	KindData         Kind = "data"
	KindCable        Kind = "cable"
	KindElectricity  Kind = "electricity"
	KindEducation    Kind = "education"
	KindBetting      Kind = "betting"
	KindGiftCard     Kind = "giftcard"
	KindFunding      Kind = "funding"
	KindAdjustment   Kind = "adjustment"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindTransfer, KindBankTransfer, KindAirtime, KindData, KindCable,
		KindElectricity, KindEducation, KindBetting, KindGiftCard, KindFunding, KindAdjustment:
		return true
	}
	return false
}

// IsBill reports whether k is a VTU bill-payment subtype.
func (k Kind) IsBill() bool {
	switch k {
	case KindAirtime, KindData, KindCable, KindElectricity, KindEducation, KindBetting:
		return true
	}
	return false
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusSuccess || s == StatusFailed
}

func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Transaction is one journal entry: a single attempted money movement.
type Transaction struct {
	ID                uuid.UUID
	Reference         string
	Kind              Kind
	Title             string
	Description       string
	OriginUserID      *uuid.UUID
	DestinationUserID *uuid.UUID
	Currency          Currency
	Amount            int64
	Fee               int64
	Status            Status
	Metadata          Metadata
	ErrorDetail       *string
	ProviderReference *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Debit is what the origin pays: nominal amount plus fee.
func (t *Transaction) Debit() int64 {
	return t.Amount + t.Fee
}

func (t *Transaction) IsOrigin(userID uuid.UUID) bool {
	return t.OriginUserID != nil && *t.OriginUserID == userID
}

func (t *Transaction) IsDestination(userID uuid.UUID) bool {
	return t.DestinationUserID != nil && *t.DestinationUserID == userID
}

// TransactionFilter narrows a journal query. Zero values mean "any".
type TransactionFilter struct {
	Participant *uuid.UUID
	Kind        Kind
	Status      Status
	Search      string
	From        *time.Time
	To          *time.Time
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type TransactionPage struct {
	Items   []Transaction
	Total   int
	Page    int
	Limit   int
	HasNext bool
}

type Totals struct {
	Income  int64
	Expense int64
	Count   int
}
