package domain

import (
	"time"

	"github.com/google/uuid"
)

type Currency string

const CurrencyNGN Currency = "NGN"

func (c Currency) IsValid() bool {
	return c == CurrencyNGN
}

// Wallet is one currency balance of a user account. Balance is in minor units (kobo).
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  Currency
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type VirtualAccount struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	AccountNumber     string
	BankName          string
	OrderRef          string
	ProviderReference *string
	CreatedAt         time.Time
}
