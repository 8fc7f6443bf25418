package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// LedgerEntry records one applied balance delta against a wallet.
type LedgerEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	WalletID      uuid.UUID
	EntryType     EntryType
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}

// Adjustment is a signed balance change applied by the ledger store.
type Adjustment struct {
	UserID        uuid.UUID
	Currency      Currency
	Delta         int64
	TransactionID uuid.UUID
}
