package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

// SeedUser inserts a user with the given username and role. Email is derived
// from the username.
func SeedUser(t *testing.T, db *sqlx.DB, username string, role domain.Role) *domain.User {
	t.Helper()

	u := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     strings.ToLower(username) + "@example.com",
		Name:      username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO users (id, username, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.Name, u.Role, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// SeedWallet creates the NGN wallet for userID holding balance kobo.
func SeedWallet(t *testing.T, db *sqlx.DB, userID uuid.UUID, balance int64) *domain.Wallet {
	t.Helper()

	w := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  domain.CurrencyNGN,
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	}
	w.UpdatedAt = w.CreatedAt
	_, err := db.Exec(
		`INSERT INTO wallets (id, user_id, currency, balance, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Currency, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet for %s: %v", userID, err)
	}
	return w
}

// SeedFundedUser is SeedUser plus SeedWallet.
func SeedFundedUser(t *testing.T, db *sqlx.DB, username string, balance int64) *domain.User {
	t.Helper()
	u := SeedUser(t, db, username, domain.RoleUser)
	SeedWallet(t, db, u.ID, balance)
	return u
}

func SeedVirtualAccount(t *testing.T, db *sqlx.DB, userID uuid.UUID, orderRef string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO virtual_accounts (id, user_id, account_number, bank_name, order_ref) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, "9900112233", "Wema Bank", orderRef,
	)
	if err != nil {
		t.Fatalf("seed virtual account for %s: %v", userID, err)
	}
}

func GetBalance(t *testing.T, db *sqlx.DB, userID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.GetContext(context.Background(), &balance,
		`SELECT balance FROM wallets WHERE user_id = $1 AND currency = 'NGN'`, userID)
	if err != nil {
		t.Fatalf("get balance for %s: %v", userID, err)
	}
	return balance
}

func GetStatus(t *testing.T, db *sqlx.DB, reference string) domain.Status {
	t.Helper()

	var status string
	err := db.GetContext(context.Background(), &status, `SELECT status FROM transactions WHERE reference = $1`, reference)
	if err != nil {
		t.Fatalf("get status for %s: %v", reference, err)
	}
	return domain.Status(status)
}

func CountLedgerEntries(t *testing.T, db *sqlx.DB, transactionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.GetContext(context.Background(), &count,
		`SELECT COUNT(*) FROM ledger_entries WHERE transaction_id = $1`, transactionID)
	if err != nil {
		t.Fatalf("count ledger entries for %s: %v", transactionID, err)
	}
	return count
}

func CountTransactions(t *testing.T, db *sqlx.DB, reference string) int {
	t.Helper()

	var count int
	err := db.GetContext(context.Background(), &count, `SELECT COUNT(*) FROM transactions WHERE reference = $1`, reference)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", reference, err)
	}
	return count
}
