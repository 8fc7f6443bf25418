package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const walletColumns = `id, user_id, currency, balance, created_at, updated_at`

// WalletRepository is the ledger store. Balances only move through AdjustBalance,
// which is a single conditional UPDATE with a floor check.
type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) EnsureWallet(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (id, user_id, currency, balance)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id, currency) DO NOTHING`,
		uuid.New(), userID, currency,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("EnsureWallet: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("EnsureWallet: %w", err)
	}

	w, err := r.Get(ctx, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("EnsureWallet: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) Get(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND currency = $2`,
		userID, currency,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) GetBalance(ctx context.Context, userID uuid.UUID, currency domain.Currency) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 AND currency = $2`,
		userID, currency,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("GetBalance: %w", domain.ErrNotFound)
		}
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	return balance, nil
}

// AdjustBalance applies a signed delta inside tx and records the movement in
// ledger_entries. The floor check is part of the UPDATE predicate, so concurrent
// callers on the same wallet serialize on the row lock and never overdraw.
func (r *WalletRepository) AdjustBalance(ctx context.Context, tx *sql.Tx, adj domain.Adjustment) (*domain.LedgerEntry, error) {
	if adj.Delta == 0 {
		return nil, fmt.Errorf("AdjustBalance: %w", domain.ErrInvalidAmount)
	}

	var walletID uuid.UUID
	var after int64
	err := tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now()
		WHERE user_id = $2 AND currency = $3 AND balance + $1 >= 0
		RETURNING id, balance`,
		adj.Delta, adj.UserID, adj.Currency,
	).Scan(&walletID, &after)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("AdjustBalance: %w", r.explainMiss(ctx, tx, adj))
	}
	if err != nil {
		return nil, fmt.Errorf("AdjustBalance: %w", err)
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: adj.TransactionID,
		WalletID:      walletID,
		EntryType:     domain.EntryTypeCredit,
		Amount:        adj.Delta,
		BalanceBefore: after - adj.Delta,
		BalanceAfter:  after,
		CreatedAt:     time.Now().UTC(),
	}
	if adj.Delta < 0 {
		entry.EntryType = domain.EntryTypeDebit
		entry.Amount = -adj.Delta
	}

	if err := insertLedgerEntry(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("AdjustBalance: %w", err)
	}
	return entry, nil
}

// ApplyAll applies every adjustment in tx, ordered by user id so that two
// concurrent multi-wallet moves always lock rows in the same order.
func (r *WalletRepository) ApplyAll(ctx context.Context, tx *sql.Tx, adjs ...domain.Adjustment) ([]*domain.LedgerEntry, error) {
	ordered := make([]domain.Adjustment, len(adjs))
	copy(ordered, adjs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UserID.String() < ordered[j].UserID.String()
	})

	entries := make([]*domain.LedgerEntry, 0, len(ordered))
	for _, adj := range ordered {
		e, err := r.AdjustBalance(ctx, tx, adj)
		if err != nil {
			return nil, fmt.Errorf("ApplyAll: %s: %w", adj.UserID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *WalletRepository) explainMiss(ctx context.Context, tx *sql.Tx, adj domain.Adjustment) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1 AND currency = $2)`,
		adj.UserID, adj.Currency,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientFunds
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
