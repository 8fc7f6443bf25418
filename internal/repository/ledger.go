package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const ledgerColumns = `id, transaction_id, wallet_id, entry_type, amount,
	balance_before, balance_after, created_at`

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, transaction_id, wallet_id, entry_type, amount,
			balance_before, balance_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.TransactionID, entry.WalletID, entry.EntryType, entry.Amount,
		entry.BalanceBefore, entry.BalanceAfter, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insertLedgerEntry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE transaction_id = $1 ORDER BY created_at, id`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByTransactionID: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByTransactionID: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByTransactionID: rows: %w", err)
	}
	return entries, nil
}

// SumByWallet returns the signed sum of all movements on a wallet. It equals
// the wallet balance when every mutation went through AdjustBalance.
func (r *LedgerRepository) SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
		FROM ledger_entries WHERE wallet_id = $1`, walletID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("SumByWallet: %w", err)
	}
	return sum, nil
}

// NetDebit is what transactionID has taken out of userID's wallets so far:
// debits minus credits. A reversal refunds exactly this, so an entry that never
// reserved funds is never credited back.
func (r *LedgerRepository) NetDebit(ctx context.Context, q Querier, transactionID, userID uuid.UUID) (int64, error) {
	var net int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN le.entry_type = 'debit' THEN le.amount ELSE -le.amount END), 0)
		FROM ledger_entries le JOIN wallets w ON w.id = le.wallet_id
		WHERE le.transaction_id = $1 AND w.user_id = $2`,
		transactionID, userID,
	).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("NetDebit: %w", err)
	}
	return net, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(
		&e.ID, &e.TransactionID, &e.WalletID, &e.EntryType, &e.Amount,
		&e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
