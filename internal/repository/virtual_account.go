package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const virtualAccountColumns = `id, user_id, account_number, bank_name, order_ref, provider_reference, created_at`

type VirtualAccountRepository struct {
	db *sqlx.DB
}

func NewVirtualAccountRepository(db *sqlx.DB) *VirtualAccountRepository {
	return &VirtualAccountRepository{db: db}
}

func (r *VirtualAccountRepository) Create(ctx context.Context, va *domain.VirtualAccount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO virtual_accounts (id, user_id, account_number, bank_name, order_ref, provider_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		va.ID, va.UserID, va.AccountNumber, va.BankName, va.OrderRef, va.ProviderReference, va.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateReference)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *VirtualAccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.VirtualAccount, error) {
	return r.getOne(ctx, "GetByUserID", `SELECT `+virtualAccountColumns+` FROM virtual_accounts WHERE user_id = $1`, userID)
}

func (r *VirtualAccountRepository) GetByOrderRef(ctx context.Context, orderRef string) (*domain.VirtualAccount, error) {
	return r.getOne(ctx, "GetByOrderRef", `SELECT `+virtualAccountColumns+` FROM virtual_accounts WHERE order_ref = $1`, orderRef)
}

func (r *VirtualAccountRepository) getOne(ctx context.Context, op, query string, arg any) (*domain.VirtualAccount, error) {
	var va domain.VirtualAccount
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&va.ID, &va.UserID, &va.AccountNumber, &va.BankName, &va.OrderRef, &va.ProviderReference, &va.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &va, nil
}
