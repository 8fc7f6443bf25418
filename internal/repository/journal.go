package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const transactionColumns = `id, reference, kind, title, description,
	origin_user_id, destination_user_id, currency, amount, fee, status,
	metadata, error_detail, provider_reference, created_at, updated_at`

// JournalRepository stores transaction entries. The unique index on reference
// is the only duplicate-submission guard; there is no read-before-insert.
type JournalRepository struct {
	db *sqlx.DB
}

func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// CreatePending inserts t as pending and returns its id.
func (r *JournalRepository) CreatePending(ctx context.Context, t *domain.Transaction) (uuid.UUID, error) {
	t.Status = domain.StatusPending
	if err := r.Create(ctx, r.db, t); err != nil {
		return uuid.Nil, fmt.Errorf("CreatePending: %w", err)
	}
	return t.ID, nil
}

// Create inserts t with whatever status it carries. Funding and other entries
// that are settled in the same database transaction are created directly terminal.
func (r *JournalRepository) Create(ctx context.Context, q Querier, t *domain.Transaction) error {
	if t.Amount <= 0 || t.Fee < 0 {
		return fmt.Errorf("Create: %w", domain.ErrInvalidAmount)
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("Create: unknown kind %q: %w", t.Kind, domain.ErrValidation)
	}
	meta, err := domain.EncodeMetadata(t.Kind, t.Metadata)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	now := time.Now().UTC()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Currency == "" {
		t.Currency = domain.CurrencyNGN
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = q.ExecContext(ctx,
		`INSERT INTO transactions (
			id, reference, kind, title, description,
			origin_user_id, destination_user_id, currency, amount, fee, status,
			metadata, error_detail, provider_reference, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, t.Reference, t.Kind, t.Title, t.Description,
		nullUUID(t.OriginUserID), nullUUID(t.DestinationUserID), t.Currency, t.Amount, t.Fee, t.Status,
		string(meta), t.ErrorDetail, t.ProviderReference, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %s: %w", t.Reference, domain.ErrDuplicateReference)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Transition moves a pending entry to a terminal status. It reports whether this
// call performed the change: replaying the same terminal status returns
// (false, nil) so callers can skip side effects such as compensation.
func (r *JournalRepository) Transition(ctx context.Context, q Querier, id uuid.UUID, to domain.Status, detail *string) (bool, error) {
	if !to.IsTerminal() {
		return false, fmt.Errorf("Transition: to %q: %w", to, domain.ErrInvalidTransition)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE transactions SET status = $1, error_detail = COALESCE($2, error_detail), updated_at = now()
		WHERE id = $3 AND status = 'pending'`,
		to, detail, id,
	)
	if err != nil {
		return false, fmt.Errorf("Transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Transition: rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var current domain.Status
	err = q.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("Transition: %w", domain.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("Transition: %w", err)
	}
	if current == to {
		return false, nil
	}
	return false, fmt.Errorf("Transition: %s to %s: %w", current, to, domain.ErrInvalidTransition)
}

// SetProviderReference annotates an entry regardless of status.
func (r *JournalRepository) SetProviderReference(ctx context.Context, q Querier, id uuid.UUID, ref string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE transactions SET provider_reference = $1, updated_at = now() WHERE id = $2`,
		ref, id,
	)
	if err != nil {
		return fmt.Errorf("SetProviderReference: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetProviderReference: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("SetProviderReference: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *JournalRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReference: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByReference: %w", err)
	}
	return t, nil
}

// GetForUpdate locks the entry row for the rest of tx.
func (r *JournalRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, reference string) (*domain.Transaction, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return t, nil
}

// ListPending returns pending entries of kind created before cutoff that carry a
// provider reference, oldest first.
func (r *JournalRepository) ListPending(ctx context.Context, kind domain.Kind, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	var rows []transactionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE status = 'pending' AND kind = $1 AND created_at < $2
			AND provider_reference IS NOT NULL
		ORDER BY created_at LIMIT $3`,
		kind, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	return toTransactions(rows)
}

// Find returns one page of entries matching f, newest first.
func (r *JournalRepository) Find(ctx context.Context, f domain.TransactionFilter, p domain.Page) (*domain.TransactionPage, error) {
	p = p.Normalize()
	where, args := buildFilter(f)

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM transactions`+where), args...); err != nil {
		return nil, fmt.Errorf("Find: count: %w", err)
	}

	var rows []transactionRow
	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, append(args, p.Limit, p.Offset())...); err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}

	items, err := toTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}

	return &domain.TransactionPage{
		Items:   items,
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
		HasNext: p.Offset()+len(items) < total,
	}, nil
}

// Aggregate totals settled entries for participant in [from, to). Receiving side
// counts as income, which covers the submitter of a sold gift card; paying side
// counts as expense including fee.
func (r *JournalRepository) Aggregate(ctx context.Context, participant uuid.UUID, from, to time.Time) (*domain.Totals, error) {
	var row struct {
		Income  int64 `db:"income"`
		Expense int64 `db:"expense"`
		Count   int   `db:"count"`
	}
	err := r.db.GetContext(ctx, &row, r.db.Rebind(
		`SELECT
			COALESCE(SUM(CASE WHEN destination_user_id = ? THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN origin_user_id = ? AND destination_user_id IS DISTINCT FROM ? THEN amount + fee ELSE 0 END), 0) AS expense,
			COUNT(*) AS count
		FROM transactions
		WHERE status = 'success'
			AND (origin_user_id = ? OR destination_user_id = ?)
			AND created_at >= ? AND created_at < ?`),
		participant, participant, participant, participant, participant, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("Aggregate: %w", err)
	}
	return &domain.Totals{Income: row.Income, Expense: row.Expense, Count: row.Count}, nil
}

func buildFilter(f domain.TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Participant != nil {
		clauses = append(clauses, "(origin_user_id = ? OR destination_user_id = ?)")
		args = append(args, *f.Participant, *f.Participant)
	}
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		clauses = append(clauses, "(title ILIKE ? OR description ILIKE ? OR reference ILIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, *f.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type transactionRow struct {
	ID                uuid.UUID      `db:"id"`
	Reference         string         `db:"reference"`
	Kind              string         `db:"kind"`
	Title             string         `db:"title"`
	Description       string         `db:"description"`
	OriginUserID      uuid.NullUUID  `db:"origin_user_id"`
	DestinationUserID uuid.NullUUID  `db:"destination_user_id"`
	Currency          string         `db:"currency"`
	Amount            int64          `db:"amount"`
	Fee               int64          `db:"fee"`
	Status            string         `db:"status"`
	Metadata          []byte         `db:"metadata"`
	ErrorDetail       sql.NullString `db:"error_detail"`
	ProviderReference sql.NullString `db:"provider_reference"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (row transactionRow) toDomain() (*domain.Transaction, error) {
	kind := domain.Kind(row.Kind)
	meta, err := domain.DecodeMetadata(kind, row.Metadata)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", row.Reference, err)
	}

	t := &domain.Transaction{
		ID:          row.ID,
		Reference:   row.Reference,
		Kind:        kind,
		Title:       row.Title,
		Description: row.Description,
		Currency:    domain.Currency(row.Currency),
		Amount:      row.Amount,
		Fee:         row.Fee,
		Status:      domain.Status(row.Status),
		Metadata:    meta,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.OriginUserID.Valid {
		t.OriginUserID = &row.OriginUserID.UUID
	}
	if row.DestinationUserID.Valid {
		t.DestinationUserID = &row.DestinationUserID.UUID
	}
	if row.ErrorDetail.Valid {
		t.ErrorDetail = &row.ErrorDetail.String
	}
	if row.ProviderReference.Valid {
		t.ProviderReference = &row.ProviderReference.String
	}
	return t, nil
}

func toTransactions(rows []transactionRow) ([]domain.Transaction, error) {
	items := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var row transactionRow
	err := s.Scan(
		&row.ID, &row.Reference, &row.Kind, &row.Title, &row.Description,
		&row.OriginUserID, &row.DestinationUserID, &row.Currency, &row.Amount, &row.Fee, &row.Status,
		&row.Metadata, &row.ErrorDetail, &row.ProviderReference, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
