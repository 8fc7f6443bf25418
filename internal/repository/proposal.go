package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const proposalColumns = `id, submitted_by, name, code, card_amount, rate, image_url,
	status, verifier_id, verified_at, rejection_reason, transaction_id, created_at`

type ProposalRepository struct {
	db *sqlx.DB
}

func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

func (r *ProposalRepository) Create(ctx context.Context, p *domain.Proposal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO giftcard_proposals (id, submitted_by, name, code, card_amount, rate, image_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.SubmittedBy, p.Name, p.Code, p.CardAmount, p.Rate, p.ImageURL, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	p, err := scanProposal(r.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM giftcard_proposals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *ProposalRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Proposal, error) {
	p, err := scanProposal(tx.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM giftcard_proposals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

// List returns proposals, optionally restricted to one submitter and/or status.
func (r *ProposalRepository) List(ctx context.Context, submittedBy *uuid.UUID, status domain.ProposalStatus, page domain.Page) ([]domain.Proposal, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM giftcard_proposals
		WHERE ($1::uuid IS NULL OR submitted_by = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		nullUUID(submittedBy), string(status), page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return out, nil
}

// Approve records the decision and links the settlement entry. Callers must hold
// the row lock from GetForUpdate in the same tx.
func (r *ProposalRepository) Approve(ctx context.Context, tx *sql.Tx, id, verifierID, transactionID uuid.UUID, at time.Time) error {
	return r.decide(ctx, tx, "Approve",
		`UPDATE giftcard_proposals SET status = 'approved', verifier_id = $1, verified_at = $2, transaction_id = $3
		WHERE id = $4 AND status = 'pending'`,
		verifierID, at, transactionID, id,
	)
}

func (r *ProposalRepository) Reject(ctx context.Context, q Querier, id, verifierID uuid.UUID, reason string, at time.Time) error {
	return r.decide(ctx, q, "Reject",
		`UPDATE giftcard_proposals SET status = 'rejected', verifier_id = $1, verified_at = $2, rejection_reason = $3
		WHERE id = $4 AND status = 'pending'`,
		verifierID, at, reason, id,
	)
}

func (r *ProposalRepository) decide(ctx context.Context, q Querier, op, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrProposalDecided)
	}
	return nil
}

func scanProposal(s scanner) (*domain.Proposal, error) {
	var p domain.Proposal
	var verifierID, transactionID uuid.NullUUID
	err := s.Scan(
		&p.ID, &p.SubmittedBy, &p.Name, &p.Code, &p.CardAmount, &p.Rate, &p.ImageURL,
		&p.Status, &verifierID, &p.VerifiedAt, &p.RejectionReason, &transactionID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verifierID.Valid {
		p.VerifierID = &verifierID.UUID
	}
	if transactionID.Valid {
		p.TransactionID = &transactionID.UUID
	}
	return &p, nil
}
