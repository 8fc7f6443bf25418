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

const webhookEventColumns = `id, event_key, event_type, payload, status,
	attempts, last_error, last_attempt, created_at`

type WebhookEventRepository struct {
	db *sqlx.DB
}

func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record stores a verified notification once per event key and returns the stored row.
// A redelivery returns the existing row unchanged.
func (r *WebhookEventRepository) Record(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (id, event_key, event_type, payload, status, attempts, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, now(), $6)
		ON CONFLICT (event_key) DO NOTHING`,
		event.ID, event.EventKey, event.EventType, string(event.Payload), domain.WebhookEventStatusPending, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	stored, err := scanWebhookEvent(r.db.QueryRowContext(ctx,
		`SELECT `+webhookEventColumns+` FROM webhook_events WHERE event_key = $1`, event.EventKey,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Record: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Record: %w", err)
	}
	return stored, nil
}

// ClaimRetryable picks events that were not processed and have not been attempted
// within minAge. SKIP LOCKED keeps concurrent pollers off the same rows.
func (r *WebhookEventRepository) ClaimRetryable(ctx context.Context, limit, maxAttempts int, minAge time.Duration) ([]domain.WebhookEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE webhook_events SET last_attempt = now()
		WHERE id IN (
			SELECT id FROM webhook_events
			WHERE status IN ('pending', 'failed') AND attempts < $1
				AND (last_attempt IS NULL OR last_attempt < now() - make_interval(secs => $2))
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+webhookEventColumns,
		maxAttempts, minAge.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimRetryable: %w", err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimRetryable: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimRetryable: rows: %w", err)
	}
	return events, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.updateStatus(ctx, "MarkProcessed", id, domain.WebhookEventStatusProcessed, nil)
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	msg := cause.Error()
	return r.updateStatus(ctx, "MarkFailed", id, domain.WebhookEventStatusFailed, &msg)
}

func (r *WebhookEventRepository) updateStatus(ctx context.Context, op string, id uuid.UUID, status domain.WebhookEventStatus, lastErr *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET status = $1, last_error = $2, attempts = attempts + 1, last_attempt = now()
		WHERE id = $3`,
		status, lastErr, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func scanWebhookEvent(s scanner) (*domain.WebhookEvent, error) {
	var e domain.WebhookEvent
	var payload []byte
	err := s.Scan(
		&e.ID, &e.EventKey, &e.EventType, &payload, &e.Status,
		&e.Attempts, &e.LastError, &e.LastAttempt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
