package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type journalReader interface {
	Find(ctx context.Context, f domain.TransactionFilter, p domain.Page) (*domain.TransactionPage, error)
	Aggregate(ctx context.Context, participant uuid.UUID, from, to time.Time) (*domain.Totals, error)
}

// HistoryService answers transaction history and totals for one participant.
type HistoryService struct {
	journal journalReader
	loc     *time.Location
	now     func() time.Time
}

func NewHistoryService(journal journalReader, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryService{journal: journal, loc: loc, now: time.Now}
}

func (s *HistoryService) List(ctx context.Context, userID uuid.UUID, f domain.TransactionFilter, p domain.Page) (*domain.TransactionPage, error) {
	if f.Kind != "" && !f.Kind.IsValid() {
		return nil, fmt.Errorf("List: kind %q: %w", f.Kind, domain.ErrValidation)
	}
	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("List: status %q: %w", f.Status, domain.ErrValidation)
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, fmt.Errorf("List: empty date range: %w", domain.ErrValidation)
	}
	f.Participant = &userID

	page, err := s.journal.Find(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return page, nil
}

// Stats totals settled entries in [from, to). A zero to means now.
func (s *HistoryService) Stats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.Totals, error) {
	if to.IsZero() {
		to = s.now()
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("Stats: empty date range: %w", domain.ErrValidation)
	}
	totals, err := s.journal.Aggregate(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	return totals, nil
}

// Today totals the current calendar day in the service's time zone.
func (s *HistoryService) Today(ctx context.Context, userID uuid.UUID) (*domain.Totals, error) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	totals, err := s.journal.Aggregate(ctx, userID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("Today: %w", err)
	}
	return totals, nil
}
