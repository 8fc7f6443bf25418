package reconcile

import (
	"context"
	"time"

	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

const retryBatchSize = 10

// Start re-processes recorded notifications that were left pending or failed,
// and checks long-pending bank transfers with the provider, until ctx is
// cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("webhook retry poller started",
		"interval", r.interval, "max_attempts", r.maxAttempts, "stale_after", r.staleAfter)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("webhook retry poller stopped")
			return
		case <-ticker.C:
			r.poll(ctx)
			r.sweepPayouts(ctx)
		}
	}
}

func (r *Reconciler) poll(ctx context.Context) {
	events, err := r.events.ClaimRetryable(ctx, retryBatchSize, r.maxAttempts, r.interval)
	if err != nil {
		r.logger.Error("failed to claim webhook events", "error", err)
		return
	}

	ctx = logging.WithLogger(ctx, r.logger)
	for _, event := range events {
		if err := r.processEvent(ctx, event); err != nil {
			r.logger.Error("webhook event retry failed",
				"webhook_event_id", event.ID,
				"attempts", event.Attempts+1,
				"error", err,
			)
		}
	}
}

// sweepPayouts settles bank transfers whose completion notification is overdue.
func (r *Reconciler) sweepPayouts(ctx context.Context) {
	if r.staleAfter <= 0 {
		return
	}
	ctx = logging.WithLogger(ctx, r.logger)
	settled, err := r.ledger.ResolveStale(ctx, time.Now().Add(-r.staleAfter), retryBatchSize)
	if err != nil {
		r.logger.Error("failed to sweep pending transfers", "error", err)
		return
	}
	if settled > 0 {
		r.logger.Info("stale transfers settled", "count", settled)
	}
}
