package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookEventStatus string

const (
	WebhookEventStatusPending   WebhookEventStatus = "pending"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

const (
	EventChargeCompleted   = "charge.completed"
	EventChargeFailed      = "charge.failed"
	EventTransferCompleted = "transfer.completed"
)

// WebhookEvent is a verified provider notification as received.
type WebhookEvent struct {
	ID          uuid.UUID
	EventKey    string
	EventType   string
	Payload     json.RawMessage
	Status      WebhookEventStatus
	Attempts    int
	LastError   *string
	LastAttempt *time.Time
	CreatedAt   time.Time
}
