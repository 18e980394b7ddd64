package models

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event types deliverable to merchant webhooks.
const (
	EventTokenIssued        = "token_issued"
	EventTokenSuspended     = "token_suspended"
	EventTokenRevoked       = "token_revoked"
	EventTransactionCreated = "transaction_created"
)

// Webhook is a merchant subscription to a lifecycle event type.
type Webhook struct {
	CreatedAt  time.Time `db:"created_at"`
	EventType  string    `db:"event_type"`
	URL        string    `db:"url"`
	Secret     string    `db:"secret"`
	IsActive   bool      `db:"is_active"`
	ID         uuid.UUID `db:"id"`
	MerchantID uuid.UUID `db:"merchant_id"`
}

// WebhookDelivery records one delivery attempt, successful or not. A network
// failure is recorded with ResponseStatus 0 and the error string as the body.
type WebhookDelivery struct {
	CreatedAt      time.Time      `db:"created_at"`
	DeliveredAt    *time.Time     `db:"delivered_at"`
	EventType      string         `db:"event_type"`
	Payload        map[string]any `db:"payload"`
	ResponseBody   string         `db:"response_body"`
	AttemptCount   int            `db:"attempt_count"`
	ResponseStatus int            `db:"response_status"`
	ID             uuid.UUID      `db:"id"`
	WebhookID      uuid.UUID      `db:"webhook_id"`
}
