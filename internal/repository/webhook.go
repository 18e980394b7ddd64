package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// WebhookRepository defines the interface for webhook subscription and
// delivery-history access
type WebhookRepository interface {
	Create(ctx context.Context, webhook *models.Webhook) error
	Delete(ctx context.Context, id, merchantID uuid.UUID) error
	FindActive(ctx context.Context, merchantID uuid.UUID, eventType string) ([]*models.Webhook, error)
	RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
}

type webhookRepository struct {
	db *db.DB
}

// NewWebhookRepository creates a new WebhookRepository
func NewWebhookRepository(database *db.DB) WebhookRepository {
	return &webhookRepository{db: database}
}

// Create inserts a new webhook subscription
func (r *webhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	if webhook.ID == uuid.Nil {
		webhook.ID = uuid.New()
	}

	query := `
		INSERT INTO webhooks (id, merchant_id, event_type, url, secret, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		webhook.ID,
		webhook.MerchantID,
		webhook.EventType,
		webhook.URL,
		webhook.Secret,
		webhook.IsActive,
	).Scan(&webhook.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// Delete removes a subscription, but only when owned by the given merchant
func (r *webhookRepository) Delete(ctx context.Context, id, merchantID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM webhooks WHERE id = $1 AND merchant_id = $2`, id, merchantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// FindActive returns all active subscriptions matching merchant and event type
func (r *webhookRepository) FindActive(ctx context.Context, merchantID uuid.UUID, eventType string) ([]*models.Webhook, error) {
	query := `
		SELECT id, merchant_id, event_type, url, secret, is_active, created_at
		FROM webhooks
		WHERE merchant_id = $1 AND event_type = $2 AND is_active
	`

	rows, err := r.db.QueryContext(ctx, query, merchantID, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to find webhooks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var webhooks []*models.Webhook
	for rows.Next() {
		var w models.Webhook
		if err := rows.Scan(
			&w.ID,
			&w.MerchantID,
			&w.EventType,
			&w.URL,
			&w.Secret,
			&w.IsActive,
			&w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhooks: %w", err)
	}

	return webhooks, nil
}

// RecordDelivery appends one delivery attempt to the history
func (r *webhookRepository) RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}

	payload, err := json.Marshal(delivery.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery payload: %w", err)
	}

	query := `
		INSERT INTO webhook_deliveries
			(id, webhook_id, event_type, payload, attempt_count, response_status, response_body, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		delivery.ID,
		delivery.WebhookID,
		delivery.EventType,
		payload,
		delivery.AttemptCount,
		delivery.ResponseStatus,
		nullIfEmpty(delivery.ResponseBody),
		delivery.DeliveredAt,
	).Scan(&delivery.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}

	return nil
}
