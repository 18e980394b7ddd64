package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// RiskRepository defines the interface for risk event access
type RiskRepository interface {
	Create(ctx context.Context, event *models.RiskEvent) error
	CountPendingReviews(ctx context.Context, minScore int, since time.Time) (int, error)
}

type riskRepository struct {
	db *db.DB
}

// NewRiskRepository creates a new RiskRepository
func NewRiskRepository(database *db.DB) RiskRepository {
	return &riskRepository{db: database}
}

// Create inserts a new risk event. Events are immutable once written.
func (r *riskRepository) Create(ctx context.Context, event *models.RiskEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	query := `
		INSERT INTO risk_events (id, transaction_id, token_id, event_type, risk_score,
		                         severity, decision, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		event.ID,
		event.TransactionID,
		event.TokenID,
		event.EventType,
		event.RiskScore,
		event.Severity,
		event.Decision,
		nullIfEmpty(event.Reason),
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create risk event: %w", err)
	}

	return nil
}

// CountPendingReviews counts review-decision events at or above minScore
// created since the given time. Consumed by the compliance backlog check.
func (r *riskRepository) CountPendingReviews(ctx context.Context, minScore int, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM risk_events
		 WHERE decision = 'review' AND risk_score >= $1 AND created_at >= $2`,
		minScore, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reviews: %w", err)
	}
	return count, nil
}
