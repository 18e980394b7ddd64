package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
)

// RateLimitRepository defines the interface for the fixed-window counters
type RateLimitRepository interface {
	Increment(ctx context.Context, merchantID uuid.UUID, endpoint string, window time.Duration, limit int) (allowed bool, remaining int, err error)
}

type rateLimitRepository struct {
	db *db.DB
}

// NewRateLimitRepository creates a new RateLimitRepository
func NewRateLimitRepository(database *db.DB) RateLimitRepository {
	return &rateLimitRepository{db: database}
}

// Increment is the fixed-window check-and-count as one atomic statement, so
// concurrent callers cannot lose updates between a read and a write. One live
// row per (merchant, endpoint): a stale window resets to count 1, an open
// window under the limit increments, and a full window matches no row, which
// is the denial.
func (r *rateLimitRepository) Increment(ctx context.Context, merchantID uuid.UUID, endpoint string, window time.Duration, limit int) (bool, int, error) {
	query := `
		INSERT INTO rate_limits (merchant_id, endpoint, window_start, request_count, last_request)
		VALUES ($1, $2, NOW(), 1, NOW())
		ON CONFLICT (merchant_id, endpoint) DO UPDATE SET
			request_count = CASE
				WHEN rate_limits.window_start <= NOW() - $3::interval THEN 1
				ELSE rate_limits.request_count + 1
			END,
			window_start = CASE
				WHEN rate_limits.window_start <= NOW() - $3::interval THEN NOW()
				ELSE rate_limits.window_start
			END,
			last_request = NOW()
		WHERE rate_limits.window_start <= NOW() - $3::interval
		   OR rate_limits.request_count < $4
		RETURNING request_count
	`

	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))

	var count int
	err := r.db.QueryRowContext(ctx, query, merchantID, endpoint, interval, limit).Scan(&count)
	if err == sql.ErrNoRows {
		// The live window is full; the statement deliberately did not match.
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return true, remaining, nil
}
