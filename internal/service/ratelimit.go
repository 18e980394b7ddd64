package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/repository"
)

// RateLimitResult reports the outcome of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
}

// RateLimiter enforces the fixed-window request cap per merchant and
// endpoint. Windows are discrete, not sliding: a burst straddling a window
// boundary can briefly exceed the nominal rate. That is the documented
// behavior of fixed windows, not a bug.
type RateLimiter struct {
	repo   repository.RateLimitRepository
	window time.Duration
	limit  int
}

// NewRateLimiter creates a new RateLimiter
func NewRateLimiter(repo repository.RateLimitRepository, window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{repo: repo, window: window, limit: limit}
}

// Check counts the request against the merchant's window for the endpoint.
// A denial does not increment the counter.
func (l *RateLimiter) Check(ctx context.Context, merchantID uuid.UUID, endpoint string) (RateLimitResult, error) {
	allowed, remaining, err := l.repo.Increment(ctx, merchantID, endpoint, l.window, l.limit)
	if err != nil {
		return RateLimitResult{}, storageError("rate limit check failed", err)
	}

	return RateLimitResult{Allowed: allowed, Remaining: remaining}, nil
}
