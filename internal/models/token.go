package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenStatus represents the lifecycle state of a token
type TokenStatus string

const (
	TokenStatusActive    TokenStatus = "active"
	TokenStatusPending   TokenStatus = "pending"
	TokenStatusSuspended TokenStatus = "suspended"
	TokenStatusRevoked   TokenStatus = "revoked"
	// TokenStatusExpired is observed from expires_at, never written.
	TokenStatusExpired TokenStatus = "expired"
)

// Token is the opaque stand-in for a card. Tokens are created active, are
// never physically deleted, and belong to exactly one merchant for life.
type Token struct {
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
	ExpiresAt  time.Time   `db:"expires_at"`
	TokenValue string      `db:"token_value"`
	DeviceID   string      `db:"device_id"`
	Status     TokenStatus `db:"status"`
	ID         uuid.UUID   `db:"id"`
	CardID     uuid.UUID   `db:"card_id"`
	MerchantID uuid.UUID   `db:"merchant_id"`
}

// Expired reports whether the token's validity window has passed.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Usable reports whether the token can back a new transaction or be
// detokenized: active status and not yet expired.
func (t *Token) Usable(now time.Time) bool {
	return t.Status == TokenStatusActive && !t.Expired(now)
}

// TokenListing is a token joined with the card display fields for
// merchant-facing listings.
type TokenListing struct {
	Token
	CardLastFour string `db:"last_four"`
	CardBrand    string `db:"card_brand"`
}
