package models

import (
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the standing of a merchant account
type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "active"
	MerchantStatusPending   MerchantStatus = "pending"
	MerchantStatusSuspended MerchantStatus = "suspended"
	MerchantStatusInactive  MerchantStatus = "inactive"
)

// Merchant represents an onboarded API consumer. Only active merchants may
// tokenize or create transactions.
type Merchant struct {
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
	Name      string         `db:"name"`
	APIKey    string         `db:"api_key"`
	Status    MerchantStatus `db:"status"`
	ID        uuid.UUID      `db:"id"`
}
