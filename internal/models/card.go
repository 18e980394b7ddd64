package models

import (
	"time"

	"github.com/google/uuid"
)

// Card holds the encrypted PAN and its display attributes. The clear PAN is
// never stored; PANEncrypted is only recoverable through the crypto service
// holding the matching key version.
type Card struct {
	CreatedAt    time.Time `db:"created_at"`
	PANEncrypted string    `db:"pan_encrypted"`
	LastFour     string    `db:"last_four"`
	CardBrand    string    `db:"card_brand"`
	CustomerID   string    `db:"customer_id"`
	IssuerID     string    `db:"issuer_id"`
	ExpiryMonth  int       `db:"expiry_month"`
	ExpiryYear   int       `db:"expiry_year"`
	ID           uuid.UUID `db:"id"`
}
