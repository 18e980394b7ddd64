package models

import (
	"time"

	"github.com/google/uuid"
)

// EncryptionKey is one version of the PAN encryption key. At most one row is
// active at a time; rotation deactivates the previous row, never deletes it.
// Only the hash of the derived key is stored.
type EncryptionKey struct {
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	KeyHash    string     `db:"key_hash"`
	RotatedBy  *uuid.UUID `db:"rotated_by"`
	KeyVersion int        `db:"key_version"`
	IsActive   bool       `db:"is_active"`
	ID         uuid.UUID  `db:"id"`
}
