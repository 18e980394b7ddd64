package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// KeyRepository defines the interface for encryption key metadata access
type KeyRepository interface {
	FindActive(ctx context.Context) (*models.EncryptionKey, error)
	Create(ctx context.Context, key *models.EncryptionKey) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type keyRepository struct {
	db *db.DB
}

// NewKeyRepository creates a new KeyRepository
func NewKeyRepository(database *db.DB) KeyRepository {
	return &keyRepository{db: database}
}

// FindActive returns the highest-version active key, or models.ErrNotFound
// when no key has been provisioned yet.
func (r *keyRepository) FindActive(ctx context.Context) (*models.EncryptionKey, error) {
	query := `
		SELECT id, key_version, key_hash, is_active, expires_at, rotated_by, created_at
		FROM encryption_keys
		WHERE is_active
		ORDER BY key_version DESC
		LIMIT 1
	`

	var key models.EncryptionKey
	err := r.db.QueryRowContext(ctx, query).Scan(
		&key.ID,
		&key.KeyVersion,
		&key.KeyHash,
		&key.IsActive,
		&key.ExpiresAt,
		&key.RotatedBy,
		&key.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active key: %w", err)
	}

	return &key, nil
}

// Create inserts a new key version row
func (r *keyRepository) Create(ctx context.Context, key *models.EncryptionKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	query := `
		INSERT INTO encryption_keys (id, key_version, key_hash, is_active, expires_at, rotated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		key.ID,
		key.KeyVersion,
		key.KeyHash,
		key.IsActive,
		key.ExpiresAt,
		key.RotatedBy,
	).Scan(&key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create encryption key: %w", err)
	}

	return nil
}

// Deactivate marks exactly the given key row inactive. The predicate on
// is_active makes the rotation's deactivate-previous step operate on the
// snapshot it read, so concurrent rotations cannot wipe each other's rows.
func (r *keyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE encryption_keys SET is_active = FALSE WHERE id = $1 AND is_active`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate key: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		// Already deactivated by a concurrent rotation. Not an error.
		return nil
	}

	return nil
}
