// Package repository provides data access layer implementations for the
// tokenization service.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// MerchantRepository defines the interface for merchant data access
type MerchantRepository interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error)
	CountByStatus(ctx context.Context, status models.MerchantStatus) (int, error)
}

type merchantRepository struct {
	db *db.DB
}

// NewMerchantRepository creates a new MerchantRepository
func NewMerchantRepository(database *db.DB) MerchantRepository {
	return &merchantRepository{db: database}
}

const merchantColumns = `id, name, api_key, status, created_at, updated_at`

func scanMerchant(row *sql.Row) (*models.Merchant, error) {
	var m models.Merchant
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.APIKey,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan merchant: %w", err)
	}
	return &m, nil
}

// FindByAPIKey retrieves a merchant by its API key
func (r *merchantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE api_key = $1`
	return scanMerchant(r.db.QueryRowContext(ctx, query, apiKey))
}

// FindByID retrieves a merchant by its UUID
func (r *merchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	return scanMerchant(r.db.QueryRowContext(ctx, query, id))
}

// CountByStatus returns the number of merchants in the given status
func (r *merchantRepository) CountByStatus(ctx context.Context, status models.MerchantStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM merchants WHERE status = $1`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count merchants: %w", err)
	}
	return count, nil
}
