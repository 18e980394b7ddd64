package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// TokenRepository defines the interface for token data access
type TokenRepository interface {
	Create(ctx context.Context, token *models.Token) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error)
	FindByValue(ctx context.Context, tokenValue string) (*models.Token, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TokenStatus) (*models.Token, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, status string, limit, offset int) ([]*models.TokenListing, error)
	CountExpiredActive(ctx context.Context) (int, error)
}

type tokenRepository struct {
	db *db.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(database *db.DB) TokenRepository {
	return &tokenRepository{db: database}
}

const tokenColumns = `id, token_value, card_id, merchant_id, COALESCE(device_id, ''),
	       status, expires_at, created_at, updated_at`

func scanToken(row *sql.Row) (*models.Token, error) {
	var t models.Token
	err := row.Scan(
		&t.ID,
		&t.TokenValue,
		&t.CardID,
		&t.MerchantID,
		&t.DeviceID,
		&t.Status,
		&t.ExpiresAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}
	return &t, nil
}

// Create inserts a new token
func (r *tokenRepository) Create(ctx context.Context, token *models.Token) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	query := `
		INSERT INTO tokens (id, token_value, card_id, merchant_id, device_id, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		token.ID,
		token.TokenValue,
		token.CardID,
		token.MerchantID,
		nullIfEmpty(token.DeviceID),
		token.Status,
		token.ExpiresAt,
	).Scan(&token.CreatedAt, &token.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return models.ErrDuplicateTokenValue
	}
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// FindByID retrieves a token by its UUID
func (r *tokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, id))
}

// FindByValue retrieves a token by its opaque value
func (r *tokenRepository) FindByValue(ctx context.Context, tokenValue string) (*models.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_value = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, tokenValue))
}

// UpdateStatus writes the new status and returns the updated token
func (r *tokenRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TokenStatus) (*models.Token, error) {
	query := `
		UPDATE tokens
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tokenColumns

	return scanToken(r.db.QueryRowContext(ctx, query, id, status))
}

// ListByMerchant returns the merchant's tokens newest first, joined with the
// card display fields. An empty or "all" status returns every status.
func (r *tokenRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, status string, limit, offset int) ([]*models.TokenListing, error) {
	query := `
		SELECT t.id, t.token_value, t.card_id, t.merchant_id, COALESCE(t.device_id, ''),
		       t.status, t.expires_at, t.created_at, t.updated_at,
		       c.last_four, COALESCE(c.card_brand, '')
		FROM tokens t
		JOIN cards c ON c.id = t.card_id
		WHERE t.merchant_id = $1
		  AND ($2 = 'all' OR t.status = $2)
		ORDER BY t.created_at DESC
		LIMIT $3 OFFSET $4
	`

	if status == "" {
		status = "all"
	}

	rows, err := r.db.QueryContext(ctx, query, merchantID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var listings []*models.TokenListing
	for rows.Next() {
		var l models.TokenListing
		if err := rows.Scan(
			&l.ID,
			&l.TokenValue,
			&l.CardID,
			&l.MerchantID,
			&l.DeviceID,
			&l.Status,
			&l.ExpiresAt,
			&l.CreatedAt,
			&l.UpdatedAt,
			&l.CardLastFour,
			&l.CardBrand,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token listing: %w", err)
		}
		listings = append(listings, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate token listings: %w", err)
	}

	return listings, nil
}

// CountExpiredActive counts tokens past expiry that are still marked active.
// Consumed by the compliance checks.
func (r *tokenRepository) CountExpiredActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tokens WHERE status = 'active' AND expires_at < NOW()`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired active tokens: %w", err)
	}
	return count, nil
}
