package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// CardRepository defines the interface for card data access
type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error)
}

type cardRepository struct {
	db *db.DB
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(database *db.DB) CardRepository {
	return &cardRepository{db: database}
}

// Create inserts a new card. The PAN must already be encrypted.
func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}

	query := `
		INSERT INTO cards (id, pan_encrypted, last_four, expiry_month, expiry_year,
		                   card_brand, customer_id, issuer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		card.ID,
		card.PANEncrypted,
		card.LastFour,
		card.ExpiryMonth,
		card.ExpiryYear,
		nullIfEmpty(card.CardBrand),
		nullIfEmpty(card.CustomerID),
		nullIfEmpty(card.IssuerID),
	).Scan(&card.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// FindByID retrieves a card by its UUID
func (r *cardRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	query := `
		SELECT id, pan_encrypted, last_four, expiry_month, expiry_year,
		       COALESCE(card_brand, ''), COALESCE(customer_id, ''), COALESCE(issuer_id, ''),
		       created_at
		FROM cards
		WHERE id = $1
	`

	var card models.Card
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&card.ID,
		&card.PANEncrypted,
		&card.LastFour,
		&card.ExpiryMonth,
		&card.ExpiryYear,
		&card.CardBrand,
		&card.CustomerID,
		&card.IssuerID,
		&card.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card by id: %w", err)
	}

	return &card, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
