package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// TransactionRepository defines the interface for transaction data access
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	CountByDevice(ctx context.Context, deviceID string) (int, error)
}

type transactionRepository struct {
	db *db.DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(database *db.DB) TransactionRepository {
	return &transactionRepository{db: database}
}

// Create inserts a new transaction
func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	query := `
		INSERT INTO transactions (id, token_id, merchant_id, device_id, amount,
		                          currency, status, reference_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.TokenID,
		tx.MerchantID,
		nullIfEmpty(tx.DeviceID),
		tx.Amount,
		tx.Currency,
		tx.Status,
		nullIfEmpty(tx.ReferenceNumber),
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// CountByDevice returns the number of prior transactions seen from a device.
// Consumed by the risk scoring device factor.
func (r *transactionRepository) CountByDevice(ctx context.Context, deviceID string) (int, error) {
	if deviceID == "" {
		return 0, nil
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE device_id = $1`, deviceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count device transactions: %w", err)
	}
	return count, nil
}
