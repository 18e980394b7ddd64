package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/config"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the configured database and runs migrations. Tests
// are skipped when no database is reachable.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	logger := cfg.Logger.NewLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		t.Skipf("database unavailable, skipping repository test: %v", err)
	}

	truncateTables(t, database)
	return database
}

func cleanupTestDB(t *testing.T, database *db.DB) {
	t.Helper()
	if err := database.Close(); err != nil {
		t.Logf("failed to close test database: %v", err)
	}
}

func truncateTables(t *testing.T, database *db.DB) {
	t.Helper()

	_, err := database.ExecContext(context.Background(), `
		TRUNCATE TABLE webhook_deliveries, webhooks, risk_events, transactions,
			tokens, cards, rate_limits, audit_logs, compliance_logs,
			encryption_keys, merchants CASCADE;
	`)
	require.NoError(t, err, "failed to truncate tables")
}

func seedMerchant(t *testing.T, database *db.DB) *models.Merchant {
	t.Helper()

	merchant := &models.Merchant{
		ID:     uuid.New(),
		Name:   "Repo Test Merchant",
		APIKey: "pk_test_" + uuid.NewString(),
		Status: models.MerchantStatusActive,
	}
	_, err := database.ExecContext(context.Background(), `
		INSERT INTO merchants (id, name, api_key, status)
		VALUES ($1, $2, $3, $4)
	`, merchant.ID, merchant.Name, merchant.APIKey, merchant.Status)
	require.NoError(t, err)

	return merchant
}

func seedCard(t *testing.T, database *db.DB) *models.Card {
	t.Helper()

	repo := NewCardRepository(database)
	card := &models.Card{
		PANEncrypted: "v1:" + uuid.NewString(),
		LastFour:     "1111",
		ExpiryMonth:  12,
		ExpiryYear:   time.Now().Year() + 2,
		CardBrand:    "visa",
	}
	require.NoError(t, repo.Create(context.Background(), card))
	return card
}
