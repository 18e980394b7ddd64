// Package mocks provides testify-based doubles for the repository
// interfaces used in service tests.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/models"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockMerchantRepository is a mock for repository.MerchantRepository
type MockMerchantRepository struct{ mock.Mock }

func NewMockMerchantRepository(t testingT) *MockMerchantRepository {
	m := &MockMerchantRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMerchantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) CountByStatus(ctx context.Context, status models.MerchantStatus) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

// MockCardRepository is a mock for repository.CardRepository
type MockCardRepository struct{ mock.Mock }

func NewMockCardRepository(t testingT) *MockCardRepository {
	m := &MockCardRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCardRepository) Create(ctx context.Context, card *models.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

// MockTokenRepository is a mock for repository.TokenRepository
type MockTokenRepository struct{ mock.Mock }

func NewMockTokenRepository(t testingT) *MockTokenRepository {
	m := &MockTokenRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenRepository) Create(ctx context.Context, token *models.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Token), args.Error(1)
}

func (m *MockTokenRepository) FindByValue(ctx context.Context, tokenValue string) (*models.Token, error) {
	args := m.Called(ctx, tokenValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Token), args.Error(1)
}

func (m *MockTokenRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TokenStatus) (*models.Token, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Token), args.Error(1)
}

func (m *MockTokenRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, status string, limit, offset int) ([]*models.TokenListing, error) {
	args := m.Called(ctx, merchantID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TokenListing), args.Error(1)
}

func (m *MockTokenRepository) CountExpiredActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockTransactionRepository is a mock for repository.TransactionRepository
type MockTransactionRepository struct{ mock.Mock }

func NewMockTransactionRepository(t testingT) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) CountByDevice(ctx context.Context, deviceID string) (int, error) {
	args := m.Called(ctx, deviceID)
	return args.Int(0), args.Error(1)
}

// MockKeyRepository is a mock for repository.KeyRepository
type MockKeyRepository struct{ mock.Mock }

func NewMockKeyRepository(t testingT) *MockKeyRepository {
	m := &MockKeyRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockKeyRepository) FindActive(ctx context.Context) (*models.EncryptionKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EncryptionKey), args.Error(1)
}

func (m *MockKeyRepository) Create(ctx context.Context, key *models.EncryptionKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKeyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockWebhookRepository is a mock for repository.WebhookRepository
type MockWebhookRepository struct{ mock.Mock }

func NewMockWebhookRepository(t testingT) *MockWebhookRepository {
	m := &MockWebhookRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWebhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	args := m.Called(ctx, webhook)
	return args.Error(0)
}

func (m *MockWebhookRepository) Delete(ctx context.Context, id, merchantID uuid.UUID) error {
	args := m.Called(ctx, id, merchantID)
	return args.Error(0)
}

func (m *MockWebhookRepository) FindActive(ctx context.Context, merchantID uuid.UUID, eventType string) ([]*models.Webhook, error) {
	args := m.Called(ctx, merchantID, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Webhook), args.Error(1)
}

func (m *MockWebhookRepository) RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	args := m.Called(ctx, delivery)
	return args.Error(0)
}

// MockRiskRepository is a mock for repository.RiskRepository
type MockRiskRepository struct{ mock.Mock }

func NewMockRiskRepository(t testingT) *MockRiskRepository {
	m := &MockRiskRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRiskRepository) Create(ctx context.Context, event *models.RiskEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRiskRepository) CountPendingReviews(ctx context.Context, minScore int, since time.Time) (int, error) {
	args := m.Called(ctx, minScore, since)
	return args.Int(0), args.Error(1)
}

// MockAuditRepository is a mock for repository.AuditRepository
type MockAuditRepository struct{ mock.Mock }

func NewMockAuditRepository(t testingT) *MockAuditRepository {
	m := &MockAuditRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) InsertComplianceLog(ctx context.Context, check *models.ComplianceLog) error {
	args := m.Called(ctx, check)
	return args.Error(0)
}

// MockRateLimitRepository is a mock for repository.RateLimitRepository
type MockRateLimitRepository struct{ mock.Mock }

func NewMockRateLimitRepository(t testingT) *MockRateLimitRepository {
	m := &MockRateLimitRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRateLimitRepository) Increment(ctx context.Context, merchantID uuid.UUID, endpoint string, window time.Duration, limit int) (bool, int, error) {
	args := m.Called(ctx, merchantID, endpoint, window, limit)
	return args.Bool(0), args.Int(1), args.Error(2)
}
