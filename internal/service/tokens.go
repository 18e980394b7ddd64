package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

// EventDispatcher hands lifecycle events to the webhook delivery pool
// without blocking the caller.
type EventDispatcher interface {
	Enqueue(merchantID uuid.UUID, eventType string, payload map[string]any)
}

// TokenService implements the token lifecycle: issuance, status transitions,
// transaction creation and merchant listings.
type TokenService struct {
	tokens        repository.TokenRepository
	cards         repository.CardRepository
	transactions  repository.TransactionRepository
	crypto        *CryptoService
	keys          *KeyService
	limiter       *RateLimiter
	dispatcher    EventDispatcher
	audit         *AuditService
	tokenLifetime time.Duration
	logger        *slog.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(
	tokens repository.TokenRepository,
	cards repository.CardRepository,
	transactions repository.TransactionRepository,
	crypto *CryptoService,
	keys *KeyService,
	limiter *RateLimiter,
	dispatcher EventDispatcher,
	audit *AuditService,
	tokenLifetime time.Duration,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		tokens:        tokens,
		cards:         cards,
		transactions:  transactions,
		crypto:        crypto,
		keys:          keys,
		limiter:       limiter,
		dispatcher:    dispatcher,
		audit:         audit,
		tokenLifetime: tokenLifetime,
		logger:        logger,
	}
}

// TokenizeRequest carries the card data for a tokenize call.
type TokenizeRequest struct {
	PAN         string
	DeviceID    string
	CustomerID  string
	IssuerID    string
	CardBrand   string
	ExpiryMonth int
	ExpiryYear  int
}

// TokenizeResult is the issued token plus its card and the caller's
// remaining rate-limit budget.
type TokenizeResult struct {
	Token         *models.Token
	Card          *models.Card
	RateRemaining int
}

// TransactionResult is the recorded transaction plus the caller's remaining
// rate-limit budget.
type TransactionResult struct {
	Transaction   *models.Transaction
	RateRemaining int
}

// Tokenize validates the PAN, encrypts it under the active key and issues a
// new active token with a one-year validity window.
func (s *TokenService) Tokenize(ctx context.Context, merchant *models.Merchant, req TokenizeRequest) (*TokenizeResult, error) {
	if merchant.Status != models.MerchantStatusActive {
		return nil, authorizationError("merchant account not active")
	}

	rate, err := s.limiter.Check(ctx, merchant.ID, "tokenize")
	if err != nil {
		return nil, err
	}
	if !rate.Allowed {
		return nil, rateLimitError()
	}

	pan, err := NormalizePAN(req.PAN)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if err := ValidateLuhn(pan); err != nil {
		return nil, validationError(err.Error())
	}
	if err := ValidateExpiry(req.ExpiryMonth, req.ExpiryYear); err != nil {
		return nil, validationError(err.Error())
	}

	keyVersion, err := s.keys.ActiveVersion(ctx)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.crypto.Encrypt(pan, keyVersion)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		PANEncrypted: encrypted,
		LastFour:     pan[len(pan)-4:],
		ExpiryMonth:  req.ExpiryMonth,
		ExpiryYear:   req.ExpiryYear,
		CardBrand:    req.CardBrand,
		CustomerID:   req.CustomerID,
		IssuerID:     req.IssuerID,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, storageError("failed to store card data", err)
	}

	token := &models.Token{
		TokenValue: newTokenValue(),
		CardID:     card.ID,
		MerchantID: merchant.ID,
		DeviceID:   req.DeviceID,
		Status:     models.TokenStatusActive,
		ExpiresAt:  time.Now().Add(s.tokenLifetime),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, storageError("failed to create token", err)
	}

	s.logger.Info("token issued",
		"token_id", token.ID,
		"merchant_id", merchant.ID,
		"last_four", card.LastFour,
	)

	return &TokenizeResult{Token: token, Card: card, RateRemaining: rate.Remaining}, nil
}

// UpdateStatusResult reports a status transition.
type UpdateStatusResult struct {
	Token     *models.Token
	OldStatus models.TokenStatus
}

// UpdateStatus applies an explicit status transition on a merchant-owned
// token. Transitions to suspended or revoked notify the merchant's webhooks.
func (s *TokenService) UpdateStatus(ctx context.Context, merchant *models.Merchant, tokenID uuid.UUID, newStatus models.TokenStatus, reason string) (*UpdateStatusResult, error) {
	if merchant.Status != models.MerchantStatusActive {
		return nil, authorizationError("merchant account not active")
	}
	if err := ValidateStatusTransition(newStatus); err != nil {
		return nil, validationError(err.Error())
	}

	token, err := s.tokens.FindByID(ctx, tokenID)
	if err == models.ErrNotFound {
		return nil, notFoundError("token not found")
	}
	if err != nil {
		return nil, storageError("failed to load token", err)
	}

	if token.MerchantID != merchant.ID {
		return nil, authorizationError("token does not belong to this merchant")
	}

	oldStatus := token.Status
	updated, err := s.tokens.UpdateStatus(ctx, token.ID, newStatus)
	if err != nil {
		return nil, storageError("failed to update token status", err)
	}

	if reason != "" {
		s.audit.LogAudit(ctx, &models.AuditLog{
			OperationType: "token_status_change",
			EntityType:    "token",
			EntityID:      &token.ID,
			MerchantID:    &merchant.ID,
			RequestData: map[string]any{
				"old_status": string(oldStatus),
				"new_status": string(newStatus),
				"reason":     reason,
			},
			ResponseStatus: 200,
		})
	}

	if newStatus == models.TokenStatusSuspended || newStatus == models.TokenStatusRevoked {
		s.dispatcher.Enqueue(merchant.ID, "token_"+string(newStatus), map[string]any{
			"token_id":    updated.ID.String(),
			"token_value": updated.TokenValue,
			"old_status":  string(oldStatus),
			"new_status":  string(newStatus),
			"reason":      reason,
			"updated_at":  updated.UpdatedAt.Format(time.RFC3339),
		})
	}

	return &UpdateStatusResult{Token: updated, OldStatus: oldStatus}, nil
}

// CreateTransaction logs a payment against an active, unexpired token owned
// by the calling merchant and notifies transaction_created webhooks.
func (s *TokenService) CreateTransaction(ctx context.Context, merchant *models.Merchant, tokenValue string, amount int64, currency, referenceNumber string) (*TransactionResult, error) {
	if merchant.Status != models.MerchantStatusActive {
		return nil, authorizationError("merchant account is not active")
	}

	rate, err := s.limiter.Check(ctx, merchant.ID, "create-transaction")
	if err != nil {
		return nil, err
	}
	if !rate.Allowed {
		return nil, rateLimitError()
	}

	if err := ValidateAmount(amount); err != nil {
		return nil, validationError(err.Error())
	}
	if currency == "" {
		currency = "USD"
	}

	token, err := s.tokens.FindByValue(ctx, tokenValue)
	if err == models.ErrNotFound {
		return nil, notFoundError("invalid token")
	}
	if err != nil {
		return nil, storageError("failed to load token", err)
	}

	if token.MerchantID != merchant.ID {
		return nil, authorizationError("token does not belong to this merchant")
	}
	if token.Status != models.TokenStatusActive {
		return nil, &ServiceError{
			Code:    ErrCodeTokenInactive,
			Message: fmt.Sprintf("token is %s", token.Status),
		}
	}
	if token.Expired(time.Now()) {
		return nil, &ServiceError{Code: ErrCodeTokenExpired, Message: "token has expired"}
	}

	tx := &models.Transaction{
		TokenID:         token.ID,
		MerchantID:      merchant.ID,
		DeviceID:        token.DeviceID,
		Amount:          amount,
		Currency:        currency,
		Status:          models.TransactionStatusCompleted,
		ReferenceNumber: referenceNumber,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, storageError("failed to create transaction", err)
	}

	s.dispatcher.Enqueue(merchant.ID, models.EventTransactionCreated, map[string]any{
		"transaction_id":   tx.ID.String(),
		"token_id":         token.ID.String(),
		"amount":           amount,
		"currency":         currency,
		"reference_number": referenceNumber,
		"created_at":       tx.CreatedAt.Format(time.RFC3339),
	})

	return &TransactionResult{Transaction: tx, RateRemaining: rate.Remaining}, nil
}

// ListTokens returns the merchant's tokens with card display fields.
func (s *TokenService) ListTokens(ctx context.Context, merchant *models.Merchant, status string, limit, offset int) ([]*models.TokenListing, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if status == "" {
		status = "active"
	}

	listings, err := s.tokens.ListByMerchant(ctx, merchant.ID, status, limit, offset)
	if err != nil {
		return nil, storageError("failed to fetch tokens", err)
	}

	return listings, nil
}

func rateLimitError() *ServiceError {
	return &ServiceError{
		Code:    ErrCodeRateLimitExceeded,
		Message: "rate limit exceeded, maximum 1000 requests per minute",
	}
}

// newTokenValue generates the opaque token secret: 32 random bytes, hex,
// with the tok_ prefix.
func newTokenValue() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("token value generation failed: %v", err))
	}
	return "tok_" + hex.EncodeToString(buf)
}
