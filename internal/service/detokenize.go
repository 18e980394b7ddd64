package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

// DetokenizeService is the gate in front of cleartext PANs. Every denied
// attempt is recorded as a failed compliance check before the error is
// returned.
type DetokenizeService struct {
	tokens repository.TokenRepository
	cards  repository.CardRepository
	crypto *CryptoService
	audit  *AuditService
	logger *slog.Logger
}

// NewDetokenizeService creates a new DetokenizeService
func NewDetokenizeService(
	tokens repository.TokenRepository,
	cards repository.CardRepository,
	crypto *CryptoService,
	audit *AuditService,
	logger *slog.Logger,
) *DetokenizeService {
	return &DetokenizeService{
		tokens: tokens,
		cards:  cards,
		crypto: crypto,
		audit:  audit,
		logger: logger,
	}
}

// DetokenizeResult carries the recovered card data plus the field list the
// caller must include in its audit record.
type DetokenizeResult struct {
	TokenID        uuid.UUID
	MerchantID     uuid.UUID
	PAN            string
	CardBrand      string
	LastFour       string
	CustomerID     string
	IssuerID       string
	Status         models.TokenStatus
	AccessedFields []string
	ExpiryMonth    int
	ExpiryYear     int
	KeyVersion     int
}

// Detokenize recovers the cleartext PAN behind an active token. Callers must
// hold the admin or auditor role; merchants never see PANs.
func (s *DetokenizeService) Detokenize(ctx context.Context, principal *auth.Principal, tokenValue string) (*DetokenizeResult, error) {
	if principal == nil {
		return nil, authenticationError("authentication required")
	}
	if !principal.HasAnyRole(auth.RoleAdmin, auth.RoleAuditor) {
		s.recordDenied(ctx, principal, tokenValue, "insufficient_role")
		return nil, authorizationError("detokenization requires admin or auditor role")
	}

	if tokenValue == "" {
		return nil, validationError("token_value is required")
	}

	token, err := s.tokens.FindByValue(ctx, tokenValue)
	if err == models.ErrNotFound {
		s.recordDenied(ctx, principal, tokenValue, "token_not_found")
		return nil, notFoundError("token not found")
	}
	if err != nil {
		return nil, storageError("failed to load token", err)
	}

	if !token.Usable(time.Now()) {
		reason := "token_" + string(token.Status)
		if token.Expired(time.Now()) {
			reason = "token_expired"
		}
		s.recordDenied(ctx, principal, tokenValue, reason)
		return nil, authorizationError(fmt.Sprintf("token is %s and cannot be detokenized", effectiveStatus(token)))
	}

	card, err := s.cards.FindByID(ctx, token.CardID)
	if err != nil {
		return nil, storageError("failed to load card data", err)
	}

	pan, version, err := s.crypto.Decrypt(card.PANEncrypted)
	if err != nil {
		return nil, err
	}

	s.logger.Info("detokenization granted",
		"token_id", token.ID,
		"user_id", principal.UserID,
		"role", principal.Role,
		"key_version", version,
	)

	return &DetokenizeResult{
		TokenID:        token.ID,
		MerchantID:     token.MerchantID,
		PAN:            pan,
		ExpiryMonth:    card.ExpiryMonth,
		ExpiryYear:     card.ExpiryYear,
		CardBrand:      card.CardBrand,
		LastFour:       card.LastFour,
		CustomerID:     card.CustomerID,
		IssuerID:       card.IssuerID,
		Status:         token.Status,
		KeyVersion:     version,
		AccessedFields: []string{"pan", "expiry_month", "expiry_year", "card_brand"},
	}, nil
}

func (s *DetokenizeService) recordDenied(ctx context.Context, principal *auth.Principal, tokenValue, reason string) {
	s.audit.LogComplianceCheck(ctx, "detokenization_attempt", models.ComplianceResultFail, map[string]any{
		"reason":      reason,
		"user_id":     principal.UserID.String(),
		"role":        string(principal.Role),
		"token_value": maskTokenValue(tokenValue),
	})
}

func effectiveStatus(token *models.Token) models.TokenStatus {
	if token.Status == models.TokenStatusActive && token.Expired(time.Now()) {
		return models.TokenStatusExpired
	}
	return token.Status
}

// maskTokenValue keeps only a recognizable suffix so denied attempts can be
// correlated without recording the full token secret.
func maskTokenValue(v string) string {
	if len(v) <= 8 {
		return v
	}
	return "..." + v[len(v)-8:]
}
