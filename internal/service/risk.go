package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

// RiskService scores transactions from three weighted factors: transaction
// amount, merchant standing and device history.
type RiskService struct {
	merchants    repository.MerchantRepository
	transactions repository.TransactionRepository
	risks        repository.RiskRepository
	logger       *slog.Logger
}

// NewRiskService creates a new RiskService
func NewRiskService(
	merchants repository.MerchantRepository,
	transactions repository.TransactionRepository,
	risks repository.RiskRepository,
	logger *slog.Logger,
) *RiskService {
	return &RiskService{
		merchants:    merchants,
		transactions: transactions,
		risks:        risks,
		logger:       logger,
	}
}

// ScoreRequest identifies the transaction being assessed. Amount is in minor
// units. TransactionID and TokenID are optional back references.
type ScoreRequest struct {
	TransactionID *uuid.UUID
	TokenID       *uuid.UUID
	DeviceID      string
	MerchantID    uuid.UUID
	Amount        int64
}

// Score computes the additive risk score, maps it onto a decision band and
// persists the assessment as an immutable risk event.
//
// The sum is deliberately not clamped to 100: all bands are >= comparisons,
// so a score above 100 still lands in the review band.
func (s *RiskService) Score(ctx context.Context, req ScoreRequest) (*models.RiskEvent, error) {
	if req.Amount <= 0 {
		return nil, validationError("amount must be a positive integer in minor units")
	}

	merchant, err := s.merchants.FindByID(ctx, req.MerchantID)
	if err == models.ErrNotFound {
		return nil, notFoundError("merchant not found")
	}
	if err != nil {
		return nil, storageError("failed to load merchant", err)
	}

	var reasons []string

	amountFactor := int(req.Amount * 40 / 10000)
	if amountFactor > 40 {
		amountFactor = 40
	}
	if amountFactor >= 40 {
		reasons = append(reasons, "high_transaction_amount")
	}

	var merchantFactor int
	switch merchant.Status {
	case models.MerchantStatusPending:
		merchantFactor = 30
		reasons = append(reasons, "merchant_pending_review")
	case models.MerchantStatusSuspended:
		merchantFactor = 40
		reasons = append(reasons, "merchant_suspended")
	}

	priorTx, err := s.transactions.CountByDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, storageError("failed to load device history", err)
	}
	deviceFactor := 30 - 2*priorTx
	if deviceFactor < 0 {
		deviceFactor = 0
	}
	if deviceFactor >= 20 {
		reasons = append(reasons, "limited_device_history")
	}

	score := amountFactor + merchantFactor + deviceFactor
	decision, severity := decisionForScore(score)

	event := &models.RiskEvent{
		TransactionID: req.TransactionID,
		TokenID:       req.TokenID,
		EventType:     "transaction_risk_assessment",
		RiskScore:     score,
		Severity:      severity,
		Decision:      decision,
		Reason:        strings.Join(reasons, ","),
	}
	if err := s.risks.Create(ctx, event); err != nil {
		return nil, storageError("failed to record risk event", err)
	}

	if score >= 80 {
		s.logger.Warn("high risk transaction flagged for review",
			"risk_score", score,
			"merchant_id", req.MerchantID,
			"decision", decision,
			"reasons", event.Reason,
		)
	}

	return event, nil
}

func decisionForScore(score int) (models.RiskDecision, models.RiskSeverity) {
	switch {
	case score >= 80:
		return models.RiskDecisionReview, models.RiskSeverityCritical
	case score >= 60:
		return models.RiskDecisionChallenge, models.RiskSeverityHigh
	case score >= 40:
		return models.RiskDecisionChallenge, models.RiskSeverityMedium
	default:
		return models.RiskDecisionApprove, models.RiskSeverityLow
	}
}
