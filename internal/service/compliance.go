package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

const (
	// reviewBacklogThreshold is the number of unresolved high-risk reviews
	// that turns the backlog check into a warning.
	reviewBacklogThreshold = 10
	// maxKeyAge is how old the active encryption key may grow before the
	// key-age check warns.
	maxKeyAge = 30 * 24 * time.Hour
)

// ComplianceService runs the scheduled posture checks and records one
// compliance log row per check per run.
type ComplianceService struct {
	tokens    repository.TokenRepository
	merchants repository.MerchantRepository
	risks     repository.RiskRepository
	keys      repository.KeyRepository
	audit     *AuditService
	logger    *slog.Logger
}

// NewComplianceService creates a new ComplianceService
func NewComplianceService(
	tokens repository.TokenRepository,
	merchants repository.MerchantRepository,
	risks repository.RiskRepository,
	keys repository.KeyRepository,
	audit *AuditService,
	logger *slog.Logger,
) *ComplianceService {
	return &ComplianceService{
		tokens:    tokens,
		merchants: merchants,
		risks:     risks,
		keys:      keys,
		audit:     audit,
		logger:    logger,
	}
}

// CheckOutcome is the recorded result of a single compliance check.
type CheckOutcome struct {
	Details   map[string]any          `json:"details"`
	CheckType string                  `json:"check_type"`
	Result    models.ComplianceResult `json:"result"`
}

// ReportSummary tallies check results for one run.
type ReportSummary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failures int `json:"failures"`
}

// ComplianceReport is the outcome of one full run.
type ComplianceReport struct {
	RanAt   time.Time               `json:"ran_at"`
	Checks  []CheckOutcome          `json:"checks"`
	Summary ReportSummary           `json:"summary"`
	Overall models.ComplianceResult `json:"overall"`
}

// RunChecks executes every posture check, records each outcome, and returns
// the full report. The overall result is the worst individual result.
func (s *ComplianceService) RunChecks(ctx context.Context) (*ComplianceReport, error) {
	now := time.Now()
	var checks []CheckOutcome

	expired, err := s.tokens.CountExpiredActive(ctx)
	if err != nil {
		return nil, storageError("failed to count expired active tokens", err)
	}
	result := models.ComplianceResultPass
	if expired > 0 {
		result = models.ComplianceResultFail
	}
	checks = append(checks, s.record(ctx, "expired_active_tokens", result, map[string]any{
		"count": expired,
	}))

	suspended, err := s.merchants.CountByStatus(ctx, models.MerchantStatusSuspended)
	if err != nil {
		return nil, storageError("failed to count suspended merchants", err)
	}
	checks = append(checks, s.record(ctx, "suspended_merchants", models.ComplianceResultPass, map[string]any{
		"count": suspended,
	}))

	backlog, err := s.risks.CountPendingReviews(ctx, 80, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, storageError("failed to count pending risk reviews", err)
	}
	result = models.ComplianceResultPass
	if backlog > reviewBacklogThreshold {
		result = models.ComplianceResultWarning
	}
	checks = append(checks, s.record(ctx, "high_risk_review_backlog", result, map[string]any{
		"count":     backlog,
		"threshold": reviewBacklogThreshold,
	}))

	key, err := s.keys.FindActive(ctx)
	if err != nil && err != models.ErrNotFound {
		return nil, storageError("failed to load active encryption key", err)
	}
	result = models.ComplianceResultPass
	details := map[string]any{}
	if err == models.ErrNotFound {
		result = models.ComplianceResultWarning
		details["reason"] = "no active encryption key"
	} else {
		age := now.Sub(key.CreatedAt)
		details["key_version"] = key.KeyVersion
		details["key_age_days"] = int(age.Hours() / 24)
		if age > maxKeyAge {
			result = models.ComplianceResultWarning
			details["reason"] = "active key exceeds rotation window"
		}
	}
	checks = append(checks, s.record(ctx, "encryption_key_age", result, details))

	report := &ComplianceReport{
		RanAt:   now,
		Checks:  checks,
		Summary: summarize(checks),
		Overall: worstResult(checks),
	}

	s.logger.Info("compliance run complete",
		"overall", report.Overall,
		"checks", len(checks),
	)

	return report, nil
}

func (s *ComplianceService) record(ctx context.Context, checkType string, result models.ComplianceResult, details map[string]any) CheckOutcome {
	s.audit.LogComplianceCheck(ctx, checkType, result, details)
	return CheckOutcome{CheckType: checkType, Result: result, Details: details}
}

func summarize(checks []CheckOutcome) ReportSummary {
	summary := ReportSummary{Total: len(checks)}
	for _, c := range checks {
		switch c.Result {
		case models.ComplianceResultFail:
			summary.Failures++
		case models.ComplianceResultWarning:
			summary.Warnings++
		default:
			summary.Passed++
		}
	}
	return summary
}

func worstResult(checks []CheckOutcome) models.ComplianceResult {
	overall := models.ComplianceResultPass
	for _, c := range checks {
		switch c.Result {
		case models.ComplianceResultFail:
			return models.ComplianceResultFail
		case models.ComplianceResultWarning:
			overall = models.ComplianceResultWarning
		}
	}
	return overall
}
