package service

import (
	"context"
	"log/slog"

	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

// AuditService is the passive sink every other component writes to. Writes
// are best effort: a failed audit insert is logged locally and never
// surfaced, because an audit failure must not block the primary operation.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// LogAudit appends one audit row. Never returns an error.
func (s *AuditService) LogAudit(ctx context.Context, entry *models.AuditLog) {
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log",
			"error", err,
			"operation_type", entry.OperationType,
			"entity_type", entry.EntityType,
		)
	}
}

// LogComplianceCheck appends one compliance check row with a severity
// derived from the result. Never returns an error.
func (s *AuditService) LogComplianceCheck(ctx context.Context, checkType string, result models.ComplianceResult, details map[string]any) {
	check := &models.ComplianceLog{
		CheckType: checkType,
		Result:    result,
		Severity:  severityForResult(result),
		Details:   details,
	}

	if err := s.repo.InsertComplianceLog(ctx, check); err != nil {
		s.logger.Error("failed to write compliance log",
			"error", err,
			"check_type", checkType,
			"result", result,
		)
	}
}

func severityForResult(result models.ComplianceResult) string {
	switch result {
	case models.ComplianceResultFail:
		return "critical"
	case models.ComplianceResultWarning:
		return "warning"
	default:
		return "info"
	}
}
