// Package handlers implements HTTP handlers for the vault API.
package handlers

import (
	"context"
	"log/slog"

	"github.com/panvault/panvault/internal/config"
	"github.com/panvault/panvault/internal/service"
)

// HealthChecker is the probe the health endpoint runs against the database.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Handler carries the service dependencies for all endpoints.
type Handler struct {
	tokenService      *service.TokenService
	detokenizeService *service.DetokenizeService
	keyService        *service.KeyService
	riskService       *service.RiskService
	webhookService    *service.WebhookService
	complianceService *service.ComplianceService
	auditService      *service.AuditService
	healthChecker     HealthChecker
	vaultCfg          *config.VaultConfig
	logger            *slog.Logger
}

// NewHandler creates a new Handler with injected service dependencies.
func NewHandler(
	tokenService *service.TokenService,
	detokenizeService *service.DetokenizeService,
	keyService *service.KeyService,
	riskService *service.RiskService,
	webhookService *service.WebhookService,
	complianceService *service.ComplianceService,
	auditService *service.AuditService,
	healthChecker HealthChecker,
	vaultCfg *config.VaultConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tokenService:      tokenService,
		detokenizeService: detokenizeService,
		keyService:        keyService,
		riskService:       riskService,
		webhookService:    webhookService,
		complianceService: complianceService,
		auditService:      auditService,
		healthChecker:     healthChecker,
		vaultCfg:          vaultCfg,
		logger:            logger,
	}
}
