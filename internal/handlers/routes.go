package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/panvault/panvault/internal/config"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/dispatch"
	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/repository"
	"github.com/panvault/panvault/internal/service"
)

// NewRouter wires the repositories, services and routes and returns the root
// handler together with the webhook dispatch pool. The caller owns the
// pool's lifecycle.
func NewRouter(
	database *db.DB,
	cfg *config.Config,
	logger *slog.Logger,
) (http.Handler, *dispatch.Pool, error) {
	masterKey, err := cfg.Vault.MasterKey()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid master key: %w", err)
	}
	cryptoService, err := service.NewCryptoService(masterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize crypto service: %w", err)
	}

	merchantRepo := repository.NewMerchantRepository(database)
	cardRepo := repository.NewCardRepository(database)
	tokenRepo := repository.NewTokenRepository(database)
	transactionRepo := repository.NewTransactionRepository(database)
	keyRepo := repository.NewKeyRepository(database)
	webhookRepo := repository.NewWebhookRepository(database)
	riskRepo := repository.NewRiskRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	rateLimitRepo := repository.NewRateLimitRepository(database)

	auditService := service.NewAuditService(auditRepo, logger)
	keyService := service.NewKeyService(keyRepo, cryptoService, auditService, cfg.Vault.KeyLifetime, logger)
	limiter := service.NewRateLimiter(rateLimitRepo, cfg.RateLimit.Window, cfg.RateLimit.Limit)
	webhookService := service.NewWebhookService(webhookRepo, cfg.Webhook.Timeout, logger)
	pool := dispatch.NewPool(webhookService, cfg.Webhook.WorkerCount, cfg.Webhook.QueueSize, logger)

	tokenService := service.NewTokenService(
		tokenRepo, cardRepo, transactionRepo,
		cryptoService, keyService, limiter, pool, auditService,
		cfg.Vault.TokenLifetime, logger,
	)
	detokenizeService := service.NewDetokenizeService(tokenRepo, cardRepo, cryptoService, auditService, logger)
	riskService := service.NewRiskService(merchantRepo, transactionRepo, riskRepo, logger)
	complianceService := service.NewComplianceService(tokenRepo, merchantRepo, riskRepo, keyRepo, auditService, logger)

	handler := NewHandler(
		tokenService, detokenizeService, keyService, riskService,
		webhookService, complianceService, auditService,
		database, &cfg.Vault, logger,
	)

	merchantAuth := middleware.MerchantAuth(merchantRepo, auditService, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("POST /api/v1/tokenize", merchantAuth(http.HandlerFunc(handler.Tokenize)))
	mux.Handle("POST /api/v1/token-status", merchantAuth(http.HandlerFunc(handler.UpdateTokenStatus)))
	mux.Handle("GET /api/v1/tokens", merchantAuth(http.HandlerFunc(handler.ListTokens)))
	mux.Handle("POST /api/v1/transactions", merchantAuth(http.HandlerFunc(handler.CreateTransaction)))
	mux.Handle("POST /api/v1/webhooks", merchantAuth(http.HandlerFunc(handler.RegisterWebhook)))
	mux.Handle("DELETE /api/v1/webhooks/{id}", merchantAuth(http.HandlerFunc(handler.UnregisterWebhook)))
	mux.HandleFunc("POST /api/v1/detokenize", handler.Detokenize)
	mux.HandleFunc("POST /api/v1/key-rotation", handler.RotateKey)
	mux.HandleFunc("POST /api/v1/risk-score", handler.ScoreRisk)
	mux.HandleFunc("POST /api/v1/compliance-check", handler.RunComplianceChecks)

	return mux, pool, nil
}
