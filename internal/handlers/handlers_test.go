package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/config"
	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository/mocks"
	"github.com/panvault/panvault/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPinger struct {
	err   error
	delay time.Duration
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.err
}

type noopDispatcher struct{}

func (noopDispatcher) Enqueue(merchantID uuid.UUID, eventType string, payload map[string]any) {}

type handlerFixture struct {
	handler    *Handler
	merchants  *mocks.MockMerchantRepository
	cards      *mocks.MockCardRepository
	tokens     *mocks.MockTokenRepository
	txs        *mocks.MockTransactionRepository
	keys       *mocks.MockKeyRepository
	webhooks   *mocks.MockWebhookRepository
	risks      *mocks.MockRiskRepository
	audits     *mocks.MockAuditRepository
	rateLimits *mocks.MockRateLimitRepository
	crypto     *service.CryptoService
	vaultCfg   *config.VaultConfig
	pinger     *stubPinger
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	f := &handlerFixture{
		merchants:  mocks.NewMockMerchantRepository(t),
		cards:      mocks.NewMockCardRepository(t),
		tokens:     mocks.NewMockTokenRepository(t),
		txs:        mocks.NewMockTransactionRepository(t),
		keys:       mocks.NewMockKeyRepository(t),
		webhooks:   mocks.NewMockWebhookRepository(t),
		risks:      mocks.NewMockRiskRepository(t),
		audits:     mocks.NewMockAuditRepository(t),
		rateLimits: mocks.NewMockRateLimitRepository(t),
		pinger:     &stubPinger{},
	}

	masterKey := bytes.Repeat([]byte{0x42}, 32)
	crypto, err := service.NewCryptoService(masterKey)
	require.NoError(t, err)
	f.crypto = crypto

	f.vaultCfg = &config.VaultConfig{
		MasterKeyHex:  hex.EncodeToString(masterKey),
		SessionSecret: "test-session-secret",
		CronSecret:    "test-cron-secret",
		ServiceSecret: "test-service-secret",
		SessionTTL:    time.Hour,
		TokenLifetime: 8760 * time.Hour,
		KeyLifetime:   720 * time.Hour,
	}

	logger := testLogger()
	auditSvc := service.NewAuditService(f.audits, logger)
	keySvc := service.NewKeyService(f.keys, crypto, auditSvc, f.vaultCfg.KeyLifetime, logger)
	limiter := service.NewRateLimiter(f.rateLimits, time.Minute, 1000)
	webhookSvc := service.NewWebhookService(f.webhooks, 2*time.Second, logger)
	tokenSvc := service.NewTokenService(
		f.tokens, f.cards, f.txs,
		crypto, keySvc, limiter, noopDispatcher{}, auditSvc,
		f.vaultCfg.TokenLifetime, logger,
	)
	detokSvc := service.NewDetokenizeService(f.tokens, f.cards, crypto, auditSvc, logger)
	riskSvc := service.NewRiskService(f.merchants, f.txs, f.risks, logger)
	complianceSvc := service.NewComplianceService(f.tokens, f.merchants, f.risks, f.keys, auditSvc, logger)

	f.handler = NewHandler(
		tokenSvc, detokSvc, keySvc, riskSvc,
		webhookSvc, complianceSvc, auditSvc,
		f.pinger, f.vaultCfg, logger,
	)
	return f
}

// mux builds the same routing table the server uses, on top of the fixture.
func (f *handlerFixture) mux(t *testing.T) *http.ServeMux {
	merchantAuth := middleware.MerchantAuth(f.merchants, service.NewAuditService(f.audits, testLogger()), testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", f.handler.Health)
	mux.Handle("POST /api/v1/tokenize", merchantAuth(http.HandlerFunc(f.handler.Tokenize)))
	mux.Handle("POST /api/v1/token-status", merchantAuth(http.HandlerFunc(f.handler.UpdateTokenStatus)))
	mux.Handle("GET /api/v1/tokens", merchantAuth(http.HandlerFunc(f.handler.ListTokens)))
	mux.Handle("POST /api/v1/transactions", merchantAuth(http.HandlerFunc(f.handler.CreateTransaction)))
	mux.Handle("POST /api/v1/webhooks", merchantAuth(http.HandlerFunc(f.handler.RegisterWebhook)))
	mux.Handle("DELETE /api/v1/webhooks/{id}", merchantAuth(http.HandlerFunc(f.handler.UnregisterWebhook)))
	mux.HandleFunc("POST /api/v1/detokenize", f.handler.Detokenize)
	mux.HandleFunc("POST /api/v1/key-rotation", f.handler.RotateKey)
	mux.HandleFunc("POST /api/v1/risk-score", f.handler.ScoreRisk)
	mux.HandleFunc("POST /api/v1/compliance-check", f.handler.RunComplianceChecks)
	return mux
}

func (f *handlerFixture) authedMerchant(apiKey string) *models.Merchant {
	merchant := &models.Merchant{ID: uuid.New(), APIKey: apiKey, Status: models.MerchantStatusActive}
	f.merchants.On("FindByAPIKey", mock.Anything, apiKey).Return(merchant, nil)
	return merchant
}

func (f *handlerFixture) expectAudits() {
	f.audits.On("Insert", mock.Anything, mock.AnythingOfType("*models.AuditLog")).Return(nil).Maybe()
	f.audits.On("InsertComplianceLog", mock.Anything, mock.AnythingOfType("*models.ComplianceLog")).Return(nil).Maybe()
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestTokenizeEndpoint(t *testing.T) {
	t.Run("issues a token and reports remaining budget", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		merchant := f.authedMerchant("pk_live_good")

		f.rateLimits.On("Increment", mock.Anything, merchant.ID, "tokenize", time.Minute, 1000).Return(true, 998, nil)
		f.keys.On("FindActive", mock.Anything).Return(&models.EncryptionKey{KeyVersion: 1}, nil)
		f.cards.On("Create", mock.Anything, mock.AnythingOfType("*models.Card")).Return(nil)
		f.tokens.On("Create", mock.Anything, mock.AnythingOfType("*models.Token")).Return(nil)

		rec := postJSON(t, f.mux(t), "/api/v1/tokenize", map[string]any{
			"pan":          "4111111111111111",
			"expiry_month": 12,
			"expiry_year":  time.Now().Year() + 2,
			"card_brand":   "visa",
		}, map[string]string{"x-api-key": "pk_live_good"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "998", rec.Header().Get("X-RateLimit-Remaining"))

		var body tokenizeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Token, "tok_")
		assert.Equal(t, "1111", body.LastFour)
		assert.Equal(t, "active", body.Status)
		assert.NotContains(t, rec.Body.String(), "4111111111111111")
	})

	t.Run("rate limit exhaustion is 429", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		merchant := f.authedMerchant("pk_live_good")

		f.rateLimits.On("Increment", mock.Anything, merchant.ID, "tokenize", time.Minute, 1000).Return(false, 0, nil)

		rec := postJSON(t, f.mux(t), "/api/v1/tokenize", map[string]any{
			"pan":          "4111111111111111",
			"expiry_month": 12,
			"expiry_year":  time.Now().Year() + 2,
		}, map[string]string{"x-api-key": "pk_live_good"})

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, service.ErrCodeRateLimitExceeded, body.Error)
	})

	t.Run("bad PAN is 400", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		merchant := f.authedMerchant("pk_live_good")

		f.rateLimits.On("Increment", mock.Anything, merchant.ID, "tokenize", time.Minute, 1000).Return(true, 997, nil)

		rec := postJSON(t, f.mux(t), "/api/v1/tokenize", map[string]any{
			"pan":          "1234",
			"expiry_month": 12,
			"expiry_year":  time.Now().Year() + 2,
		}, map[string]string{"x-api-key": "pk_live_good"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no api key is 401", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		rec := postJSON(t, f.mux(t), "/api/v1/tokenize", map[string]any{"pan": "4111111111111111"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCreateTransactionEndpoint(t *testing.T) {
	t.Run("records the transaction and reports remaining budget", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		merchant := f.authedMerchant("pk_live_good")

		token := &models.Token{
			ID:         uuid.New(),
			TokenValue: "tok_live",
			MerchantID: merchant.ID,
			Status:     models.TokenStatusActive,
			ExpiresAt:  time.Now().Add(time.Hour),
		}
		f.rateLimits.On("Increment", mock.Anything, merchant.ID, "create-transaction", time.Minute, 1000).Return(true, 997, nil)
		f.tokens.On("FindByValue", mock.Anything, "tok_live").Return(token, nil)
		f.txs.On("Create", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(nil)

		rec := postJSON(t, f.mux(t), "/api/v1/transactions", map[string]any{
			"token_value": "tok_live",
			"amount":      2500,
		}, map[string]string{"x-api-key": "pk_live_good"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "997", rec.Header().Get("X-RateLimit-Remaining"))

		var body transactionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "completed", body.Status)
		assert.Equal(t, "USD", body.Currency)
	})
}

func TestDetokenizeEndpoint(t *testing.T) {
	pan := "4111111111111111"

	seedToken := func(t *testing.T, f *handlerFixture) *models.Token {
		encrypted, err := f.crypto.Encrypt(pan, 1)
		require.NoError(t, err)

		cardID := uuid.New()
		token := &models.Token{
			ID:         uuid.New(),
			TokenValue: "tok_seeded",
			CardID:     cardID,
			MerchantID: uuid.New(),
			Status:     models.TokenStatusActive,
			ExpiresAt:  time.Now().Add(time.Hour),
		}
		f.tokens.On("FindByValue", mock.Anything, "tok_seeded").Return(token, nil)
		f.cards.On("FindByID", mock.Anything, cardID).Return(&models.Card{
			ID:           cardID,
			PANEncrypted: encrypted,
			LastFour:     "1111",
			CustomerID:   "cus_001",
			IssuerID:     "iss_001",
			ExpiryMonth:  12,
			ExpiryYear:   time.Now().Year() + 2,
		}, nil)
		return token
	}

	bearer := func(t *testing.T, f *handlerFixture, role auth.Role) string {
		token, err := auth.GenerateToken(auth.Principal{UserID: uuid.New(), Role: role}, []byte(f.vaultCfg.SessionSecret), time.Hour)
		require.NoError(t, err)
		return "Bearer " + token
	}

	t.Run("admin recovers the PAN and card references", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		token := seedToken(t, f)

		rec := postJSON(t, f.mux(t), "/api/v1/detokenize",
			map[string]any{"token_value": token.TokenValue},
			map[string]string{"Authorization": bearer(t, f, auth.RoleAdmin)})

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, pan, body["pan"])
		assert.Equal(t, float64(1), body["key_version"])
		assert.Equal(t, token.ID.String(), body["token_id"])
		assert.Equal(t, token.MerchantID.String(), body["merchant_id"])
		assert.Equal(t, "cus_001", body["customer_id"])
		assert.Equal(t, "iss_001", body["issuer_id"])
		assert.Equal(t, "active", body["status"])
	})

	t.Run("merchant session is 403", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		rec := postJSON(t, f.mux(t), "/api/v1/detokenize",
			map[string]any{"token_value": "tok_seeded"},
			map[string]string{"Authorization": bearer(t, f, auth.RoleMerchant)})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no bearer is 401", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		rec := postJSON(t, f.mux(t), "/api/v1/detokenize", map[string]any{"token_value": "tok_x"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signing secret is 401", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		forged, err := auth.GenerateToken(auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin}, []byte("other-secret"), time.Hour)
		require.NoError(t, err)

		rec := postJSON(t, f.mux(t), "/api/v1/detokenize",
			map[string]any{"token_value": "tok_x"},
			map[string]string{"Authorization": "Bearer " + forged})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestKeyRotationEndpoint(t *testing.T) {
	t.Run("cron secret rotates", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		currentID := uuid.New()
		f.keys.On("FindActive", mock.Anything).Return(&models.EncryptionKey{ID: currentID, KeyVersion: 1}, nil)
		f.keys.On("Create", mock.Anything, mock.AnythingOfType("*models.EncryptionKey")).Return(nil)
		f.keys.On("Deactivate", mock.Anything, currentID).Return(nil)

		rec := postJSON(t, f.mux(t), "/api/v1/key-rotation", map[string]any{},
			map[string]string{"X-Cron-Secret": "test-cron-secret"})

		assert.Equal(t, http.StatusOK, rec.Code)

		var body keyRotationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 2, body.NewVersion)
		assert.Equal(t, 1, body.PreviousVersion)
		assert.Equal(t, "scheduler", body.RotatedBy)
	})

	t.Run("wrong cron secret without bearer is 401", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		rec := postJSON(t, f.mux(t), "/api/v1/key-rotation", map[string]any{},
			map[string]string{"X-Cron-Secret": "wrong"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRiskScoreEndpoint(t *testing.T) {
	t.Run("requires the service secret", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		rec := postJSON(t, f.mux(t), "/api/v1/risk-score", map[string]any{
			"merchant_id": uuid.New().String(),
			"amount":      1000,
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("scores and persists an event", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()

		merchantID := uuid.New()
		f.merchants.On("FindByID", mock.Anything, merchantID).Return(&models.Merchant{
			ID:     merchantID,
			Status: models.MerchantStatusActive,
		}, nil)
		f.txs.On("CountByDevice", mock.Anything, "").Return(0, nil)
		f.risks.On("Create", mock.Anything, mock.AnythingOfType("*models.RiskEvent")).Return(nil)

		rec := postJSON(t, f.mux(t), "/api/v1/risk-score", map[string]any{
			"merchant_id": merchantID.String(),
			"amount":      2500,
		}, map[string]string{"X-Service-Secret": "test-service-secret"})

		assert.Equal(t, http.StatusOK, rec.Code)

		var body riskScoreResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		// 10 amount + 30 unknown device
		assert.Equal(t, 40, body.RiskScore)
		assert.Equal(t, "challenge", body.Decision)
	})
}

func TestComplianceCheckEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.expectAudits()

	f.tokens.On("CountExpiredActive", mock.Anything).Return(0, nil)
	f.merchants.On("CountByStatus", mock.Anything, models.MerchantStatusSuspended).Return(0, nil)
	f.risks.On("CountPendingReviews", mock.Anything, 80, mock.AnythingOfType("time.Time")).Return(0, nil)
	f.keys.On("FindActive", mock.Anything).Return(&models.EncryptionKey{
		KeyVersion: 1,
		CreatedAt:  time.Now().Add(-time.Hour),
	}, nil)

	rec := postJSON(t, f.mux(t), "/api/v1/compliance-check", map[string]any{},
		map[string]string{"X-Service-Secret": "test-service-secret"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var report service.ComplianceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, models.ComplianceResultPass, report.Overall)
	assert.Len(t, report.Checks, 4)
}

func TestWebhookEndpoints(t *testing.T) {
	t.Run("register returns the secret once", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		f.authedMerchant("pk_live_good")

		f.webhooks.On("Create", mock.Anything, mock.AnythingOfType("*models.Webhook")).Return(nil)

		rec := postJSON(t, f.mux(t), "/api/v1/webhooks", map[string]any{
			"event_type": "token_revoked",
			"url":        "https://example.com/hooks",
		}, map[string]string{"x-api-key": "pk_live_good"})

		assert.Equal(t, http.StatusCreated, rec.Code)

		var body registerWebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Secret, "whsec_")
	})

	t.Run("unregister an owned webhook is 204", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.expectAudits()
		merchant := f.authedMerchant("pk_live_good")
		webhookID := uuid.New()

		f.webhooks.On("Delete", mock.Anything, webhookID, merchant.ID).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/webhooks/"+webhookID.String(), nil)
		req.Header.Set("x-api-key", "pk_live_good")
		rec := httptest.NewRecorder()
		f.mux(t).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newHandlerFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		f.mux(t).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "ok", body.Dependencies["database"].Status)
	})

	t.Run("unreachable database is 503", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.pinger.err = assert.AnError

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		f.mux(t).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body.Status)
	})
}
