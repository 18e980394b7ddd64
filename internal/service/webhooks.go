package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

// maxResponseBody caps how much of an endpoint's response is persisted per
// delivery attempt.
const maxResponseBody = 4096

var validEventTypes = map[string]bool{
	models.EventTokenIssued:        true,
	models.EventTokenSuspended:     true,
	models.EventTokenRevoked:       true,
	models.EventTransactionCreated: true,
}

// WebhookService manages merchant subscriptions and delivers signed event
// payloads to them.
type WebhookService struct {
	repo   repository.WebhookRepository
	client *http.Client
	logger *slog.Logger
}

// NewWebhookService creates a new WebhookService. The timeout bounds each
// outbound delivery attempt.
func NewWebhookService(repo repository.WebhookRepository, timeout time.Duration, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		repo:   repo,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Register creates an active subscription for the merchant and returns it
// with the freshly generated signing secret. The secret is shown once.
func (s *WebhookService) Register(ctx context.Context, merchant *models.Merchant, eventType, rawURL string) (*models.Webhook, error) {
	if !validEventTypes[eventType] {
		return nil, validationError(fmt.Sprintf("unknown event type %q", eventType))
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, validationError("url must be a valid absolute URL")
	}

	webhook := &models.Webhook{
		MerchantID: merchant.ID,
		EventType:  eventType,
		URL:        rawURL,
		Secret:     newWebhookSecret(),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, webhook); err != nil {
		return nil, storageError("failed to register webhook", err)
	}

	s.logger.Info("webhook registered",
		"webhook_id", webhook.ID,
		"merchant_id", merchant.ID,
		"event_type", eventType,
	)

	return webhook, nil
}

// Unregister deletes a subscription. Merchants can only delete their own.
func (s *WebhookService) Unregister(ctx context.Context, merchant *models.Merchant, webhookID uuid.UUID) error {
	err := s.repo.Delete(ctx, webhookID, merchant.ID)
	if err == models.ErrNotFound {
		return notFoundError("webhook not found")
	}
	if err != nil {
		return storageError("failed to delete webhook", err)
	}
	return nil
}

// TriggerResult summarizes one fan-out.
type TriggerResult struct {
	Attempted int
	Delivered int
}

// Trigger delivers the payload to every active subscription the merchant has
// for the event type. Deliveries run concurrently and each attempt is
// recorded; a failing endpoint never affects the others and never surfaces
// an error to the caller's business operation.
func (s *WebhookService) Trigger(ctx context.Context, merchantID uuid.UUID, eventType string, payload map[string]any) (*TriggerResult, error) {
	webhooks, err := s.repo.FindActive(ctx, merchantID, eventType)
	if err != nil {
		return nil, storageError("failed to load webhook subscriptions", err)
	}
	if len(webhooks) == 0 {
		return &TriggerResult{}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, validationError("payload is not serializable")
	}

	var wg sync.WaitGroup
	delivered := make([]bool, len(webhooks))
	for i, wh := range webhooks {
		wg.Add(1)
		go func(i int, wh *models.Webhook) {
			defer wg.Done()
			delivered[i] = s.deliver(ctx, wh, eventType, payload, body)
		}(i, wh)
	}
	wg.Wait()

	result := &TriggerResult{Attempted: len(webhooks)}
	for _, ok := range delivered {
		if ok {
			result.Delivered++
		}
	}

	s.logger.Info("webhook fan-out complete",
		"merchant_id", merchantID,
		"event_type", eventType,
		"attempted", result.Attempted,
		"delivered", result.Delivered,
	)

	return result, nil
}

// deliver POSTs one signed payload and records the attempt. Returns true
// when the endpoint answered with a 2xx.
func (s *WebhookService) deliver(ctx context.Context, webhook *models.Webhook, eventType string, payload map[string]any, body []byte) bool {
	delivery := &models.WebhookDelivery{
		WebhookID:    webhook.ID,
		EventType:    eventType,
		Payload:      payload,
		AttemptCount: 1,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		delivery.ResponseBody = err.Error()
		s.record(ctx, delivery)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", eventType)
	req.Header.Set("X-Webhook-Signature", SignPayload(webhook.Secret, body))

	resp, err := s.client.Do(req)
	if err != nil {
		// network failure: status 0, error string as the body
		delivery.ResponseBody = err.Error()
		s.record(ctx, delivery)
		s.logger.Warn("webhook delivery failed",
			"webhook_id", webhook.ID,
			"url", webhook.URL,
			"error", err,
		)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	now := time.Now()
	delivery.ResponseStatus = resp.StatusCode
	delivery.ResponseBody = string(respBody)
	delivery.DeliveredAt = &now
	s.record(ctx, delivery)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (s *WebhookService) record(ctx context.Context, delivery *models.WebhookDelivery) {
	if err := s.repo.RecordDelivery(ctx, delivery); err != nil {
		s.logger.Error("failed to record webhook delivery",
			"webhook_id", delivery.WebhookID,
			"error", err,
		)
	}
}

// SignPayload computes the hex HMAC-SHA256 signature endpoints use to verify
// payload authenticity.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookSecret() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("webhook secret generation failed: %v", err))
	}
	return "whsec_" + hex.EncodeToString(buf)
}
