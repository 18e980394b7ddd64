package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/service"
)

type registerWebhookRequest struct {
	EventType string `json:"event_type"`
	URL       string `json:"url"`
}

type registerWebhookResponse struct {
	WebhookID string `json:"webhook_id"`
	EventType string `json:"event_type"`
	URL       string `json:"url"`
	Secret    string `json:"secret"`
	CreatedAt string `json:"created_at"`
}

// RegisterWebhook handles POST /api/v1/webhooks
func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	merchant := middleware.MerchantFromContext(r.Context())
	entry := newAuditEntry(r, "webhook_register", "webhook")
	entry.MerchantID = &merchant.ID

	var req registerWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "invalid request body",
			Err:     err,
		})
		return
	}

	webhook, err := h.webhookService.Register(r.Context(), merchant, req.EventType, req.URL)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.EntityID = &webhook.ID
	entry.RequestData = map[string]any{
		"event_type": webhook.EventType,
		"url":        webhook.URL,
	}

	// The signing secret is returned exactly once, at registration.
	h.ok(w, r, entry, http.StatusCreated, registerWebhookResponse{
		WebhookID: webhook.ID.String(),
		EventType: webhook.EventType,
		URL:       webhook.URL,
		Secret:    webhook.Secret,
		CreatedAt: webhook.CreatedAt.Format(time.RFC3339),
	})
}

// UnregisterWebhook handles DELETE /api/v1/webhooks/{id}
func (h *Handler) UnregisterWebhook(w http.ResponseWriter, r *http.Request) {
	merchant := middleware.MerchantFromContext(r.Context())
	entry := newAuditEntry(r, "webhook_unregister", "webhook")
	entry.MerchantID = &merchant.ID

	webhookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "webhook id must be a valid UUID",
			Err:     err,
		})
		return
	}
	entry.EntityID = &webhookID

	if err := h.webhookService.Unregister(r.Context(), merchant, webhookID); err != nil {
		h.fail(w, r, entry, err)
		return
	}

	h.ok(w, r, entry, http.StatusNoContent, nil)
}
