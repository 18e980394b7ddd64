package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/service"
)

type tokenizeRequest struct {
	PAN         string `json:"pan"`
	CardBrand   string `json:"card_brand,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	CustomerID  string `json:"customer_id,omitempty"`
	IssuerID    string `json:"issuer_id,omitempty"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
}

type tokenizeResponse struct {
	TokenID   string `json:"token_id"`
	Token     string `json:"token"`
	LastFour  string `json:"last_four"`
	CardBrand string `json:"card_brand,omitempty"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// Tokenize handles POST /api/v1/tokenize
func (h *Handler) Tokenize(w http.ResponseWriter, r *http.Request) {
	merchant := middleware.MerchantFromContext(r.Context())
	entry := newAuditEntry(r, "tokenize", "token")
	entry.MerchantID = &merchant.ID

	var req tokenizeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "invalid request body",
			Err:     err,
		})
		return
	}

	result, err := h.tokenService.Tokenize(r.Context(), merchant, service.TokenizeRequest{
		PAN:         req.PAN,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CardBrand:   req.CardBrand,
		DeviceID:    req.DeviceID,
		CustomerID:  req.CustomerID,
		IssuerID:    req.IssuerID,
	})
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.EntityID = &result.Token.ID
	entry.RequestData = map[string]any{
		"last_four":  result.Card.LastFour,
		"card_brand": result.Card.CardBrand,
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.RateRemaining))
	h.ok(w, r, entry, http.StatusCreated, tokenizeResponse{
		TokenID:   result.Token.ID.String(),
		Token:     result.Token.TokenValue,
		LastFour:  result.Card.LastFour,
		CardBrand: result.Card.CardBrand,
		Status:    string(result.Token.Status),
		ExpiresAt: result.Token.ExpiresAt.Format(time.RFC3339),
		CreatedAt: result.Token.CreatedAt.Format(time.RFC3339),
	})
}
