package handlers

import (
	"net/http"

	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/service"
)

type detokenizeRequest struct {
	TokenValue string `json:"token_value"`
}

type detokenizeResponse struct {
	TokenID     string `json:"token_id"`
	PAN         string `json:"pan"`
	LastFour    string `json:"last_four"`
	CardBrand   string `json:"card_brand,omitempty"`
	CustomerID  string `json:"customer_id,omitempty"`
	IssuerID    string `json:"issuer_id,omitempty"`
	MerchantID  string `json:"merchant_id"`
	Status      string `json:"status"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	KeyVersion  int    `json:"key_version"`
}

// Detokenize handles POST /api/v1/detokenize
func (h *Handler) Detokenize(w http.ResponseWriter, r *http.Request) {
	entry := newAuditEntry(r, "detokenize", "token")

	principal, err := auth.ParseBearer(r.Header.Get("Authorization"), []byte(h.vaultCfg.SessionSecret))
	if err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeAuthenticationRequired,
			Message: "a valid bearer token is required",
			Err:     err,
		})
		return
	}
	entry.UserID = &principal.UserID

	var req detokenizeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "invalid request body",
			Err:     err,
		})
		return
	}

	result, err := h.detokenizeService.Detokenize(r.Context(), principal, req.TokenValue)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.AccessedFields = result.AccessedFields
	entry.ComplianceFlags = map[string]any{
		"pci_dss":       "detokenization_event",
		"data_accessed": "full_pan",
	}
	entry.RequestData = map[string]any{
		"role":        string(principal.Role),
		"key_version": result.KeyVersion,
	}

	entry.EntityID = &result.TokenID

	h.ok(w, r, entry, http.StatusOK, detokenizeResponse{
		TokenID:     result.TokenID.String(),
		PAN:         result.PAN,
		LastFour:    result.LastFour,
		CardBrand:   result.CardBrand,
		CustomerID:  result.CustomerID,
		IssuerID:    result.IssuerID,
		MerchantID:  result.MerchantID.String(),
		Status:      string(result.Status),
		ExpiryMonth: result.ExpiryMonth,
		ExpiryYear:  result.ExpiryYear,
		KeyVersion:  result.KeyVersion,
	})
}
