package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/service"
)

type tokenStatusRequest struct {
	TokenID string `json:"token_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

type tokenStatusResponse struct {
	TokenID   string `json:"token_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	UpdatedAt string `json:"updated_at"`
}

// UpdateTokenStatus handles POST /api/v1/token-status
func (h *Handler) UpdateTokenStatus(w http.ResponseWriter, r *http.Request) {
	merchant := middleware.MerchantFromContext(r.Context())
	entry := newAuditEntry(r, "token_status_update", "token")
	entry.MerchantID = &merchant.ID

	var req tokenStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "invalid request body",
			Err:     err,
		})
		return
	}

	tokenID, err := uuid.Parse(req.TokenID)
	if err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "token_id must be a valid UUID",
			Err:     err,
		})
		return
	}
	entry.EntityID = &tokenID

	result, err := h.tokenService.UpdateStatus(r.Context(), merchant, tokenID, models.TokenStatus(req.Status), req.Reason)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.RequestData = map[string]any{
		"old_status": string(result.OldStatus),
		"new_status": string(result.Token.Status),
		"reason":     req.Reason,
	}

	h.ok(w, r, entry, http.StatusOK, tokenStatusResponse{
		TokenID:   result.Token.ID.String(),
		OldStatus: string(result.OldStatus),
		NewStatus: string(result.Token.Status),
		UpdatedAt: result.Token.UpdatedAt.Format(time.RFC3339),
	})
}
