package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/service"
)

type riskScoreRequest struct {
	MerchantID    string `json:"merchant_id"`
	DeviceID      string `json:"device_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	TokenID       string `json:"token_id,omitempty"`
	Amount        int64  `json:"amount"`
}

type riskScoreResponse struct {
	EventID   string `json:"event_id"`
	Decision  string `json:"decision"`
	Severity  string `json:"severity"`
	Reasons   string `json:"reasons,omitempty"`
	RiskScore int    `json:"risk_score"`
}

// serviceAuth verifies the pre-shared secret internal callers present on
// service-to-service routes.
func (h *Handler) serviceAuth(r *http.Request) bool {
	secret := r.Header.Get("X-Service-Secret")
	return secret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(h.vaultCfg.ServiceSecret)) == 1
}

// ScoreRisk handles POST /api/v1/risk-score
func (h *Handler) ScoreRisk(w http.ResponseWriter, r *http.Request) {
	entry := newAuditEntry(r, "risk_assessment", "risk_event")

	if !h.serviceAuth(r) {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeAuthenticationRequired,
			Message: "a valid service secret is required",
		})
		return
	}

	var req riskScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "invalid request body",
			Err:     err,
		})
		return
	}

	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "merchant_id must be a valid UUID",
			Err:     err,
		})
		return
	}
	entry.MerchantID = &merchantID

	scoreReq := service.ScoreRequest{
		MerchantID: merchantID,
		Amount:     req.Amount,
		DeviceID:   req.DeviceID,
	}
	if req.TransactionID != "" {
		txID, err := uuid.Parse(req.TransactionID)
		if err != nil {
			h.fail(w, r, entry, &service.ServiceError{
				Code:    service.ErrCodeValidationFailed,
				Message: "transaction_id must be a valid UUID",
				Err:     err,
			})
			return
		}
		scoreReq.TransactionID = &txID
	}
	if req.TokenID != "" {
		tokenID, err := uuid.Parse(req.TokenID)
		if err != nil {
			h.fail(w, r, entry, &service.ServiceError{
				Code:    service.ErrCodeValidationFailed,
				Message: "token_id must be a valid UUID",
				Err:     err,
			})
			return
		}
		scoreReq.TokenID = &tokenID
	}

	event, err := h.riskService.Score(r.Context(), scoreReq)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.EntityID = &event.ID
	entry.RequestData = map[string]any{
		"risk_score": event.RiskScore,
		"decision":   string(event.Decision),
	}

	h.ok(w, r, entry, http.StatusOK, riskScoreResponse{
		EventID:   event.ID.String(),
		RiskScore: event.RiskScore,
		Decision:  string(event.Decision),
		Severity:  string(event.Severity),
		Reasons:   event.Reason,
	})
}
