package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/service"
)

type createTransactionRequest struct {
	TokenValue      string `json:"token_value"`
	Currency        string `json:"currency,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Amount          int64  `json:"amount"`
}

type transactionResponse struct {
	TransactionID   string `json:"transaction_id"`
	TokenID         string `json:"token_id"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	CreatedAt       string `json:"created_at"`
	Amount          int64  `json:"amount"`
}

// CreateTransaction handles POST /api/v1/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	merchant := middleware.MerchantFromContext(r.Context())
	entry := newAuditEntry(r, "transaction_create", "transaction")
	entry.MerchantID = &merchant.ID

	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeValidationFailed,
			Message: "invalid request body",
			Err:     err,
		})
		return
	}

	result, err := h.tokenService.CreateTransaction(r.Context(), merchant, req.TokenValue, req.Amount, req.Currency, req.ReferenceNumber)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}
	tx := result.Transaction

	entry.EntityID = &tx.ID
	entry.RequestData = map[string]any{
		"amount":   tx.Amount,
		"currency": tx.Currency,
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.RateRemaining))
	h.ok(w, r, entry, http.StatusCreated, transactionResponse{
		TransactionID:   tx.ID.String(),
		TokenID:         tx.TokenID.String(),
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Status:          string(tx.Status),
		ReferenceNumber: tx.ReferenceNumber,
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
	})
}
