package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/panvault/panvault/internal/middleware"
	"github.com/panvault/panvault/internal/models"
)

type tokenListItem struct {
	TokenID   string `json:"token_id"`
	Status    string `json:"status"`
	LastFour  string `json:"last_four"`
	CardBrand string `json:"card_brand,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

type tokenListResponse struct {
	Tokens []tokenListItem `json:"tokens"`
	Count  int             `json:"count"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListTokens handles GET /api/v1/tokens
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	merchant := middleware.MerchantFromContext(r.Context())
	entry := newAuditEntry(r, "token_list", "token")
	entry.MerchantID = &merchant.ID

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	status := q.Get("status")

	listings, err := h.tokenService.ListTokens(r.Context(), merchant, status, limit, offset)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	items := make([]tokenListItem, 0, len(listings))
	for _, l := range listings {
		items = append(items, tokenListItem{
			TokenID:   l.ID.String(),
			Status:    string(displayStatus(l)),
			LastFour:  l.CardLastFour,
			CardBrand: l.CardBrand,
			DeviceID:  l.DeviceID,
			ExpiresAt: l.ExpiresAt.Format(time.RFC3339),
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		})
	}

	entry.RequestData = map[string]any{
		"status_filter": status,
		"returned":      len(items),
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	h.ok(w, r, entry, http.StatusOK, tokenListResponse{
		Tokens: items,
		Count:  len(items),
		Limit:  limit,
		Offset: offset,
	})
}

// displayStatus reports expired for active tokens past their validity
// window; the stored status is never rewritten.
func displayStatus(l *models.TokenListing) models.TokenStatus {
	if l.Status == models.TokenStatusActive && l.Expired(time.Now()) {
		return models.TokenStatusExpired
	}
	return l.Status
}
