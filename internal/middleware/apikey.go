// Package middleware provides HTTP middleware components for the vault API.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
	"github.com/panvault/panvault/internal/service"
)

type contextKey string

const merchantContextKey contextKey = "merchant"

type authErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MerchantAuth authenticates merchant routes from the x-api-key header. The
// resolved merchant is placed in the request context; rejections are written
// to the audit trail before the response goes out.
func MerchantAuth(merchants repository.MerchantRepository, audit *service.AuditService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("x-api-key")
			if apiKey == "" {
				writeAuthError(w, http.StatusUnauthorized, service.ErrCodeAuthenticationRequired, "x-api-key header is required")
				auditRejection(r, audit, nil, http.StatusUnauthorized, "missing api key")
				return
			}

			merchant, err := merchants.FindByAPIKey(r.Context(), apiKey)
			if err == models.ErrNotFound {
				writeAuthError(w, http.StatusUnauthorized, service.ErrCodeAuthenticationRequired, "invalid api key")
				auditRejection(r, audit, nil, http.StatusUnauthorized, "invalid api key")
				return
			}
			if err != nil {
				logger.Error("merchant lookup failed", "error", err, "path", r.URL.Path)
				writeAuthError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "internal error")
				return
			}

			if merchant.Status != models.MerchantStatusActive {
				writeAuthError(w, http.StatusForbidden, service.ErrCodeAccessDenied, "merchant account is not active")
				auditRejection(r, audit, merchant, http.StatusForbidden, "merchant not active")
				return
			}

			ctx := context.WithValue(r.Context(), merchantContextKey, merchant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MerchantFromContext returns the authenticated merchant, or nil when the
// request did not pass MerchantAuth.
func MerchantFromContext(ctx context.Context) *models.Merchant {
	merchant, _ := ctx.Value(merchantContextKey).(*models.Merchant)
	return merchant
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(authErrorResponse{Error: code, Message: message})
}

func auditRejection(r *http.Request, audit *service.AuditService, merchant *models.Merchant, status int, reason string) {
	entry := &models.AuditLog{
		OperationType:  "authentication",
		EntityType:     "merchant",
		RequestIP:      r.RemoteAddr,
		ResponseStatus: status,
		ErrorMessage:   reason,
		RequestData: map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
		},
	}
	if merchant != nil {
		entry.MerchantID = &merchant.ID
	}
	audit.LogAudit(r.Context(), entry)
}
