package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// httpStatusForCode maps service error codes onto HTTP statuses at the
// handler boundary.
func httpStatusForCode(code string) int {
	switch code {
	case service.ErrCodeAuthenticationRequired:
		return http.StatusUnauthorized
	case service.ErrCodeAccessDenied:
		return http.StatusForbidden
	case service.ErrCodeValidationFailed, service.ErrCodeTokenInactive, service.ErrCodeTokenExpired:
		return http.StatusBadRequest
	case service.ErrCodeNotFound:
		return http.StatusNotFound
	case service.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func extractServiceError(err error) *service.ServiceError {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON parses the request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fail finalizes the request's audit entry with the error and writes the
// structured error body. Internal details never reach the wire.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, entry *models.AuditLog, err error) {
	svcErr := extractServiceError(err)
	if svcErr == nil {
		svcErr = &service.ServiceError{
			Code:    service.ErrCodeInternalError,
			Message: "an internal error occurred",
			Err:     err,
		}
	}
	status := httpStatusForCode(svcErr.Code)

	if status >= 500 {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"code", svcErr.Code,
			"error", err,
		)
	}

	entry.ResponseStatus = status
	entry.ErrorMessage = svcErr.Message
	h.auditService.LogAudit(r.Context(), entry)

	respondJSON(w, status, errorResponse{Error: svcErr.Code, Message: svcErr.Message})
}

// ok finalizes the request's audit entry and writes the success body.
func (h *Handler) ok(w http.ResponseWriter, r *http.Request, entry *models.AuditLog, status int, payload any) {
	entry.ResponseStatus = status
	h.auditService.LogAudit(r.Context(), entry)
	respondJSON(w, status, payload)
}

// newAuditEntry starts the per-request audit record every handler finalizes
// exactly once.
func newAuditEntry(r *http.Request, operationType, entityType string) *models.AuditLog {
	return &models.AuditLog{
		OperationType: operationType,
		EntityType:    entityType,
		RequestIP:     r.RemoteAddr,
	}
}
