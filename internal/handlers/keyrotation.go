package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/service"
)

type keyRotationResponse struct {
	NewVersion      int    `json:"new_version"`
	PreviousVersion int    `json:"previous_version"`
	ExpiresAt       string `json:"expires_at"`
	RotatedBy       string `json:"rotated_by"`
}

// RotateKey handles POST /api/v1/key-rotation. Two callers are accepted: an
// admin session, or the scheduler presenting the pre-shared cron secret.
func (h *Handler) RotateKey(w http.ResponseWriter, r *http.Request) {
	entry := newAuditEntry(r, "key_rotation", "encryption_key")

	actor := service.RotationActor{}
	rotatedBy := "scheduler"

	cronSecret := r.Header.Get("X-Cron-Secret")
	if cronSecret != "" && subtle.ConstantTimeCompare([]byte(cronSecret), []byte(h.vaultCfg.CronSecret)) == 1 {
		actor.Scheduled = true
	} else {
		principal, err := auth.ParseBearer(r.Header.Get("Authorization"), []byte(h.vaultCfg.SessionSecret))
		if err != nil {
			h.fail(w, r, entry, &service.ServiceError{
				Code:    service.ErrCodeAuthenticationRequired,
				Message: "an admin bearer token or cron secret is required",
				Err:     err,
			})
			return
		}
		actor.Principal = principal
		entry.UserID = &principal.UserID
		rotatedBy = principal.UserID.String()
	}

	result, err := h.keyService.Rotate(r.Context(), actor)
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.RequestData = map[string]any{
		"new_version":      result.NewVersion,
		"previous_version": result.PreviousVersion,
		"scheduled":        actor.Scheduled,
	}

	h.ok(w, r, entry, http.StatusOK, keyRotationResponse{
		NewVersion:      result.NewVersion,
		PreviousVersion: result.PreviousVersion,
		ExpiresAt:       result.ExpiresAt.Format(time.RFC3339),
		RotatedBy:       rotatedBy,
	})
}
