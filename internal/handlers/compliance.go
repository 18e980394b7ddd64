package handlers

import (
	"net/http"

	"github.com/panvault/panvault/internal/service"
)

// RunComplianceChecks handles POST /api/v1/compliance-check
func (h *Handler) RunComplianceChecks(w http.ResponseWriter, r *http.Request) {
	entry := newAuditEntry(r, "compliance_check", "compliance_run")

	if !h.serviceAuth(r) {
		h.fail(w, r, entry, &service.ServiceError{
			Code:    service.ErrCodeAuthenticationRequired,
			Message: "a valid service secret is required",
		})
		return
	}

	report, err := h.complianceService.RunChecks(r.Context())
	if err != nil {
		h.fail(w, r, entry, err)
		return
	}

	entry.RequestData = map[string]any{
		"overall": string(report.Overall),
		"checks":  len(report.Checks),
	}

	h.ok(w, r, entry, http.StatusOK, report)
}
