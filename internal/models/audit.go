package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is one append-only record of a sensitive operation. Every handler
// writes exactly one row per request, success or failure.
type AuditLog struct {
	CreatedAt       time.Time      `db:"created_at"`
	OperationType   string         `db:"operation_type"`
	EntityType      string         `db:"entity_type"`
	RequestIP       string         `db:"request_ip"`
	ErrorMessage    string         `db:"error_message"`
	RequestData     map[string]any `db:"request_data"`
	ComplianceFlags map[string]any `db:"compliance_flags"`
	AccessedFields  []string       `db:"accessed_fields"`
	EntityID        *uuid.UUID     `db:"entity_id"`
	MerchantID      *uuid.UUID     `db:"merchant_id"`
	UserID          *uuid.UUID     `db:"user_id"`
	ResponseStatus  int            `db:"response_status"`
	ID              uuid.UUID      `db:"id"`
}

// ComplianceResult is the outcome of a compliance check
type ComplianceResult string

const (
	ComplianceResultPass    ComplianceResult = "pass"
	ComplianceResultWarning ComplianceResult = "warning"
	ComplianceResultFail    ComplianceResult = "fail"
)

// ComplianceLog is one compliance check outcome. Exactly one row per check
// per run.
type ComplianceLog struct {
	CreatedAt time.Time        `db:"created_at"`
	CheckType string           `db:"check_type"`
	Severity  string           `db:"severity"`
	Details   map[string]any   `db:"details"`
	Result    ComplianceResult `db:"check_result"`
	ID        uuid.UUID        `db:"id"`
}
