package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/panvault/panvault/internal/db"
	"github.com/panvault/panvault/internal/models"
)

// AuditRepository defines the interface for the append-only audit and
// compliance stores
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	InsertComplianceLog(ctx context.Context, check *models.ComplianceLog) error
}

type auditRepository struct {
	db *db.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(database *db.DB) AuditRepository {
	return &auditRepository{db: database}
}

// Insert appends one audit row
func (r *auditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	requestData, err := marshalJSONB(entry.RequestData)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}
	complianceFlags, err := marshalJSONB(entry.ComplianceFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal compliance flags: %w", err)
	}

	query := `
		INSERT INTO audit_logs
			(id, operation_type, entity_type, entity_id, merchant_id, user_id,
			 request_data, request_ip, response_status, error_message,
			 accessed_fields, compliance_flags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OperationType,
		entry.EntityType,
		entry.EntityID,
		entry.MerchantID,
		entry.UserID,
		requestData,
		nullIfEmpty(entry.RequestIP),
		entry.ResponseStatus,
		nullIfEmpty(entry.ErrorMessage),
		pq.Array(entry.AccessedFields),
		complianceFlags,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// InsertComplianceLog appends one compliance check row
func (r *auditRepository) InsertComplianceLog(ctx context.Context, check *models.ComplianceLog) error {
	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}

	details, err := marshalJSONB(check.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal check details: %w", err)
	}

	query := `
		INSERT INTO compliance_logs (id, check_type, check_result, severity, details)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		check.ID,
		check.CheckType,
		check.Result,
		check.Severity,
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to insert compliance log: %w", err)
	}

	return nil
}

func marshalJSONB(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
