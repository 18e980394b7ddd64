package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository"
)

// RotationActor identifies who is asking for a key rotation: an operator
// session, or the trusted scheduler that presented the rotation secret.
type RotationActor struct {
	Principal *auth.Principal
	Scheduled bool
}

// RotationResult describes a completed rotation.
type RotationResult struct {
	ExpiresAt       time.Time
	NewVersion      int
	PreviousVersion int
}

// KeyService issues new encryption key versions and retires the old ones.
type KeyService struct {
	keys        repository.KeyRepository
	crypto      *CryptoService
	audit       *AuditService
	keyLifetime time.Duration
	logger      *slog.Logger
}

// NewKeyService creates a new KeyService
func NewKeyService(
	keys repository.KeyRepository,
	crypto *CryptoService,
	audit *AuditService,
	keyLifetime time.Duration,
	logger *slog.Logger,
) *KeyService {
	return &KeyService{
		keys:        keys,
		crypto:      crypto,
		audit:       audit,
		keyLifetime: keyLifetime,
		logger:      logger,
	}
}

// ActiveVersion returns the current active key version, provisioning version
// 1 if no key exists yet.
func (s *KeyService) ActiveVersion(ctx context.Context) (int, error) {
	key, err := s.keys.FindActive(ctx)
	if err == nil {
		return key.KeyVersion, nil
	}
	if err != models.ErrNotFound {
		return 0, storageError("failed to load active key", err)
	}

	// First use: bootstrap version 1.
	result, rotateErr := s.rotate(ctx, nil, true)
	if rotateErr != nil {
		return 0, rotateErr
	}
	return result.NewVersion, nil
}

// Rotate issues the next key version and deactivates the previous one.
// Authorized for admin sessions and for the trusted scheduler; every attempt
// leaves a compliance record.
func (s *KeyService) Rotate(ctx context.Context, actor RotationActor) (*RotationResult, error) {
	if !actor.Scheduled {
		if actor.Principal == nil {
			s.audit.LogComplianceCheck(ctx, "key_rotation_auth", models.ComplianceResultFail,
				map[string]any{"error": "unauthenticated rotation attempt"})
			return nil, authenticationError("authentication required")
		}
		if !actor.Principal.HasAnyRole(auth.RoleAdmin) {
			s.audit.LogComplianceCheck(ctx, "key_rotation_auth", models.ComplianceResultFail,
				map[string]any{
					"user_id": actor.Principal.UserID.String(),
					"error":   "insufficient privileges",
				})
			return nil, authorizationError("only admins can rotate encryption keys")
		}
	}

	var rotatedBy *uuid.UUID
	if actor.Principal != nil {
		rotatedBy = &actor.Principal.UserID
	}

	return s.rotate(ctx, rotatedBy, actor.Scheduled)
}

func (s *KeyService) rotate(ctx context.Context, rotatedBy *uuid.UUID, scheduled bool) (*RotationResult, error) {
	current, err := s.keys.FindActive(ctx)
	if err != nil && err != models.ErrNotFound {
		return nil, storageError("failed to load active key", err)
	}

	nextVersion := 1
	previousVersion := 0
	if current != nil {
		nextVersion = current.KeyVersion + 1
		previousVersion = current.KeyVersion
	}

	keyHash, err := s.crypto.KeyHash(nextVersion)
	if err != nil {
		s.audit.LogComplianceCheck(ctx, "key_rotation", models.ComplianceResultFail,
			map[string]any{"error": err.Error()})
		return nil, cryptoError("failed to derive new key", err)
	}

	newKey := &models.EncryptionKey{
		KeyVersion: nextVersion,
		KeyHash:    keyHash,
		IsActive:   true,
		ExpiresAt:  time.Now().Add(s.keyLifetime),
		RotatedBy:  rotatedBy,
	}

	if err := s.keys.Create(ctx, newKey); err != nil {
		s.audit.LogComplianceCheck(ctx, "key_rotation", models.ComplianceResultFail,
			map[string]any{"error": err.Error()})
		return nil, storageError("failed to persist new key", err)
	}

	// Deactivate exactly the row read above. A concurrent rotation may have
	// already retired it; that is fine and must not touch the newer row.
	if current != nil {
		if err := s.keys.Deactivate(ctx, current.ID); err != nil {
			s.audit.LogComplianceCheck(ctx, "key_rotation", models.ComplianceResultFail,
				map[string]any{"error": err.Error(), "new_key_version": nextVersion})
			return nil, storageError("failed to deactivate previous key", err)
		}
	}

	rotationReason := "manual_rotation"
	if scheduled {
		rotationReason = "scheduled_30_day_rotation"
	}
	details := map[string]any{
		"old_key_version": previousVersion,
		"new_key_version": nextVersion,
		"rotation_reason": rotationReason,
	}
	if rotatedBy != nil {
		details["rotated_by"] = rotatedBy.String()
	} else {
		details["rotated_by"] = "scheduled_job"
	}
	s.audit.LogComplianceCheck(ctx, "key_rotation", models.ComplianceResultPass, details)

	s.logger.Info("encryption key rotated",
		"new_version", nextVersion,
		"previous_version", previousVersion,
		"scheduled", scheduled,
	)

	return &RotationResult{
		NewVersion:      nextVersion,
		PreviousVersion: previousVersion,
		ExpiresAt:       newKey.ExpiresAt,
	}, nil
}
