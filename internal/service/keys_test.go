package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panvault/panvault/internal/auth"
	"github.com/panvault/panvault/internal/models"
	"github.com/panvault/panvault/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newKeyServiceForTest(t *testing.T, keys *mocks.MockKeyRepository, audit *mocks.MockAuditRepository) *KeyService {
	crypto, err := NewCryptoService(testMasterKey())
	require.NoError(t, err)

	auditSvc := NewAuditService(audit, testLogger())
	return NewKeyService(keys, crypto, auditSvc, 720*time.Hour, testLogger())
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin}
}

func TestKeyService_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("admin rotation increments the version", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		currentID := uuid.New()
		keyRepo.On("FindActive", ctx).Return(&models.EncryptionKey{
			ID:         currentID,
			KeyVersion: 3,
			IsActive:   true,
		}, nil)

		var created *models.EncryptionKey
		keyRepo.On("Create", ctx, mock.AnythingOfType("*models.EncryptionKey")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*models.EncryptionKey)
			}).
			Return(nil)
		keyRepo.On("Deactivate", ctx, currentID).Return(nil)
		auditRepo.On("InsertComplianceLog", ctx, mock.AnythingOfType("*models.ComplianceLog")).Return(nil)

		principal := adminPrincipal()
		result, err := svc.Rotate(ctx, RotationActor{Principal: principal})

		require.NoError(t, err)
		assert.Equal(t, 4, result.NewVersion)
		assert.Equal(t, 3, result.PreviousVersion)
		assert.Greater(t, result.NewVersion, result.PreviousVersion)

		require.NotNil(t, created)
		assert.True(t, created.IsActive)
		assert.Equal(t, 4, created.KeyVersion)
		assert.NotEmpty(t, created.KeyHash)
		require.NotNil(t, created.RotatedBy)
		assert.Equal(t, principal.UserID, *created.RotatedBy)
	})

	t.Run("first rotation bootstraps version 1", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		keyRepo.On("FindActive", ctx).Return(nil, models.ErrNotFound)
		keyRepo.On("Create", ctx, mock.AnythingOfType("*models.EncryptionKey")).Return(nil)
		auditRepo.On("InsertComplianceLog", ctx, mock.AnythingOfType("*models.ComplianceLog")).Return(nil)

		result, err := svc.Rotate(ctx, RotationActor{Scheduled: true})

		require.NoError(t, err)
		assert.Equal(t, 1, result.NewVersion)
		assert.Equal(t, 0, result.PreviousVersion)
	})

	t.Run("merchant role is rejected", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		auditRepo.On("InsertComplianceLog", ctx, mock.MatchedBy(func(check *models.ComplianceLog) bool {
			return check.CheckType == "key_rotation_auth" && check.Result == models.ComplianceResultFail
		})).Return(nil)

		principal := &auth.Principal{UserID: uuid.New(), Role: auth.RoleMerchant}
		result, err := svc.Rotate(ctx, RotationActor{Principal: principal})

		require.Error(t, err)
		assert.Nil(t, result)

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, ErrCodeAccessDenied, svcErr.Code)
	})

	t.Run("unauthenticated rotation is rejected", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		auditRepo.On("InsertComplianceLog", ctx, mock.AnythingOfType("*models.ComplianceLog")).Return(nil)

		result, err := svc.Rotate(ctx, RotationActor{})

		require.Error(t, err)
		assert.Nil(t, result)

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, ErrCodeAuthenticationRequired, svcErr.Code)
	})

	t.Run("deactivation failure surfaces as storage error", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		currentID := uuid.New()
		keyRepo.On("FindActive", ctx).Return(&models.EncryptionKey{ID: currentID, KeyVersion: 1}, nil)
		keyRepo.On("Create", ctx, mock.AnythingOfType("*models.EncryptionKey")).Return(nil)
		keyRepo.On("Deactivate", ctx, currentID).Return(assert.AnError)
		auditRepo.On("InsertComplianceLog", ctx, mock.AnythingOfType("*models.ComplianceLog")).Return(nil)

		_, err := svc.Rotate(ctx, RotationActor{Scheduled: true})

		require.Error(t, err)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, ErrCodeStorageFailure, svcErr.Code)
	})
}

func TestKeyService_ActiveVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the active version", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		keyRepo.On("FindActive", ctx).Return(&models.EncryptionKey{KeyVersion: 5}, nil)

		version, err := svc.ActiveVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, version)
	})

	t.Run("bootstraps when no key exists", func(t *testing.T) {
		keyRepo := mocks.NewMockKeyRepository(t)
		auditRepo := mocks.NewMockAuditRepository(t)
		svc := newKeyServiceForTest(t, keyRepo, auditRepo)

		keyRepo.On("FindActive", ctx).Return(nil, models.ErrNotFound)
		keyRepo.On("Create", ctx, mock.AnythingOfType("*models.EncryptionKey")).Return(nil)
		auditRepo.On("InsertComplianceLog", ctx, mock.AnythingOfType("*models.ComplianceLog")).Return(nil)

		version, err := svc.ActiveVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, version)
	})
}
