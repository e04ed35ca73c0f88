package core

import (
	"context"
	"fmt"
	"time"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
)

// auditService implements the AuditService interface.
// It is a thin layer over the repository that fills in defaults before writing.
type auditService struct {
	auditRepo db.AuditRepository
}

// NewAuditService creates a new AuditService instance.
// It requires an AuditRepository for persisting audit logs.
func NewAuditService(auditRepo db.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// CreateAuditLog records an audit log entry.
// A zero Timestamp is replaced with the current UTC time; every other field is
// stored as given. Repository errors are wrapped and returned to the caller,
// which decides whether a failed audit write fails the operation.
func (s *auditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	if logEntry.Timestamp.IsZero() {
		logEntry.Timestamp = time.Now().UTC()
	}
	if err := s.auditRepo.Create(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log via repository: %w", err)
	}
	return nil
}
