package repository

import (
	"context"

	"adaptive-access-platform/backend/internal/audit/domain"
)

// Repository defines persistence for audit events.
type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByIdentity(ctx context.Context, identityID string, limit int32) ([]*domain.AuditLog, error)
}
