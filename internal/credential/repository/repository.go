package repository

import (
	"context"
	"time"

	"adaptive-access-platform/backend/internal/credential/domain"
)

// Repository defines persistence for refresh credentials.
type Repository interface {
	Create(ctx context.Context, c *domain.RefreshCredential) error
	GetBySecretHash(ctx context.Context, secretHash string) (*domain.RefreshCredential, error)
	// RevokeIfActive marks the credential revoked only if it is not already.
	// Returns whether a row changed; false on an already-revoked (or missing)
	// row is the replay signal under concurrent rotation.
	RevokeIfActive(ctx context.Context, id string) (bool, error)
	RevokeFamily(ctx context.Context, family string) error
	RevokeAllForIdentity(ctx context.Context, identityID string) error
	// DeleteExpiredBefore removes rows that are revoked or expired and were
	// created before cutoff. Returns the number of rows deleted.
	DeleteExpiredBefore(ctx context.Context, now, cutoff time.Time) (int64, error)
}
