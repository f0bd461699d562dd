package repository

import (
	"context"

	"adaptive-access-platform/backend/internal/identity/domain"
)

// Repository defines persistence for identities.
type Repository interface {
	Create(ctx context.Context, ident *domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	UpdateLastKnownIP(ctx context.Context, id, ip string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
}
