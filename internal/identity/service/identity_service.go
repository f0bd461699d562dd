// Package service implements primary identity verification for login.
package service

import (
	"context"
	"errors"
	"strings"

	"adaptive-access-platform/backend/internal/identity/domain"
	"adaptive-access-platform/backend/internal/security"
)

// Sentinel errors for the identity service; handlers map them to HTTP codes.
var (
	// ErrInvalidCredentials covers unknown username, wrong password, and
	// inactive accounts. Callers must not distinguish between them.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repo is the minimal identity repository needed by the service.
type Repo interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	UpdateLastKnownIP(ctx context.Context, id, ip string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// Service verifies primary credentials and manages the identity fields this
// core is allowed to mutate.
type Service struct {
	repo   Repo
	hasher *security.Hasher
}

// New returns an identity Service with the given repository and password hasher.
func New(repo Repo, hasher *security.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Verify authenticates username/password. On success it records the request
// origin as the identity's last known IP (best-effort) and returns the identity.
// All failures return ErrInvalidCredentials apart from store errors.
func (s *Service) Verify(ctx context.Context, username, password, originIP string) (*domain.Identity, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if ident == nil || !ident.Active {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if originIP != "" {
		_ = s.repo.UpdateLastKnownIP(ctx, ident.ID, originIP)
	}
	return ident, nil
}

// GetByID returns the identity for id, or nil if not found.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// ChangePassword verifies the current password and replaces the stored hash.
// The caller must revoke all refresh credentials for the identity before
// reporting success, so stolen unrotated credentials die with the change.
func (s *Service) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ident == nil || !ident.Active {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, id, hash)
}

// Deactivate flips the identity inactive. The caller must also revoke all
// refresh credentials for the identity before reporting success.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}
