// Package service implements the token session manager: issuing, rotating,
// and revoking access/refresh credential pairs with replay containment.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	credentialdomain "adaptive-access-platform/backend/internal/credential/domain"
	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
	"adaptive-access-platform/backend/internal/security"
)

// Sentinel errors for the token service; handlers map them to HTTP codes.
// ErrRefreshTokenReplay must be answered externally exactly like
// ErrInvalidRefreshToken so credential validity leaks nothing.
var (
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReplay  = errors.New("refresh token replay detected; family revoked")
)

// retentionFloor is how long revoked/expired rows are kept before the cleanup
// sweep may delete them.
const retentionFloor = 30 * 24 * time.Hour

// TokenPair is the outcome of issuing or rotating credentials. RefreshToken
// carries the raw secret; this is the only place it ever appears.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in seconds
	Identity     *identitydomain.Identity
}

// CredentialRepo is the minimal credential repository needed by the token service.
type CredentialRepo interface {
	Create(ctx context.Context, c *credentialdomain.RefreshCredential) error
	GetBySecretHash(ctx context.Context, secretHash string) (*credentialdomain.RefreshCredential, error)
	RevokeIfActive(ctx context.Context, id string) (bool, error)
	RevokeFamily(ctx context.Context, family string) error
	RevokeAllForIdentity(ctx context.Context, identityID string) error
	DeleteExpiredBefore(ctx context.Context, now, cutoff time.Time) (int64, error)
}

// IdentityRepo is the minimal identity repository needed by the token service.
type IdentityRepo interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
}

// Auditor records security events. Implementations are best-effort; a nil
// Auditor disables auditing.
type Auditor interface {
	Record(ctx context.Context, identityID, action, resource, metadata string)
}

// TokenService issues, rotates, and revokes credential pairs. A refresh secret
// that is presented after it has already been consumed is treated as stolen and
// its whole family is revoked.
type TokenService struct {
	creds      CredentialRepo
	identities IdentityRepo
	tokens     *security.TokenProvider
	refreshTTL time.Duration
	audit      Auditor
	nowF       func() time.Time
}

// NewTokenService returns a TokenService with the given dependencies.
// audit may be nil.
func NewTokenService(creds CredentialRepo, identities IdentityRepo, tokens *security.TokenProvider, refreshTTL time.Duration, audit Auditor) *TokenService {
	return &TokenService{
		creds:      creds,
		identities: identities,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		audit:      audit,
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// IssuePair issues a new access/refresh pair for the identity. family is ""
// for a fresh login (a new family is generated) and the existing family id
// when called from Rotate. One credential row is persisted per call.
func (s *TokenService) IssuePair(ctx context.Context, ident *identitydomain.Identity, family string) (*TokenPair, error) {
	if family == "" {
		family = uuid.New().String()
	}
	accessToken, _, err := s.tokens.IssueAccess(ident.ID, ident.Username, ident.Email, ident.Role)
	if err != nil {
		return nil, err
	}
	secret, err := security.NewRefreshSecret()
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	rec := &credentialdomain.RefreshCredential{
		ID:         uuid.New().String(),
		IdentityID: ident.ID,
		SecretHash: security.HashRefreshSecret(secret),
		Family:     family,
		ExpiresAt:  now.Add(s.refreshTTL),
		Revoked:    false,
		CreatedAt:  now,
	}
	if err := s.creds.Create(ctx, rec); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: secret,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		Identity:     ident,
	}, nil
}

// Rotate consumes rawToken and issues a replacement pair in the same family.
//
// A presented secret whose row is already revoked means it was consumed once
// before: someone is holding a copy. The whole family is revoked so neither
// the thief nor the victim keeps access. Expiry is ordinary, not theft, and
// revokes only the single row. All failures surface as ErrInvalidRefreshToken
// or ErrRefreshTokenReplay; callers must answer both identically.
func (s *TokenService) Rotate(ctx context.Context, rawToken string) (*TokenPair, error) {
	if rawToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	rec, err := s.creds.GetBySecretHash(ctx, security.HashRefreshSecret(rawToken))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrInvalidRefreshToken
	}
	if rec.Revoked {
		if err := s.creds.RevokeFamily(ctx, rec.Family); err != nil {
			return nil, err
		}
		s.record(ctx, rec.IdentityID, "credential.replay", "refresh_credential", "family="+rec.Family)
		return nil, ErrRefreshTokenReplay
	}
	now := s.nowF()
	if rec.Expired(now) {
		if _, err := s.creds.RevokeIfActive(ctx, rec.ID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidRefreshToken
	}
	ident, err := s.identities.GetByID(ctx, rec.IdentityID)
	if err != nil {
		return nil, err
	}
	if ident == nil || !ident.Active {
		if err := s.creds.RevokeFamily(ctx, rec.Family); err != nil {
			return nil, err
		}
		return nil, ErrInvalidRefreshToken
	}
	changed, err := s.creds.RevokeIfActive(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if !changed {
		// A concurrent rotation consumed this row first: same signal as replay.
		if err := s.creds.RevokeFamily(ctx, rec.Family); err != nil {
			return nil, err
		}
		s.record(ctx, rec.IdentityID, "credential.replay", "refresh_credential", "family="+rec.Family)
		return nil, ErrRefreshTokenReplay
	}
	pair, err := s.IssuePair(ctx, ident, rec.Family)
	if err != nil {
		return nil, err
	}
	s.record(ctx, ident.ID, "credential.rotate", "refresh_credential", "family="+rec.Family)
	return pair, nil
}

// RevokeAllForIdentity marks every non-revoked credential for the identity
// revoked. Password-change and deactivation flows must call this before
// reporting success so unrotated stolen credentials die with the change.
func (s *TokenService) RevokeAllForIdentity(ctx context.Context, identityID, reason string) error {
	if err := s.creds.RevokeAllForIdentity(ctx, identityID); err != nil {
		return err
	}
	s.record(ctx, identityID, "credential.revoke_all", "refresh_credential", "reason="+reason)
	return nil
}

// RevokeOne revokes exactly the credential matching rawToken ("log out this
// device only"). Unknown tokens are a no-op.
func (s *TokenService) RevokeOne(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	rec, err := s.creds.GetBySecretHash(ctx, security.HashRefreshSecret(rawToken))
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	_, err = s.creds.RevokeIfActive(ctx, rec.ID)
	return err
}

// CleanupExpired deletes rows that are revoked or expired and older than the
// 30-day retention floor. Safe to run on any schedule or skip entirely.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.nowF()
	return s.creds.DeleteExpiredBefore(ctx, now, now.Add(-retentionFloor))
}

func (s *TokenService) record(ctx context.Context, identityID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, identityID, action, resource, metadata)
}
