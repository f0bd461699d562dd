package domain

import "time"

// RefreshCredential is one issued refresh credential row. Only the SHA-256 hash
// of the opaque secret is stored; the raw secret is shown to the client exactly
// once and never persisted or logged.
//
// Lifecycle: created on login or rotation; Revoked flips to true exactly once
// (rotation consumption, logout, expiry, or family revocation) and never back.
// Rows are removed only by the retention sweep.
type RefreshCredential struct {
	ID         string
	IdentityID string
	SecretHash string
	// Family groups every credential descended from one login. It is the
	// blast-radius unit for theft containment: a replay anywhere in the
	// family revokes all of it.
	Family    string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the credential is past its expiry at the given time.
func (c *RefreshCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
