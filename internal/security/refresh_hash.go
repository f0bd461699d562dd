package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// refreshSecretBytes is the entropy of an opaque refresh secret.
const refreshSecretBytes = 32

// NewRefreshSecret generates a new opaque refresh secret: 32 random bytes,
// base64url-encoded without padding. The raw value is returned to the client
// exactly once; only its hash is ever persisted.
func NewRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshSecret returns a SHA-256 hash of the refresh secret, hex-encoded.
// Used for storing and looking up refresh credentials without storing the raw secret.
func HashRefreshSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// RefreshSecretHashEqual performs constant-time comparison of the provided secret's
// hash with the stored hash. Returns true only if they match.
func RefreshSecretHashEqual(providedSecret, storedHash string) bool {
	providedHash := HashRefreshSecret(providedSecret)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
