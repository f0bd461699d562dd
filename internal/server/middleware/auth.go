package middleware

import (
	"context"
	"net/http"
	"strings"

	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/security"
)

const bearerPrefix = "bearer "

// IdentityLoader fetches the full identity record for a verified subject.
// The access token is self-contained, but trust scoring needs store-backed
// fields (known devices, last known IP) that are not in the claims.
type IdentityLoader interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
}

// BearerAuth returns middleware that validates the Bearer access token and
// sets the identity in context. A missing or invalid token is not itself an
// error: the request continues unauthenticated and policy enforcement
// decides. Tokens for unknown or inactive identities count as invalid.
func BearerAuth(tokens *security.TokenProvider, identities IdentityLoader, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.ValidateAccess(token)
			if err != nil {
				log.Debug("invalid access token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			ident, err := identities.GetByID(r.Context(), claims.Subject)
			if err != nil {
				log.Error("identity lookup failed", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal error"}`))
				return
			}
			if ident == nil || !ident.Active {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
