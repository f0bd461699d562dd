// Package middleware carries the HTTP middleware chain: request metadata
// capture, bearer access-token verification, and policy enforcement.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	clientIPKey = contextKey{"client-ip"}
)

// WithIdentity returns a context with the verified identity set.
func WithIdentity(ctx context.Context, ident *identitydomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// GetIdentity returns the verified identity from context, or nil when the
// request is unauthenticated.
func GetIdentity(ctx context.Context) *identitydomain.Identity {
	ident, _ := ctx.Value(identityKey).(*identitydomain.Identity)
	return ident
}

// CaptureClientIP stores the request origin in context so layers without the
// request (audit writes, for one) can still record it.
func CaptureClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP returns the origin stored by CaptureClientIP, or "".
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// Request headers carrying client-supplied signals.
const (
	headerDeviceID  = "X-Device-ID"
	headerSessionID = "X-Session-ID"
)

// ClientIP returns the request's network origin: the first X-Forwarded-For
// hop when present, else RemoteAddr without the port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DeviceID returns the client-supplied device identifier, if any.
func DeviceID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerDeviceID))
}

// SessionID returns the client-supplied transport session identifier, if any.
func SessionID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerSessionID))
}
