package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/security"
)

type stubIdentityLoader struct {
	identities map[string]*identitydomain.Identity
}

func (s *stubIdentityLoader) GetByID(_ context.Context, id string) (*identitydomain.Identity, error) {
	return s.identities[id], nil
}

func captureIdentity(dst **identitydomain.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth_ValidToken(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	ident := &identitydomain.Identity{ID: "id-1", Username: "alice", Role: "user", Active: true}
	loader := &stubIdentityLoader{identities: map[string]*identitydomain.Identity{"id-1": ident}}

	token, _, err := tokens.IssueAccess(ident.ID, ident.Username, "alice@example.com", ident.Role)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	var seen *identitydomain.Identity
	h := BearerAuth(tokens, loader, logger.New(0))(captureIdentity(&seen))

	r := httptest.NewRequest("GET", "/api/data", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)

	if seen == nil || seen.ID != "id-1" {
		t.Fatalf("expected identity id-1 in context, got %+v", seen)
	}
}

func TestBearerAuth_NoTokenPassesThrough(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	var seen *identitydomain.Identity
	h := BearerAuth(tokens, &stubIdentityLoader{}, logger.New(0))(captureIdentity(&seen))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/data", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected handler to run, got status %d", w.Code)
	}
	if seen != nil {
		t.Fatalf("expected no identity, got %+v", seen)
	}
}

func TestBearerAuth_GarbageTokenPassesThroughUnauthenticated(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	var seen *identitydomain.Identity
	h := BearerAuth(tokens, &stubIdentityLoader{}, logger.New(0))(captureIdentity(&seen))

	r := httptest.NewRequest("GET", "/api/data", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got status %d", w.Code)
	}
	if seen != nil {
		t.Fatalf("expected no identity, got %+v", seen)
	}
}

func TestBearerAuth_InactiveIdentityIgnored(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	ident := &identitydomain.Identity{ID: "id-2", Username: "bob", Role: "user", Active: false}
	loader := &stubIdentityLoader{identities: map[string]*identitydomain.Identity{"id-2": ident}}

	token, _, err := tokens.IssueAccess(ident.ID, ident.Username, "bob@example.com", ident.Role)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	var seen *identitydomain.Identity
	h := BearerAuth(tokens, loader, logger.New(0))(captureIdentity(&seen))

	r := httptest.NewRequest("GET", "/api/data", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)

	if seen != nil {
		t.Fatalf("expected inactive identity to stay unauthenticated, got %+v", seen)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", "abc.def.ghi"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"Bearer   spaced   ", "spaced"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := extractBearer(r); got != tt.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
