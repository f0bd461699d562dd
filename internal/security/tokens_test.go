package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, expiresAt, err := p.IssueAccess("id-1", "alice", "alice@example.com", "admin")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("token is empty")
	}
	if !expiresAt.After(time.Now()) {
		t.Error("expiresAt should be in the future")
	}

	claims, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.Subject != "id-1" {
		t.Errorf("Subject = %q, want id-1", claims.Subject)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, bad := range []string{"", "garbage", "a.b.c"} {
		if _, err := p.ValidateAccess(bad); err == nil {
			t.Errorf("ValidateAccess(%q) should fail", bad)
		}
	}
}

func TestTokenProvider_WrongIssuerRejected(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	issuerA := NewTokenProvider(signer, pub, "issuer-a", "aud", 15*time.Minute)
	issuerB := NewTokenProvider(signer, pub, "issuer-b", "aud", 15*time.Minute)

	token, _, err := issuerA.IssueAccess("id-1", "alice", "a@example.com", "member")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := issuerB.ValidateAccess(token); err == nil {
		t.Error("token from issuer-a should not validate under issuer-b")
	}
}
