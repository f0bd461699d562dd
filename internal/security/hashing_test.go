package security

import "testing"

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4) // min cost for fast tests
	hash, err := h.Hash([]byte("S3cure-password!"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, []byte("S3cure-password!")); err != nil {
		t.Errorf("Compare should accept correct password: %v", err)
	}
	if err := h.Compare(hash, []byte("wrong-password")); err == nil {
		t.Error("Compare should reject wrong password")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	if h := NewHasher(0); h.Cost <= 0 {
		t.Errorf("cost = %d, want positive default", h.Cost)
	}
	if h := NewHasher(100); h.Cost > 31 {
		t.Errorf("cost = %d, want clamped to max", h.Cost)
	}
}
