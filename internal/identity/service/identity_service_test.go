package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"adaptive-access-platform/backend/internal/identity/domain"
	"adaptive-access-platform/backend/internal/security"
)

type memRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Identity
}

func newMemRepo(idents ...*domain.Identity) *memRepo {
	r := &memRepo{byID: make(map[string]*domain.Identity)}
	for _, id := range idents {
		r.byID[id.ID] = id
	}
	return r
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ident := range r.byID {
		if ident.Username == username {
			return ident, nil
		}
	}
	return nil, nil
}

func (r *memRepo) UpdateLastKnownIP(_ context.Context, id, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.byID[id]; ok {
		ident.LastKnownIP = ip
	}
	return nil
}

func (r *memRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.byID[id]; ok {
		ident.PasswordHash = hash
	}
	return nil
}

func (r *memRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.byID[id]; ok {
		ident.Active = active
	}
	return nil
}

func newTestService(t *testing.T, idents ...*domain.Identity) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo(idents...)
	return New(repo, security.NewHasher(4)), repo
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := security.NewHasher(4).Hash([]byte(pw))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return h
}

func TestVerify_Success(t *testing.T) {
	svc, repo := newTestService(t, &domain.Identity{
		ID: "id-1", Username: "alice", PasswordHash: mustHash(t, "secret"), Active: true,
	})

	ident, err := svc.Verify(context.Background(), "alice", "secret", "203.0.113.7")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.ID != "id-1" {
		t.Errorf("identity = %+v", ident)
	}
	stored, _ := repo.GetByID(context.Background(), "id-1")
	if stored.LastKnownIP != "203.0.113.7" {
		t.Errorf("LastKnownIP = %q, want origin recorded", stored.LastKnownIP)
	}
}

func TestVerify_UsernameNormalized(t *testing.T) {
	svc, _ := newTestService(t, &domain.Identity{
		ID: "id-1", Username: "alice", PasswordHash: mustHash(t, "secret"), Active: true,
	})
	if _, err := svc.Verify(context.Background(), "  ALICE  ", "secret", ""); err != nil {
		t.Fatalf("Verify with unnormalized username: %v", err)
	}
}

func TestVerify_Failures(t *testing.T) {
	svc, _ := newTestService(t,
		&domain.Identity{ID: "id-1", Username: "alice", PasswordHash: mustHash(t, "secret"), Active: true},
		&domain.Identity{ID: "id-2", Username: "bob", PasswordHash: mustHash(t, "secret"), Active: false},
	)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "nope"},
		{"unknown user", "mallory", "secret"},
		{"inactive user", "bob", "secret"},
		{"empty username", "", "secret"},
		{"empty password", "alice", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), tt.username, tt.password, "")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t, &domain.Identity{
		ID: "id-1", Username: "alice", PasswordHash: mustHash(t, "old"), Active: true,
	})

	if err := svc.ChangePassword(context.Background(), "id-1", "wrong", "new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: err = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(context.Background(), "id-1", "old", "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Verify(context.Background(), "alice", "new", ""); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := svc.Verify(context.Background(), "alice", "old", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted: err = %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	svc, _ := newTestService(t, &domain.Identity{
		ID: "id-1", Username: "alice", PasswordHash: mustHash(t, "secret"), Active: true,
	})
	if err := svc.Deactivate(context.Background(), "id-1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := svc.Verify(context.Background(), "alice", "secret", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("deactivated identity verified: err = %v", err)
	}
}
