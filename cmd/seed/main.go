// seed inserts development sample identities for local testing.
// Idempotent: skips inserts if the dev identity (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"adaptive-access-platform/backend/internal/config"
	"adaptive-access-platform/backend/internal/db"
	"adaptive-access-platform/backend/internal/identity/domain"
	identityrepo "adaptive-access-platform/backend/internal/identity/repository"
	"adaptive-access-platform/backend/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := identityrepo.NewPostgresRepository(database)
	if existing, err := repo.GetByUsername(ctx, "dev"); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	} else if existing != nil {
		fmt.Println("seed: dev identity already exists, skipping")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash := func(pw string) string {
		h, err := hasher.Hash([]byte(pw))
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed:", err)
			os.Exit(1)
		}
		return h
	}

	now := time.Now().UTC()
	identities := []*domain.Identity{
		{
			ID: uuid.New().String(), Username: "dev", Email: "dev@example.com",
			PasswordHash: hash("devpassword"), Role: "member",
			MFAVerified: false, Active: true, CreatedAt: now,
		},
		{
			ID: uuid.New().String(), Username: "dev-admin", Email: "dev-admin@example.com",
			PasswordHash: hash("devpassword"), Role: "admin",
			MFAVerified: true, Active: true, CreatedAt: now,
			KnownDeviceIDs: []string{"dev-laptop"},
		},
	}
	for _, ident := range identities {
		if err := repo.Create(ctx, ident); err != nil {
			fmt.Fprintln(os.Stderr, "seed:", err)
			os.Exit(1)
		}
		fmt.Printf("seed: created %s (%s)\n", ident.Username, ident.Role)
	}
}
