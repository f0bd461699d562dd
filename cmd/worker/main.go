// Worker sweeps revoked and expired refresh credential rows on an interval.
// Rows inside the retention window are kept for replay forensics; the sweep
// only deletes what is both dead and old.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-access-platform/backend/internal/config"
	credentialrepo "adaptive-access-platform/backend/internal/credential/repository"
	credentialservice "adaptive-access-platform/backend/internal/credential/service"
	"adaptive-access-platform/backend/internal/db"
	identityrepo "adaptive-access-platform/backend/internal/identity/repository"
	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(0).Fatal("config", "error", err)
	}
	log := logger.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db open", "error", err)
	}
	defer database.Close()

	// The worker never issues tokens; the service is constructed for its
	// cleanup path only, so signing keys are not needed here.
	tokenSvc := credentialservice.NewTokenService(
		credentialrepo.NewPostgresRepository(database), identityrepo.NewPostgresRepository(database),
		security.NewTokenProvider(nil, nil, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()),
		cfg.RefreshTTL(), nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("worker shutting down")
		cancel()
	}()

	interval := cfg.CleanupInterval()
	log.Info("credential cleanup worker started", "interval", interval)

	sweep := func() {
		sweepCtx, sweepCancel := context.WithTimeout(ctx, time.Minute)
		defer sweepCancel()
		n, err := tokenSvc.CleanupExpired(sweepCtx)
		if err != nil {
			log.Error("cleanup sweep failed", "error", err)
			return
		}
		log.Info("cleanup sweep done", "deleted", n)
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
