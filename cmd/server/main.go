// Server runs the adaptive access control HTTP API: login, credential
// rotation, and per-request policy enforcement for everything behind it.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-access-platform/backend/internal/audit"
	auditrepo "adaptive-access-platform/backend/internal/audit/repository"
	"adaptive-access-platform/backend/internal/config"
	credentialrepo "adaptive-access-platform/backend/internal/credential/repository"
	credentialservice "adaptive-access-platform/backend/internal/credential/service"
	"adaptive-access-platform/backend/internal/db"
	identityrepo "adaptive-access-platform/backend/internal/identity/repository"
	identityservice "adaptive-access-platform/backend/internal/identity/service"
	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/policy"
	"adaptive-access-platform/backend/internal/security"
	"adaptive-access-platform/backend/internal/server"
	"adaptive-access-platform/backend/internal/server/handler"
	"adaptive-access-platform/backend/internal/server/middleware"
	"adaptive-access-platform/backend/internal/telemetry/otel"
	"adaptive-access-platform/backend/internal/trust"
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

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatal("JWT_PRIVATE_KEY", "error", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatal("JWT_PUBLIC_KEY", "error", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "aap-server", false)
	if err != nil {
		log.Fatal("otel", "error", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("otel shutdown", "error", err)
		}
	}()
	metrics := otel.NewMetrics(providers.MeterProvider)

	auditRepo := auditrepo.NewPostgresRepository(database)
	auditor := audit.NewLogger(auditRepo, log, middleware.GetClientIP)
	hasher := security.NewHasher(cfg.BcryptCost)

	identSvc := identityservice.New(identityrepo.NewPostgresRepository(database), hasher)
	tokenSvc := credentialservice.NewTokenService(
		credentialrepo.NewPostgresRepository(database), identityrepo.NewPostgresRepository(database),
		tokens, cfg.RefreshTTL(), auditor,
	)

	enforcing := cfg.Enforcing()
	enforcer := policy.NewEnforcer(policy.NewDefaultResolver(), trust.NewMemoryStore(), enforcing, log, auditor)

	router := server.NewRouter(server.Deps{
		Log:        log,
		Tokens:     tokens,
		Identities: identSvc,
		Auth:       handler.NewAuth(identSvc, tokenSvc, log, auditor, metrics),
		Admin:      handler.NewAdmin(identSvc, tokenSvc, auditRepo, log, auditor),
		Enforcer:   enforcer,
		Metrics:    metrics,
	}, nil)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "enforcing", enforcing)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("serve", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("http server stopped")
}
