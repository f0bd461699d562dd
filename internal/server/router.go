// Package server wires the HTTP surface: middleware chain, auth routes, and
// health checks.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/policy"
	"adaptive-access-platform/backend/internal/security"
	"adaptive-access-platform/backend/internal/server/handler"
	"adaptive-access-platform/backend/internal/server/middleware"
	"adaptive-access-platform/backend/internal/telemetry/otel"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Log        *logger.Logger
	Tokens     *security.TokenProvider
	Identities middleware.IdentityLoader
	Auth       *handler.Auth
	Admin      *handler.Admin
	Enforcer   *policy.Enforcer
	Metrics    *otel.Metrics
}

// NewRouter builds the full middleware chain and mounts the auth routes.
// Every request passes policy enforcement; per-route middleware is not needed
// because the path→policy binding table decides. extra, if non-nil, is called
// with the router so callers can mount protected application routes.
func NewRouter(d Deps, extra func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CaptureClientIP)
	r.Use(middleware.BearerAuth(d.Tokens, d.Identities, d.Log))
	r.Use(middleware.EnforcePolicy(d.Enforcer, d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", d.Auth.Login)
		r.Post("/refresh", d.Auth.Refresh)
		r.Post("/logout", d.Auth.Logout)
		r.Post("/password", d.Auth.ChangePassword)
	})

	if d.Admin != nil {
		r.Route("/api/admin/identities/{id}", func(r chi.Router) {
			r.Post("/deactivate", d.Admin.DeactivateIdentity)
			r.Get("/audit", d.Admin.ListIdentityAudit)
		})
	}

	if extra != nil {
		extra(r)
	}
	return r
}
