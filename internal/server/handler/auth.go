// Package handler holds the HTTP handlers for the authentication surface.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"adaptive-access-platform/backend/internal/audit"
	credentialservice "adaptive-access-platform/backend/internal/credential/service"
	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
	identityservice "adaptive-access-platform/backend/internal/identity/service"
	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/server/middleware"
	"adaptive-access-platform/backend/internal/telemetry/otel"
)

const maxAuthBodyBytes = 64 << 10

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type identityResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	MFAVerified bool   `json:"mfaVerified"`
}

type tokenPairResponse struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresIn    int64            `json:"expiresIn"`
	Identity     identityResponse `json:"identity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Auth serves login, refresh, logout, and password change.
type Auth struct {
	identities *identityservice.Service
	tokens     *credentialservice.TokenService
	log        *logger.Logger
	audit      audit.Recorder
	metrics    *otel.Metrics
}

// NewAuth returns the auth handler set. audit and metrics may be nil.
func NewAuth(identities *identityservice.Service, tokens *credentialservice.TokenService, log *logger.Logger, auditor audit.Recorder, metrics *otel.Metrics) *Auth {
	return &Auth{identities: identities, tokens: tokens, log: log, audit: auditor, metrics: metrics}
}

// Login verifies a username/password pair and issues a fresh credential pair
// in a new family. Bad credentials, unknown users, and deactivated users all
// get the same 401.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ident, err := h.identities.Verify(r.Context(), req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		if errors.Is(err, identityservice.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		h.internalError(w, "login failed", err)
		return
	}
	pair, err := h.tokens.IssuePair(r.Context(), ident, "")
	if err != nil {
		h.internalError(w, "issue pair failed", err)
		return
	}
	h.record(r, ident.ID, "auth.login", "session", "username="+ident.Username)
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

// Refresh rotates the presented refresh credential. Unknown, expired, and
// replayed credentials are all answered with the same generic 401: the
// response never reveals whether a credential existed or triggered
// containment.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	pair, err := h.tokens.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, credentialservice.ErrRefreshTokenReplay):
			h.metrics.RecordReplay(r.Context())
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired refresh token"})
		case errors.Is(err, credentialservice.ErrInvalidRefreshToken):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired refresh token"})
		default:
			h.internalError(w, "rotate failed", err)
		}
		return
	}
	h.metrics.RecordRotation(r.Context())
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

// Logout revokes credentials. With a refreshToken in the body only that
// credential dies ("this device"); an authenticated caller additionally has
// every credential revoked. A store failure surfaces as 500: answering 204
// would tell the client a possibly stolen credential is dead while it is
// still active.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength != 0 {
		// Body is optional; a malformed one is ignored rather than rejected.
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(&req)
	}
	if req.RefreshToken != "" {
		if err := h.tokens.RevokeOne(r.Context(), req.RefreshToken); err != nil {
			h.internalError(w, "logout revoke failed", err)
			return
		}
	}
	if ident := middleware.GetIdentity(r.Context()); ident != nil {
		if err := h.tokens.RevokeAllForIdentity(r.Context(), ident.ID, "logout"); err != nil {
			h.internalError(w, "logout revoke all failed", err)
			return
		}
		h.record(r, ident.ID, "auth.logout", "session", "")
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword updates the caller's password and revokes every outstanding
// refresh credential before answering, so a stolen credential does not outlive
// the change.
func (h *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	if ident == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	var req passwordChangeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.identities.ChangePassword(r.Context(), ident.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, identityservice.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		h.internalError(w, "password change failed", err)
		return
	}
	if err := h.tokens.RevokeAllForIdentity(r.Context(), ident.ID, "password_change"); err != nil {
		h.internalError(w, "password change revoke failed", err)
		return
	}
	h.record(r, ident.ID, "auth.password_change", "identity", "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Auth) record(r *http.Request, identityID, action, resource, metadata string) {
	if h.audit == nil {
		return
	}
	h.audit.Record(r.Context(), identityID, action, resource, metadata)
}

func (h *Auth) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func pairResponse(pair *credentialservice.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		Identity:     identityView(pair.Identity),
	}
}

func identityView(ident *identitydomain.Identity) identityResponse {
	return identityResponse{
		ID:          ident.ID,
		Username:    ident.Username,
		Email:       ident.Email,
		Role:        ident.Role,
		MFAVerified: ident.MFAVerified,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
