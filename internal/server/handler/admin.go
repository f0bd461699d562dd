package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"adaptive-access-platform/backend/internal/audit"
	auditdomain "adaptive-access-platform/backend/internal/audit/domain"
	credentialservice "adaptive-access-platform/backend/internal/credential/service"
	identityservice "adaptive-access-platform/backend/internal/identity/service"
	"adaptive-access-platform/backend/internal/logger"
)

const (
	defaultAuditListLimit = 50
	maxAuditListLimit     = 500
)

// AuditReader lists recorded security events for review.
type AuditReader interface {
	ListByIdentity(ctx context.Context, identityID string, limit int32) ([]*auditdomain.AuditLog, error)
}

// Admin serves operator endpoints. Access is gated by the admin policy on
// /api/admin/*, not by checks here.
type Admin struct {
	identities *identityservice.Service
	tokens     *credentialservice.TokenService
	auditLogs  AuditReader
	log        *logger.Logger
	audit      audit.Recorder
}

// NewAdmin returns the admin handler set. auditLogs and audit may be nil;
// a nil auditLogs disables the audit listing endpoint.
func NewAdmin(identities *identityservice.Service, tokens *credentialservice.TokenService, auditLogs AuditReader, log *logger.Logger, auditor audit.Recorder) *Admin {
	return &Admin{identities: identities, tokens: tokens, auditLogs: auditLogs, log: log, audit: auditor}
}

// DeactivateIdentity flips the target identity inactive and revokes every
// refresh credential it holds, so existing sessions die with the account.
func (h *Admin) DeactivateIdentity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ident, err := h.identities.GetByID(r.Context(), id)
	if err != nil {
		h.log.Error("deactivate lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if ident == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "identity not found"})
		return
	}
	if err := h.identities.Deactivate(r.Context(), id); err != nil {
		h.log.Error("deactivate failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if err := h.tokens.RevokeAllForIdentity(r.Context(), id, "deactivated"); err != nil {
		h.log.Error("deactivate revoke failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if h.audit != nil {
		h.audit.Record(r.Context(), id, "identity.deactivate", "identity", "username="+ident.Username)
	}
	w.WriteHeader(http.StatusNoContent)
}

type auditEventResponse struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	IP         string    `json:"ip"`
	Metadata   string    `json:"metadata"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ListIdentityAudit returns the identity's most recent security events,
// newest first. limit defaults to 50, capped at 500.
func (h *Admin) ListIdentityAudit(w http.ResponseWriter, r *http.Request) {
	if h.auditLogs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "audit listing not available"})
		return
	}
	id := chi.URLParam(r, "id")
	limit := int32(defaultAuditListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		if n > maxAuditListLimit {
			n = maxAuditListLimit
		}
		limit = int32(n)
	}
	events, err := h.auditLogs.ListByIdentity(r.Context(), id, limit)
	if err != nil {
		h.log.Error("audit list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, auditEventResponse{
			ID:         e.ID,
			IdentityID: e.IdentityID,
			Action:     e.Action,
			Resource:   e.Resource,
			IP:         e.IP,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
