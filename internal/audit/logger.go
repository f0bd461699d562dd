// Package audit records security events (logins, rotations, replay
// containment, policy denials, hijack signals) for later review.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"adaptive-access-platform/backend/internal/audit/domain"
	auditrepo "adaptive-access-platform/backend/internal/audit/repository"
	"adaptive-access-platform/backend/internal/logger"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Recorder writes a single audit event with explicit action/resource.
// Record is best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, identityID, action, resource, metadata string)
}

// Logger implements Recorder using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	log         *logger.Logger
	ipExtractor IPExtractor
}

// NewLogger returns a Recorder that persists to repo and uses ipExtractor for
// client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, log *logger.Logger, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, log: log, ipExtractor: ipExtractor}
}

// Record writes one audit event. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, identityID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if got := l.ipExtractor(ctx); got != "" {
			ip = got
		}
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Action:     action,
		Resource:   resource,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Error("audit write failed", "action", action, "error", err)
	}
}
