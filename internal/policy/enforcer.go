package policy

import (
	"context"
	"fmt"
	"net/http"

	"adaptive-access-platform/backend/internal/logger"
	"adaptive-access-platform/backend/internal/trust"
)

// Machine-readable denial codes. Stable: clients and dashboards key off them.
const (
	CodeAuthRequired        = "auth-required"
	CodeMFARequired         = "mfa-required"
	CodeRoleDenied          = "role-denied"
	CodeTrustBelowThreshold = "trust-below-threshold"
	CodeDeviceRequired      = "device-required"
)

// statusFor maps a denial code to its HTTP status: 401 for auth/role, 403 for
// MFA/trust/device.
func statusFor(code string) int {
	switch code {
	case CodeAuthRequired, CodeRoleDenied:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// Violation is one failed policy check.
type Violation struct {
	Code   string
	Status int
}

// Decision is the outcome of enforcing a policy against one request.
// When denied, Code/Status reflect the first failing check. Violations holds
// every failure seen, which in observe mode is the complete picture.
type Decision struct {
	Allowed    bool
	Policy     string
	Code       string
	Status     int
	Score      int
	Threshold  int
	Scored     bool
	Violations []Violation
}

// Auditor records security events; may be nil.
type Auditor interface {
	Record(ctx context.Context, identityID, action, resource, metadata string)
}

// Enforcer combines the resolver, the trust scorer, and the session trust
// tracker into allow/deny decisions, in enforcing or observe-only mode.
type Enforcer struct {
	resolver  *Resolver
	tracker   trust.SessionTrustStore
	enforcing bool
	log       *logger.Logger
	audit     Auditor
	// scoreF computes the trust score; defaults to trust.ComputeTrustScore.
	// Swappable for tests.
	scoreF func(trust.RequestContext) trust.Assessment
}

// NewEnforcer returns an Enforcer. tracker and audit may be nil; log must not be.
func NewEnforcer(resolver *Resolver, tracker trust.SessionTrustStore, enforcing bool, log *logger.Logger, audit Auditor) *Enforcer {
	return &Enforcer{
		resolver:  resolver,
		tracker:   tracker,
		enforcing: enforcing,
		log:       log,
		audit:     audit,
		scoreF:    trust.ComputeTrustScore,
	}
}

// Enforcing reports the enforcer's mode.
func (e *Enforcer) Enforcing() bool { return e.enforcing }

// EvalContext carries everything the enforcer needs for one request.
type EvalContext struct {
	Path    string
	Request trust.RequestContext
}

// Enforce resolves the policy for ec.Path and evaluates it.
//
// Public paths are allowed immediately with no scoring or tracking. Otherwise
// the request is scored, the score is folded into the session tracker (origin
// changes are logged as hijack signals, non-blocking), and the policy's checks
// run in fixed order: auth, MFA, roles, trust threshold, device id. In
// enforcing mode the first failure denies; in observe mode every failure is
// logged and the request passes, so rollout of tightened policies is safe.
func (e *Enforcer) Enforce(ctx context.Context, ec EvalContext) Decision {
	pol := e.resolver.Resolve(ec.Path)
	d := Decision{Allowed: true, Policy: pol.Name}

	if pol.Name == PolicyPublic {
		return d
	}

	assessment := e.scoreF(ec.Request)
	d.Score = assessment.Score
	d.Scored = true

	e.track(ctx, ec, assessment.Score)

	ident := ec.Request.Identity
	identityID := ""
	if ident != nil {
		identityID = ident.ID
	}

	if pol.RequireAuth && (ident == nil || ident.ID == "") {
		if e.fail(ctx, &d, pol, CodeAuthRequired, identityID) {
			return d
		}
	}
	if pol.RequireMFA && (ident == nil || !ident.MFAVerified) {
		if e.fail(ctx, &d, pol, CodeMFARequired, identityID) {
			return d
		}
	}
	if ident != nil && ident.ID != "" && !pol.RoleAllowed(ident.Role) {
		if e.fail(ctx, &d, pol, CodeRoleDenied, identityID) {
			return d
		}
	}
	if assessment.Score < pol.MinTrustScore {
		d.Threshold = pol.MinTrustScore
		if e.fail(ctx, &d, pol, CodeTrustBelowThreshold, identityID) {
			return d
		}
	}
	if pol.RequireDeviceID && ec.Request.DeviceID == "" {
		if e.fail(ctx, &d, pol, CodeDeviceRequired, identityID) {
			return d
		}
	}
	return d
}

// fail records the violation and reports whether evaluation should stop.
// In observe mode it never stops, so the log captures every failing check.
func (e *Enforcer) fail(ctx context.Context, d *Decision, pol Policy, code, identityID string) bool {
	status := statusFor(code)
	d.Violations = append(d.Violations, Violation{Code: code, Status: status})

	// First failure decides the reported outcome.
	if d.Code == "" {
		d.Code = code
		d.Status = status
	}
	e.log.Warn("policy check failed",
		"policy", pol.Name,
		"code", code,
		"score", d.Score,
		"enforcing", e.enforcing,
	)
	if e.audit != nil {
		e.audit.Record(ctx, identityID, "policy.deny", "policy",
			fmt.Sprintf("policy=%s code=%s enforcing=%t", pol.Name, code, e.enforcing))
	}
	if e.enforcing {
		d.Allowed = false
		return true
	}
	return false
}

func (e *Enforcer) track(ctx context.Context, ec EvalContext, score int) {
	if e.tracker == nil {
		return
	}
	identityID := ""
	if ec.Request.Identity != nil {
		identityID = ec.Request.Identity.ID
	}
	key := trust.SessionKey(identityID, ec.Request.SessionID, ec.Request.OriginIP)
	if key == "" {
		return
	}
	obs := e.tracker.Record(key, ec.Request.OriginIP, score)
	if obs.OriginChanged {
		e.log.Warn("session origin changed",
			"key", key,
			"previous", obs.PreviousOrigin,
			"current", ec.Request.OriginIP,
		)
		if e.audit != nil {
			e.audit.Record(ctx, identityID, "trust.origin_change", "session",
				fmt.Sprintf("previous=%s current=%s", obs.PreviousOrigin, ec.Request.OriginIP))
		}
	}
}
