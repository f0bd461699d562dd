// Package trust computes per-request heuristic trust scores and tracks
// recent trust history per session.
package trust

import (
	"time"

	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
)

// Factor names reported in assessments.
const (
	FactorIdentity = "identity"
	FactorMFA      = "mfa"
	FactorDevice   = "device"
	FactorOrigin   = "origin"
	FactorAnomaly  = "anomaly"
	FactorTemporal = "temporal"
)

// Suspicious proxy-override headers. Each one present on a request chips away
// at the anomaly budget.
var suspiciousHeaders = []string{
	"X-Forwarded-Host",
	"X-Original-URL",
	"X-Rewrite-URL",
	"X-Forwarded-Server",
}

const maxBodyBytes = 1 << 20 // 1 MiB

// Business-hours window, UTC. A coarse temporal signal; requests outside it
// still score a small positive value, never zero.
const (
	businessHoursStart = 7
	businessHoursEnd   = 19
)

// RequestContext carries the signals the scorer reads. Identity is nil for
// unauthenticated requests; missing signals lower the score, they never error.
type RequestContext struct {
	Identity  *identitydomain.Identity
	DeviceID  string
	OriginIP  string
	SessionID string
	UserAgent string
	BodyBytes int64
	// HeaderPresent reports whether the named request header is set.
	// nil means no header information is available.
	HeaderPresent func(name string) bool
	At            time.Time // zero means time.Now
}

// FactorScore is one scored signal, kept for audit trails. The factor list is
// internal explainability; it is never included in denial responses.
type FactorScore struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
	Detail string `json:"detail"`
}

// Assessment is the result of scoring one request.
type Assessment struct {
	Score   int           `json:"score"`
	Factors []FactorScore `json:"factors"`
}

// ComputeTrustScore scores the request context on a 0–100 scale. Pure function
// of its input: no I/O, no errors. The score is a heuristic signal for policy
// decisions, not a cryptographic guarantee.
func ComputeTrustScore(rc RequestContext) Assessment {
	var factors []FactorScore
	add := func(factor string, points int, detail string) {
		factors = append(factors, FactorScore{Factor: factor, Points: points, Detail: detail})
	}

	if rc.Identity != nil && rc.Identity.ID != "" {
		add(FactorIdentity, 30, "verified identity present")
		if rc.Identity.MFAVerified {
			add(FactorMFA, 20, "mfa verified")
		}
		if rc.DeviceID != "" {
			if rc.Identity.KnowsDevice(rc.DeviceID) {
				add(FactorDevice, 15, "known device")
			} else {
				add(FactorDevice, 5, "unrecognized device")
			}
		}
		if rc.OriginIP != "" && rc.OriginIP == rc.Identity.LastKnownIP {
			add(FactorOrigin, 10, "origin matches last known ip")
		}
	}

	anomaly := 15
	for _, h := range suspiciousHeaders {
		if rc.HeaderPresent != nil && rc.HeaderPresent(h) {
			anomaly -= 3
		}
	}
	if rc.BodyBytes > maxBodyBytes {
		anomaly -= 5
	}
	if rc.UserAgent == "" {
		anomaly -= 3
	}
	if anomaly < 0 {
		anomaly = 0
	}
	add(FactorAnomaly, anomaly, "anomaly budget remaining")

	at := rc.At
	if at.IsZero() {
		at = time.Now()
	}
	hour := at.UTC().Hour()
	if hour >= businessHoursStart && hour < businessHoursEnd {
		add(FactorTemporal, 10, "within business hours")
	} else {
		add(FactorTemporal, 3, "outside business hours")
	}

	score := 0
	for _, f := range factors {
		score += f.Points
	}
	if score > 100 {
		score = 100
	}
	return Assessment{Score: score, Factors: factors}
}
