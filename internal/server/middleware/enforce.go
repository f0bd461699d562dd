package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"adaptive-access-platform/backend/internal/policy"
	"adaptive-access-platform/backend/internal/telemetry/otel"
	"adaptive-access-platform/backend/internal/trust"
)

type denyResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Policy    string `json:"policy"`
	Score     *int   `json:"score,omitempty"`
	Threshold *int   `json:"threshold,omitempty"`
}

// EnforcePolicy returns middleware that scores the request and applies the
// resolved policy before the handler runs. metrics may be nil.
func EnforcePolicy(enforcer *policy.Enforcer, metrics *otel.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ec := policy.EvalContext{
				Path:    r.URL.Path,
				Request: requestContext(r),
			}
			d := enforcer.Enforce(r.Context(), ec)
			metrics.RecordDecision(r.Context(), d.Policy, d.Code, enforcer.Enforcing())
			if !d.Allowed {
				writeDeny(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestContext extracts the trust-scoring inputs from the request.
func requestContext(r *http.Request) trust.RequestContext {
	body := r.ContentLength
	if body < 0 {
		body = 0
	}
	return trust.RequestContext{
		Identity:  GetIdentity(r.Context()),
		DeviceID:  DeviceID(r),
		OriginIP:  ClientIP(r),
		SessionID: SessionID(r),
		UserAgent: r.UserAgent(),
		BodyBytes: body,
		HeaderPresent: func(name string) bool {
			return r.Header.Get(name) != ""
		},
		At: time.Now().UTC(),
	}
}

// writeDeny emits the denial body. The score and its threshold are included
// only for trust denials; other denials must not reveal how close the
// request came to passing.
func writeDeny(w http.ResponseWriter, d policy.Decision) {
	resp := denyResponse{
		Error:  "request denied by policy",
		Code:   d.Code,
		Policy: d.Policy,
	}
	if d.Code == policy.CodeTrustBelowThreshold {
		score, threshold := d.Score, d.Threshold
		resp.Score = &score
		resp.Threshold = &threshold
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(d.Status)
	json.NewEncoder(w).Encode(resp)
}
