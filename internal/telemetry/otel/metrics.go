package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the core's counters. Counter creation errors are swallowed:
// a nil counter simply records nothing.
type Metrics struct {
	decisions metric.Int64Counter
	rotations metric.Int64Counter
	replays   metric.Int64Counter
}

// NewMetrics creates the core's counters on the given meter provider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter("adaptive-access-platform/backend")
	m := &Metrics{}
	m.decisions, _ = meter.Int64Counter("aap.policy.decisions",
		metric.WithDescription("Policy decisions by policy, code, and mode"))
	m.rotations, _ = meter.Int64Counter("aap.credential.rotations",
		metric.WithDescription("Successful refresh credential rotations"))
	m.replays, _ = meter.Int64Counter("aap.credential.replays",
		metric.WithDescription("Refresh credential replays detected"))
	return m
}

// RecordDecision counts one policy decision.
func (m *Metrics) RecordDecision(ctx context.Context, policy, code string, enforced bool) {
	if m == nil || m.decisions == nil {
		return
	}
	if code == "" {
		code = "allowed"
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("code", code),
		attribute.Bool("enforced", enforced),
	))
}

// RecordRotation counts one successful rotation.
func (m *Metrics) RecordRotation(ctx context.Context) {
	if m == nil || m.rotations == nil {
		return
	}
	m.rotations.Add(ctx, 1)
}

// RecordReplay counts one detected replay.
func (m *Metrics) RecordReplay(ctx context.Context) {
	if m == nil || m.replays == nil {
		return
	}
	m.replays.Add(ctx, 1)
}
