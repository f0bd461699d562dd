package trust

import (
	"testing"
	"time"

	identitydomain "adaptive-access-platform/backend/internal/identity/domain"
)

// businessHours is a fixed instant inside the business-hours window.
var businessHours = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func fullContext() RequestContext {
	return RequestContext{
		Identity: &identitydomain.Identity{
			ID:             "identity-1",
			MFAVerified:    true,
			KnownDeviceIDs: []string{"device-1"},
			LastKnownIP:    "10.0.0.1",
		},
		DeviceID:  "device-1",
		OriginIP:  "10.0.0.1",
		UserAgent: "test-agent",
		At:        businessHours,
	}
}

func TestComputeTrustScore_Bounds(t *testing.T) {
	contexts := []RequestContext{
		{},
		{At: businessHours},
		fullContext(),
		{
			UserAgent:     "",
			BodyBytes:     2 << 20,
			HeaderPresent: func(string) bool { return true },
			At:            businessHours,
		},
	}
	for i, rc := range contexts {
		a := ComputeTrustScore(rc)
		if a.Score < 0 || a.Score > 100 {
			t.Errorf("context %d: score = %d, want within [0, 100]", i, a.Score)
		}
		if len(a.Factors) == 0 {
			t.Errorf("context %d: factor list should never be empty", i)
		}
	}
}

func TestComputeTrustScore_FullContextMaxes(t *testing.T) {
	a := ComputeTrustScore(fullContext())
	if a.Score != 100 {
		t.Errorf("score = %d, want 100 for fully trusted context", a.Score)
	}
}

func TestComputeTrustScore_Monotonic(t *testing.T) {
	base := RequestContext{
		Identity:  &identitydomain.Identity{ID: "identity-1", LastKnownIP: "10.0.0.1"},
		UserAgent: "test-agent",
		At:        businessHours,
	}
	baseScore := ComputeTrustScore(base).Score

	withMFA := base
	withMFA.Identity = &identitydomain.Identity{ID: "identity-1", MFAVerified: true, LastKnownIP: "10.0.0.1"}
	if got := ComputeTrustScore(withMFA).Score; got < baseScore {
		t.Errorf("adding MFA decreased score: %d -> %d", baseScore, got)
	}

	withOrigin := base
	withOrigin.OriginIP = "10.0.0.1"
	if got := ComputeTrustScore(withOrigin).Score; got < baseScore {
		t.Errorf("adding matching origin decreased score: %d -> %d", baseScore, got)
	}

	withDevice := base
	withDevice.DeviceID = "unseen-device"
	if got := ComputeTrustScore(withDevice).Score; got < baseScore {
		t.Errorf("supplying a device id decreased score: %d -> %d", baseScore, got)
	}
}

func TestComputeTrustScore_UnknownDeviceScoresLess(t *testing.T) {
	known := fullContext()
	unknown := fullContext()
	unknown.DeviceID = "device-other"

	ks := ComputeTrustScore(known).Score
	us := ComputeTrustScore(unknown).Score
	if us >= ks {
		t.Errorf("unknown device score %d should be below known device score %d", us, ks)
	}
}

func TestComputeTrustScore_AnomalyFloor(t *testing.T) {
	rc := RequestContext{
		BodyBytes:     2 << 20,
		HeaderPresent: func(string) bool { return true }, // all suspicious headers present
		At:            businessHours,
	}
	a := ComputeTrustScore(rc)
	for _, f := range a.Factors {
		if f.Factor == FactorAnomaly && f.Points < 0 {
			t.Errorf("anomaly points = %d, want floored at 0", f.Points)
		}
	}
}

func TestComputeTrustScore_TemporalNeverZero(t *testing.T) {
	rc := RequestContext{UserAgent: "test-agent", At: time.Date(2026, 3, 4, 2, 0, 0, 0, time.UTC)}
	a := ComputeTrustScore(rc)
	found := false
	for _, f := range a.Factors {
		if f.Factor == FactorTemporal {
			found = true
			if f.Points <= 0 {
				t.Errorf("temporal points = %d, want positive even off-hours", f.Points)
			}
		}
	}
	if !found {
		t.Error("temporal factor missing")
	}
}

func TestComputeTrustScore_NoIdentityNoIdentityFactors(t *testing.T) {
	a := ComputeTrustScore(RequestContext{DeviceID: "device-1", OriginIP: "10.0.0.1", UserAgent: "ua", At: businessHours})
	for _, f := range a.Factors {
		switch f.Factor {
		case FactorIdentity, FactorMFA, FactorDevice, FactorOrigin:
			t.Errorf("unauthenticated request scored identity-derived factor %q", f.Factor)
		}
	}
}
