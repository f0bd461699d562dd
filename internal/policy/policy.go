// Package policy resolves request paths to named policies and enforces them
// against identity and trust signals.
package policy

// RoleWildcard in AllowedRoles skips the role check for any authenticated role.
const RoleWildcard = "*"

// Policy is a named bundle of authorization requirements bound to request
// paths. Static configuration; never persisted.
type Policy struct {
	Name            string
	MinTrustScore   int
	RequireAuth     bool
	RequireMFA      bool
	AllowedRoles    []string
	RequireDeviceID bool
}

// RoleAllowed reports whether role passes the policy's role check.
func (p Policy) RoleAllowed(role string) bool {
	for _, r := range p.AllowedRoles {
		if r == RoleWildcard || r == role {
			return true
		}
	}
	return false
}

// Built-in policy names.
const (
	PolicyPublic    = "public"
	PolicyStandard  = "standard"
	PolicySensitive = "sensitive"
	PolicyAdmin     = "admin"
)

// BuiltinPolicies returns the static policy set keyed by name.
func BuiltinPolicies() map[string]Policy {
	return map[string]Policy{
		PolicyPublic: {
			Name:         PolicyPublic,
			AllowedRoles: []string{RoleWildcard},
		},
		PolicyStandard: {
			Name:          PolicyStandard,
			RequireAuth:   true,
			AllowedRoles:  []string{RoleWildcard},
			MinTrustScore: 30,
		},
		PolicySensitive: {
			Name:          PolicySensitive,
			RequireAuth:   true,
			RequireMFA:    true,
			AllowedRoles:  []string{RoleWildcard},
			MinTrustScore: 60,
		},
		PolicyAdmin: {
			Name:            PolicyAdmin,
			RequireAuth:     true,
			RequireMFA:      true,
			AllowedRoles:    []string{"admin"},
			MinTrustScore:   70,
			RequireDeviceID: true,
		},
	}
}
