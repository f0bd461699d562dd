package policy

import "strings"

// Binding maps a path pattern to a policy name. Patterns are exact paths or
// prefixes ending in "/*".
type Binding struct {
	Pattern    string
	PolicyName string
}

// DefaultBindings is the ordered binding table for the platform's API surface.
// First match wins; anything unmatched falls back to "standard".
func DefaultBindings() []Binding {
	return []Binding{
		{Pattern: "/api/auth/login", PolicyName: PolicyPublic},
		{Pattern: "/api/auth/refresh", PolicyName: PolicyPublic},
		{Pattern: "/api/auth/logout", PolicyName: PolicyPublic},
		{Pattern: "/healthz", PolicyName: PolicyPublic},
		{Pattern: "/api/admin/*", PolicyName: PolicyAdmin},
		{Pattern: "/api/compliance/*", PolicyName: PolicySensitive},
		{Pattern: "/api/exports/*", PolicyName: PolicySensitive},
		{Pattern: "/api/auth/password", PolicyName: PolicySensitive},
	}
}

// Resolver resolves paths to policies using an ordered binding table.
// Resolution is total: every path maps to exactly one policy.
type Resolver struct {
	bindings []Binding
	policies map[string]Policy
	fallback Policy
}

// NewResolver returns a Resolver over the given bindings and policy set.
// Bindings naming unknown policies resolve to the "standard" fallback.
func NewResolver(bindings []Binding, policies map[string]Policy) *Resolver {
	fallback, ok := policies[PolicyStandard]
	if !ok {
		fallback = Policy{Name: PolicyStandard, RequireAuth: true, AllowedRoles: []string{RoleWildcard}}
	}
	return &Resolver{bindings: bindings, policies: policies, fallback: fallback}
}

// NewDefaultResolver returns a Resolver over the built-in bindings and policies.
func NewDefaultResolver() *Resolver {
	return NewResolver(DefaultBindings(), BuiltinPolicies())
}

// Resolve returns the policy for path: first matching binding wins, with the
// "standard" policy when nothing matches.
func (r *Resolver) Resolve(path string) Policy {
	for _, b := range r.bindings {
		if matchPattern(b.Pattern, path) {
			if p, ok := r.policies[b.PolicyName]; ok {
				return p
			}
			return r.fallback
		}
	}
	return r.fallback
}

func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}
