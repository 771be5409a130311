// Package auth - scopes.go defines the organization permission scopes and the scopes each
// membership role grants.
package auth

import "fmt"

// Scope is a permission within one organization
type Scope string

const (
	ScopeOrgRead         Scope = "org:read"
	ScopeOrgWrite        Scope = "org:write"
	ScopeOrgAdmin        Scope = "org:admin"
	ScopeOrgIntegrations Scope = "org:integrations"

	ScopeMemberRead  Scope = "member:read"
	ScopeMemberWrite Scope = "member:write"
	ScopeMemberAdmin Scope = "member:admin"

	ScopeTeamRead  Scope = "team:read"
	ScopeTeamWrite Scope = "team:write"
	ScopeTeamAdmin Scope = "team:admin"

	ScopeProjectRead  Scope = "project:read"
	ScopeProjectWrite Scope = "project:write"
	ScopeProjectAdmin Scope = "project:admin"

	ScopeEventRead  Scope = "event:read"
	ScopeEventWrite Scope = "event:write"
	ScopeEventAdmin Scope = "event:admin"
)

// AllScopes returns every valid scope
func AllScopes() []Scope {
	return []Scope{
		ScopeOrgRead, ScopeOrgWrite, ScopeOrgAdmin, ScopeOrgIntegrations,
		ScopeMemberRead, ScopeMemberWrite, ScopeMemberAdmin,
		ScopeTeamRead, ScopeTeamWrite, ScopeTeamAdmin,
		ScopeProjectRead, ScopeProjectWrite, ScopeProjectAdmin,
		ScopeEventRead, ScopeEventWrite, ScopeEventAdmin,
	}
}

var memberScopes = []Scope{
	ScopeOrgRead, ScopeMemberRead, ScopeTeamRead, ScopeProjectRead,
	ScopeEventRead, ScopeEventWrite, ScopeEventAdmin,
}

var adminScopes = append(append([]Scope{}, memberScopes...),
	ScopeOrgIntegrations, ScopeTeamWrite, ScopeTeamAdmin,
	ScopeProjectWrite, ScopeProjectAdmin,
)

var managerScopes = append(append([]Scope{}, adminScopes...),
	ScopeOrgWrite, ScopeMemberWrite, ScopeMemberAdmin,
)

var ownerScopes = append(append([]Scope{}, managerScopes...), ScopeOrgAdmin)

// roleScopes maps an organization membership role to the scopes it grants
var roleScopes = map[string][]Scope{
	"member":  memberScopes,
	"admin":   adminScopes,
	"manager": managerScopes,
	"owner":   ownerScopes,
}

// ScopesForRole returns the scopes granted by role; nil for an unknown role
func ScopesForRole(role string) []string {
	scopes, ok := roleScopes[role]
	if !ok {
		return nil
	}
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

// ValidateScopes checks that every entry of scopes is a known scope
func ValidateScopes(scopes []string) error {
	valid := make(map[string]bool, len(AllScopes()))
	for _, s := range AllScopes() {
		valid[string(s)] = true
	}
	for _, s := range scopes {
		if !valid[s] {
			return fmt.Errorf("invalid scope: %s", s)
		}
	}
	return nil
}

// HasScope reports whether granted contains required
func HasScope(granted []string, required Scope) bool {
	for _, s := range granted {
		if s == string(required) {
			return true
		}
	}
	return false
}

// HasAnyScope reports whether granted contains at least one of required
func HasAnyScope(granted []string, required []Scope) bool {
	for _, r := range required {
		if HasScope(granted, r) {
			return true
		}
	}
	return false
}
