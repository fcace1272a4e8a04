// Package scope implements spec §4.D's ScopeManager: filtering a requested
// scope string down to what a client is allowed, merging in defaults, and
// normalizing ordering so "openid" always comes first when present.
package scope

import (
	"sort"
	"strings"
)

// DefaultScopes are granted even when a client requests nothing explicit
// (spec §4.D).
var DefaultScopes = []string{"profile", "email"}

// Manager filters and normalizes scope strings against a fixed allow-list.
// FerrisKey does not model per-client scope grants (out of spec.md's
// explicit scope); every realm shares the same allowed set.
type Manager struct {
	allowed map[string]bool
}

// New builds a Manager over the given allowed scope names.
func New(allowedScopes []string) *Manager {
	allowed := make(map[string]bool, len(allowedScopes))
	for _, s := range allowedScopes {
		allowed[s] = true
	}
	return &Manager{allowed: allowed}
}

// DefaultManager is the standard OIDC scope set FerrisKey recognizes.
func DefaultManager() *Manager {
	return New([]string{"openid", "profile", "email", "offline_access"})
}

// ValidateAndFilter splits requested on whitespace, drops anything not in
// the allow-list, and returns the filtered, deduplicated, sorted result. An
// empty (or all-whitespace) requested scope falls back to DefaultScopes
// rather than an empty string (spec §4.D).
func (m *Manager) ValidateAndFilter(requested string) string {
	if strings.TrimSpace(requested) == "" {
		return m.normalize(append([]string(nil), DefaultScopes...))
	}
	return m.normalize(filterAllowed(splitScope(requested), m.allowed))
}

// MergeWithDefaults applies ValidateAndFilter, then adds any DefaultScopes
// not already present.
func (m *Manager) MergeWithDefaults(requested string) string {
	scopes := filterAllowed(splitScope(requested), m.allowed)
	present := toSet(scopes)
	for _, d := range DefaultScopes {
		if !present[d] && m.allowed[d] {
			scopes = append(scopes, d)
			present[d] = true
		}
	}
	return m.normalize(scopes)
}

// Contains reports whether scopeString grants the given scope.
func Contains(scopeString, name string) bool {
	for _, s := range splitScope(scopeString) {
		if s == name {
			return true
		}
	}
	return false
}

func splitScope(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	seen := map[string]bool{}
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func filterAllowed(scopes []string, allowed map[string]bool) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if allowed[s] {
			out = append(out, s)
		}
	}
	return out
}

func toSet(scopes []string) map[string]bool {
	set := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		set[s] = true
	}
	return set
}

// normalize sorts scopes alphabetically, then hoists "openid" to the front
// if present — so downstream OIDC-aware clients can treat the scope
// string's leading token as the flow discriminator (spec §4.D).
func (m *Manager) normalize(scopes []string) string {
	if len(scopes) == 0 {
		return ""
	}
	sorted := append([]string(nil), scopes...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i] == "openid" {
			return sorted[j] != "openid"
		}
		if sorted[j] == "openid" {
			return false
		}
		return sorted[i] < sorted[j]
	})
	return strings.Join(sorted, " ")
}
