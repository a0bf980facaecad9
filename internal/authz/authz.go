// Package authz centralizes capability evaluation for the dashboard. It is
// an advisory client-side gate: the upstream API independently enforces
// authorization on every call.
package authz

import "strings"

// Mode selects how a required permission set is evaluated.
type Mode int

const (
	// Any grants when the user holds at least one required permission.
	// Navigation visibility always uses Any.
	Any Mode = iota
	// All grants only when every required permission is held.
	All
)

// Allow is the single capability-evaluation function consumed by the
// navigation model and the route guards. An empty requirement set always
// allows. Comparison is case-insensitive.
func Allow(granted, required []string, mode Mode) bool {
	needed := normalize(required)
	if len(needed) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range normalize(granted) {
		set[p] = struct{}{}
	}
	for _, r := range needed {
		_, ok := set[r]
		if mode == Any && ok {
			return true
		}
		if mode == All && !ok {
			return false
		}
	}
	return mode == All
}

func normalize(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
