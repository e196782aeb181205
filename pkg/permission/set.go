package permission

import (
	"sort"
	"strings"
)

// Set is a collection of grants. The zero value is an empty set that covers
// nothing. Sets are not safe for concurrent mutation; the sandbox treats
// them as immutable for the duration of an invocation.
type Set struct {
	grants map[Permission]struct{}
}

// NewSet builds a set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := Set{grants: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		s.grants[p] = struct{}{}
	}
	return s
}

// Add inserts a grant.
func (s *Set) Add(p Permission) {
	if s.grants == nil {
		s.grants = make(map[Permission]struct{})
	}
	s.grants[p] = struct{}{}
}

// With returns a copy of the set including p.
func (s Set) With(p Permission) Set {
	out := NewSet(s.Slice()...)
	out.Add(p)
	return out
}

// Contains reports whether any grant covers the requested permission.
func (s Set) Contains(requested Permission) bool {
	for g := range s.grants {
		if g.Covers(requested) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every permission in required is covered.
func (s Set) ContainsAll(required Set) bool {
	for p := range required.grants {
		if !s.Contains(p) {
			return false
		}
	}
	return true
}

// Missing returns the permissions in required not covered by the set,
// in a stable order.
func (s Set) Missing(required Set) []Permission {
	var missing []Permission
	for p := range required.grants {
		if !s.Contains(p) {
			missing = append(missing, p)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].Describe() < missing[j].Describe()
	})
	return missing
}

// Len returns the number of grants.
func (s Set) Len() int { return len(s.grants) }

// IsEmpty reports whether the set holds no grants.
func (s Set) IsEmpty() bool { return len(s.grants) == 0 }

// Slice returns the grants in describe-order.
func (s Set) Slice() []Permission {
	out := make([]Permission, 0, len(s.grants))
	for p := range s.grants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Describe() < out[j].Describe()
	})
	return out
}

// Describe renders the whole set for diagnostics.
func (s Set) Describe() string {
	if s.IsEmpty() {
		return "(none)"
	}
	parts := make([]string, 0, len(s.grants))
	for _, p := range s.Slice() {
		parts = append(parts, p.Describe())
	}
	return strings.Join(parts, ", ")
}
