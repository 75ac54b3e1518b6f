// Package permission defines the bitflag permission model. It is pure
// in-memory logic with no I/O and no imports from the rest of the module.
package permission

// Set is a fixed-width bitmask where each bit is an independently
// grantable capability. New permissions get the next free bit; the wire
// format (a plain integer column and JSON number) never changes.
type Set uint64

// None is the empty permission set, the identity element of Combine.
const None Set = 0

const (
	// System grants access to user and role administration.
	System Set = 1 << iota
)

// All is the union of every defined permission. Admin users are treated
// as holding All regardless of role membership.
const All = System

// Combine merges two permission sets. Associative and commutative.
func Combine(a, b Set) Set {
	return a | b
}

// Satisfies reports whether every bit of required is present in s.
func (s Set) Satisfies(required Set) bool {
	return s&required == required
}

// AnySatisfies reports whether effective satisfies at least one of the
// required sets. An empty requirement list is vacuously satisfied: callers
// that declare no permissions only require an authenticated user.
func AnySatisfies(effective Set, required ...Set) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if effective.Satisfies(r) {
			return true
		}
	}
	return false
}
