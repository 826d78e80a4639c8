// Package accessset implements the write-set algebra for determinacy-race
// detection.
//
// An AccessSet records which memory addresses a strand has written, with an
// optional source location per address for diagnostics. The detector only
// ever needs two operations on these sets: a disjointness test that yields
// the colliding subset, and a non-destructive union merge. Both scan the
// smaller operand into the larger one, so the cost of a join is bounded by
// the smaller side of the fork.
package accessset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Address identifies a written memory location. It is an opaque integer key;
// the detector never dereferences it.
type Address uintptr

// SourceLocation is an optional diagnostic tag attached to an address.
// The zero value means "no location known".
type SourceLocation struct {
	Name string
	Line int
}

// IsZero reports whether no location information is attached.
func (l SourceLocation) IsZero() bool {
	return l.Name == "" && l.Line == 0
}

// String returns "name:line", or "" for the zero location.
func (l SourceLocation) String() string {
	if l.IsZero() {
		return ""
	}
	return l.Name + ":" + strconv.Itoa(l.Line)
}

// AccessSet maps written addresses to a representative source location.
// Only one example location per address is kept; later inserts win.
type AccessSet map[Address]SourceLocation

// New returns an empty AccessSet.
func New() AccessSet {
	return make(AccessSet)
}

// Insert records a write to addr. Inserting the same address again is
// allowed; a non-zero location replaces the stored representative.
func (s AccessSet) Insert(addr Address, loc SourceLocation) {
	if _, ok := s[addr]; ok && loc.IsZero() {
		return
	}
	s[addr] = loc
}

// Contains reports whether addr is in the set.
func (s AccessSet) Contains(addr Address) bool {
	_, ok := s[addr]
	return ok
}

// Len returns the number of tracked addresses.
func (s AccessSet) Len() int {
	return len(s)
}

// Delete removes addr from the set. Deleting an absent address is a no-op.
func (s AccessSet) Delete(addr Address) {
	delete(s, addr)
}

// Clone returns an independent copy of the set.
func (s AccessSet) Clone() AccessSet {
	c := make(AccessSet, len(s))
	for addr, loc := range s {
		c[addr] = loc
	}
	return c
}

// Addresses returns the tracked addresses in ascending order. Reports and
// tests need deterministic iteration; the detector itself never does.
func (s AccessSet) Addresses() []Address {
	addrs := make([]Address, 0, len(s))
	for addr := range s {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// String formats the set as "{0x10 main.go:3, 0x18}" in address order.
func (s AccessSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, addr := range s.Addresses() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "0x%x", uintptr(addr))
		if loc := s[addr]; !loc.IsZero() {
			b.WriteByte(' ')
			b.WriteString(loc.String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

// Disjoint reports whether a and b share no address. When they do share
// addresses, the returned set holds the intersection with a representative
// location per address. The result does not depend on operand order; only
// the smaller operand is scanned.
func Disjoint(a, b AccessSet) (bool, AccessSet) {
	if len(a) > len(b) {
		a, b = b, a
	}
	var collisions AccessSet
	for addr, loc := range a {
		other, ok := b[addr]
		if !ok {
			continue
		}
		if collisions == nil {
			collisions = New()
		}
		if !other.IsZero() {
			loc = other
		}
		collisions[addr] = loc
	}
	if collisions == nil {
		return true, New()
	}
	return false, collisions
}

// MergeInto absorbs small into large and returns the surviving set, which
// holds the union of both. When small is the bigger operand the roles are
// swapped first so the larger container is always the one extended; callers
// must therefore keep the returned set, not the arguments. Neither address
// set loses entries; for duplicate addresses the absorbed operand's
// non-zero location wins.
func MergeInto(large, small AccessSet) AccessSet {
	if len(small) > len(large) {
		large, small = small, large
	}
	for addr, loc := range small {
		large.Insert(addr, loc)
	}
	return large
}
