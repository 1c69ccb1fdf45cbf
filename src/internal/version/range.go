package version

import "strings"

// interval is a half-open [Lo, Hi) bound over the version order. A nil
// bound pointer means unbounded on that side.
type interval struct {
	Lo, Hi *Version
}

// Range is a finite disjoint union of half-open version intervals, kept in
// canonical form: sorted, non-empty, non-overlapping, non-adjacent.
//
// Grounded on original_source/src/PackageDatabase.h's Range<Pack> usage
// (higher_than, strictly_higher_than, lower_than, strictly_lower_than,
// between, compatible_with, full) — the Range type itself lives in a
// Range.h that was not carried into original_source, so the interval
// algebra below is authored directly from spec.md §3/§4.1's description of
// canonical disjoint half-open interval unions.
type Range struct {
	intervals []interval
}

// Full matches every version.
func Full() Range { return Range{intervals: []interval{{}}} }

// Empty matches no version.
func Empty() Range { return Range{} }

// Singleton matches exactly v.
func Singleton(v Version) Range {
	return Range{intervals: []interval{{Lo: vptr(v), Hi: nextAfter(v)}}}
}

// HigherThan matches v and everything greater (the ">=" operator).
func HigherThan(v Version) Range {
	return Range{intervals: []interval{{Lo: vptr(v)}}}
}

// StrictlyHigherThan matches everything greater than v (the ">" operator).
func StrictlyHigherThan(v Version) Range {
	return Range{intervals: []interval{{Lo: nextAfter(v)}}}
}

// LowerThan matches v and everything less (the "<=" operator).
func LowerThan(v Version) Range {
	return Range{intervals: []interval{{Hi: nextAfter(v)}}}
}

// StrictlyLowerThan matches everything less than v (the "<" operator).
func StrictlyLowerThan(v Version) Range {
	return Range{intervals: []interval{{Hi: vptr(v)}}}
}

// Between matches [lo, hi).
func Between(lo, hi Version) Range {
	if !lo.Less(hi) {
		return Empty()
	}
	return Range{intervals: []interval{{Lo: vptr(lo), Hi: vptr(hi)}}}
}

// CompatibleWith matches [v, nextMajor(v)) (the "^" operator).
func CompatibleWith(v Version) Range {
	return Between(v, v.NextMajor())
}

// nextAfter returns a synthetic version used purely as an exclusive upper
// bound marker one "tick" above v in the dense pre-release-aware order: it
// is never returned to a caller as a real version, only compared against.
func nextAfter(v Version) *Version {
	bumped := v
	if bumped.Pre == "" {
		// the next patch's lowest pre-release ("-0") lies below every
		// other version of that patch, pre-releases included.
		bumped.Patch++
		bumped.Pre = "0"
	} else {
		// a version "v-pre" is immediately followed, in the order, by
		// "v-pre.0": one more identifier sorts higher, and numeric 0 is
		// the lowest identifier. Using that as the exclusive bound keeps
		// singleton/between exact for pre-release versions too.
		bumped.Pre += ".0"
	}
	return &bumped
}

func vptr(v Version) *Version { return &v }

// IsEmpty reports whether the range matches no version.
func (r Range) IsEmpty() bool { return len(r.intervals) == 0 }

// Contains reports whether v lies within the range.
func (r Range) Contains(v Version) bool {
	for _, iv := range r.intervals {
		if (iv.Lo == nil || v.GreaterOrEqual(*iv.Lo)) && (iv.Hi == nil || v.Less(*iv.Hi)) {
			return true
		}
	}
	return false
}

// Intersection returns the set intersection of r and other, in canonical
// form.
func (r Range) Intersection(other Range) Range {
	var out []interval
	for _, a := range r.intervals {
		for _, b := range other.intervals {
			if iv, ok := intersectOne(a, b); ok {
				out = append(out, iv)
			}
		}
	}
	return canonicalize(out)
}

// Complement returns the set complement of r over the full version order.
func (r Range) Complement() Range {
	sorted := canonicalize(r.intervals).intervals
	if len(sorted) == 0 {
		return Full()
	}
	var out []interval
	cursor := (*Version)(nil) // unbounded low
	for _, iv := range sorted {
		if !samePtr(cursor, iv.Lo) {
			out = append(out, interval{Lo: cursor, Hi: iv.Lo})
		}
		cursor = iv.Hi
		if cursor == nil {
			return canonicalize(out)
		}
	}
	out = append(out, interval{Lo: cursor, Hi: nil})
	return canonicalize(out)
}

func intersectOne(a, b interval) (interval, bool) {
	lo := maxBound(a.Lo, b.Lo)
	hi := minBound(a.Hi, b.Hi)
	if !boundLess(lo, hi) {
		return interval{}, false
	}
	return interval{Lo: lo, Hi: hi}, true
}

// boundLess reports whether the half-open interval [lo, hi) is non-empty.
func boundLess(lo, hi *Version) bool {
	if lo == nil || hi == nil {
		return true
	}
	return lo.Less(*hi)
}

func maxBound(a, b *Version) *Version {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Greater(*b) {
		return a
	}
	return b
}

// mergeHi combines two upper bounds for a union: nil (unbounded) always
// wins since it represents +infinity, the widest possible bound.
func mergeHi(a, b *Version) *Version {
	if a == nil || b == nil {
		return nil
	}
	if a.Greater(*b) {
		return a
	}
	return b
}

func minBound(a, b *Version) *Version {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Less(*b) {
		return a
	}
	return b
}

func samePtr(a, b *Version) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// canonicalize sorts intervals by lower bound and merges overlapping or
// adjacent ones, dropping empties.
func canonicalize(in []interval) Range {
	filtered := in[:0:0]
	for _, iv := range in {
		if boundLess(iv.Lo, iv.Hi) {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return Range{}
	}
	sortIntervals(filtered)
	out := []interval{filtered[0]}
	for _, iv := range filtered[1:] {
		last := &out[len(out)-1]
		if boundsTouchOrOverlap(last.Hi, iv.Lo) {
			last.Hi = mergeHi(last.Hi, iv.Hi)
			continue
		}
		out = append(out, iv)
	}
	return Range{intervals: out}
}

// boundsTouchOrOverlap reports whether an interval ending at hi is adjacent
// to or overlaps one starting at lo (hi >= lo, treating unbounded as
// infinitely far).
func boundsTouchOrOverlap(hi, lo *Version) bool {
	if hi == nil || lo == nil {
		return true
	}
	return !hi.Less(*lo)
}

func sortIntervals(ivs []interval) {
	for i := 1; i < len(ivs); i++ {
		for j := i; j > 0 && boundLessThan(ivs[j].Lo, ivs[j-1].Lo); j-- {
			ivs[j], ivs[j-1] = ivs[j-1], ivs[j]
		}
	}
}

func boundLessThan(a, b *Version) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Less(*b)
}

// String renders a comma-joined list of canonical intervals, e.g.
// "[1.0.0, 2.0.0), [3.0.0, +inf)".
func (r Range) String() string {
	if r.IsEmpty() {
		return "empty"
	}
	parts := make([]string, 0, len(r.intervals))
	for _, iv := range r.intervals {
		lo, hi := "-inf", "+inf"
		if iv.Lo != nil {
			lo = iv.Lo.String()
		}
		if iv.Hi != nil {
			hi = iv.Hi.String()
		}
		parts = append(parts, "["+lo+", "+hi+")")
	}
	return strings.Join(parts, ", ")
}
