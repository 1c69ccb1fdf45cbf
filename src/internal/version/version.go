// Package version implements semantic version parsing and ordering.
//
// Grounded on original_source/src/PackageDatabase.h's Pack type: a triple
// plus optional pre-release, totally ordered, with next-major-version
// support for caret ranges.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a triple (major, minor, patch) with an optional pre-release tag.
type Version struct {
	Major, Minor, Patch uint64
	Pre                 string
}

// Parse validates v through Masterminds/semver first (rejecting anything
// that isn't a well-formed semantic version) and then decomposes it into
// pkgforge's own canonical triple representation.
func Parse(v string) (Version, error) {
	sv, err := semver.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return Version{}, fmt.Errorf("malformed_version: %q: %w", v, err)
	}
	return Version{
		Major: sv.Major(),
		Minor: sv.Minor(),
		Patch: sv.Patch(),
		Pre:   sv.Prerelease(),
	}, nil
}

// MustParse parses v and panics on error; used for literals in tests and
// fixtures.
func MustParse(v string) Version {
	ver, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return ver
}

// String renders the canonical "major.minor.patch[-pre]" form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// NextMajor returns the version with Major incremented and Minor/Patch/Pre
// reset, used by the caret operator's upper bound.
func (v Version) NextMajor() Version {
	return Version{Major: v.Major + 1}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other. A pre-release tag makes an otherwise-equal triple strictly lesser;
// among two pre-release tags, comparison proceeds by dot-separated
// identifier, numeric identifiers ordered numerically and before
// alphanumeric ones, per the standard semver precedence rules.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, other.Patch); c != 0 {
		return c
	}
	return comparePre(v.Pre, other.Pre)
}

func (v Version) Less(other Version) bool         { return v.Compare(other) < 0 }
func (v Version) Equal(other Version) bool         { return v.Compare(other) == 0 }
func (v Version) GreaterOrEqual(o Version) bool    { return v.Compare(o) >= 0 }
func (v Version) LessOrEqual(o Version) bool       { return v.Compare(o) <= 0 }
func (v Version) Greater(other Version) bool       { return v.Compare(other) > 0 }

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePre orders: no-prerelease > any-prerelease; otherwise dot-separated
// identifier comparison, numeric identifiers compared numerically and
// always lower than alphanumeric ones, per semver precedence.
func comparePre(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := comparePreIdent(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return compareUint(uint64(len(as)), uint64(len(bs)))
}

func comparePreIdent(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return compareUint(an, bn)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
