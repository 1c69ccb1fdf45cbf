// Package useflags lowers USE flags into the solver's pseudo-package
// encoding (spec §4.6): a flag X becomes two candidates under the
// synthetic name "use:X" — version 0.0.0 for -X, version 1.2.3 for +X —
// so an incompatible flag selection produces an ordinary unsat conflict
// with no special-casing inside the solver itself.
//
// Grounded on original_source/src/ttrek_useflags.c (+/- prefix parsing,
// the hash-table-backed flag state, iuse intersection) and spec.md §4.6.
package useflags

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pkgforge/src/internal/pool"
	"pkgforge/src/internal/version"
)

// offVersion and onVersion are the two pseudo-versions spec §4.6 assigns
// to a flag's negative and positive pseudo-candidates.
var (
	offVersion = version.MustParse("0.0.0")
	onVersion  = version.MustParse("1.2.3")
)

// Flag is a (name, polarity) pair; equality is on both fields, matching
// spec §3's USE flag definition.
type Flag struct {
	Name     string
	Positive bool
}

// Parse reads a single "+name" / "-name" token, mirroring
// ttrek_IsValidUseFlag / the polarity branch in
// ttrek_PopulateHashTableFromUseFlagsList.
func Parse(token string) (Flag, error) {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return Flag{}, fmt.Errorf("use flag %q: too short", token)
	}
	switch token[0] {
	case '+':
		return Flag{Name: token[1:], Positive: true}, nil
	case '-':
		return Flag{Name: token[1:], Positive: false}, nil
	default:
		return Flag{}, fmt.Errorf("use flag %q: must start with + or -", token)
	}
}

// String renders the flag back to its "+name"/"-name" form.
func (f Flag) String() string {
	if f.Positive {
		return "+" + f.Name
	}
	return "-" + f.Name
}

// PseudoName returns the synthetic package name "use:X" the solver sees
// for flag X.
func PseudoName(flagName string) string { return "use:" + flagName }

// IsPseudoName reports whether name is one of the synthetic "use:X"
// package names, so callers translating solver output back into real
// packages can filter pseudo-candidates out.
func IsPseudoName(name string) bool { return strings.HasPrefix(name, "use:") }

// PseudoVersion returns the pseudo-version encoding polarity, per spec
// §4.6.
func PseudoVersion(positive bool) version.Version {
	if positive {
		return onVersion
	}
	return offVersion
}

// State is a set of flag selections keyed by name, mirroring the hash
// table ttrek_PopulateHashTableFromUseFlagsList builds from a manifest's
// useFlags list.
type State map[string]bool

// NewState builds a State from manifest-style "+x"/"-y" tokens.
func NewState(tokens []string) (State, error) {
	st := State{}
	for _, t := range tokens {
		f, err := Parse(t)
		if err != nil {
			return nil, err
		}
		st[f.Name] = f.Positive
	}
	return st, nil
}

// Tokens renders the state back to sorted "+x"/"-y" tokens, the form
// ttrek_PopulateUseFlagsListFromHashTable emits.
func (s State) Tokens() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, Flag{Name: n, Positive: s[n]}.String())
	}
	return out
}

// Contains reports whether s pins flag name to exactly the given
// polarity — the polarity-exact equality check the planner's
// exact_use_flags computation (spec §4.7) and
// ttrek_HashTableContainsUseFlag both need.
func (s State) Contains(name string, positive bool) bool {
	p, ok := s[name]
	return ok && p == positive
}

// IntersectIUse keeps only the entries of s whose name appears in iuse,
// mirroring ttrek_HashTableIntersectionWithIUse. Flags in iuse that s does
// not mention are omitted. (The lock's recorded `use` is computed by the
// installer's own computeUse, not by this function.)
func (s State) IntersectIUse(iuse []string) []string {
	out := make([]string, 0, len(iuse))
	for _, name := range iuse {
		if p, ok := s[name]; ok {
			out = append(out, Flag{Name: name, Positive: p}.String())
		}
	}
	return out
}

// RootRequirement allocates the VersionSetId the root solvable requires
// for one user-selected flag: a singleton range pinning use:X to the
// pseudo-version matching its polarity.
func RootRequirement(p *pool.Pool, f Flag) pool.VersionSetId {
	name := p.InternName(PseudoName(f.Name))
	rng := versionSingleton(PseudoVersion(f.Positive))
	return p.InternVersionSet(name, rng, f.String())
}

// DeclaredRequirement allocates the VersionSetId a real candidate's iuse
// entry contributes, when that entry actually pins a polarity. The
// registry wire contract's iuse list (spec §6's fetch_recipe "iuse"
// field, mirrored by ttrek_PopulateIUseFlagsListFromNode in
// original_source) is a flat list of configurable flag names with no
// polarity of its own — declaring iuse X only means "this candidate can
// be built either way on X", not "this candidate requires X at some
// particular setting". Materializing a Requires clause for that case
// would pin one polarity against every candidate that merely offers the
// flag, which can never coexist with a root-level selection of the
// opposite polarity (ForbidMultipleInstances then has no candidate left
// to satisfy both clauses). So a bare flag name contributes no
// requirement at all; ok is false and the caller must add nothing. Only
// an entry carrying an explicit "+name"/"-name" token is a genuine
// pinned requirement.
func DeclaredRequirement(p *pool.Pool, iuseEntry string) (id pool.VersionSetId, ok bool) {
	f, err := Parse(iuseEntry)
	if err != nil {
		return 0, false
	}
	return RootRequirement(p, f), true
}

func versionSingleton(v version.Version) version.Range { return version.Singleton(v) }

// pseudoOnRe and pseudoOffRe match "use:X" followed by its on/off
// pseudo-version, as "use:X=1.2.3" (pool.DisplaySolvable) or "use:X 1.2.3".
var (
	pseudoOnRe  = regexp.MustCompile(`use:([A-Za-z0-9_-]+)[= ]` + regexp.QuoteMeta(onVersion.String()))
	pseudoOffRe = regexp.MustCompile(`use:([A-Za-z0-9_-]+)[= ]` + regexp.QuoteMeta(offVersion.String()))
)

// RewriteExplanation rewrites a solver explanation string's use:X pseudo-
// package vocabulary into user-facing USE-flag language, per spec §4.6:
// "use:X 1.2.3 / 0.0.0" becomes "USE flag +X / -X", "installed" becomes
// "satisfied", and "versions" becomes "USE flags".
func RewriteExplanation(s string) string {
	s = pseudoOnRe.ReplaceAllString(s, "use:+$1")
	s = pseudoOffRe.ReplaceAllString(s, "use:-$1")
	s = rewritePseudoNames(s)
	s = strings.ReplaceAll(s, "installed", "satisfied")
	s = strings.ReplaceAll(s, "versions", "USE flags")
	return s
}

func rewritePseudoNames(s string) string {
	const prefix = "use:"
	var b strings.Builder
	for {
		idx := strings.Index(s, prefix)
		if idx < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:idx])
		rest := s[idx+len(prefix):]
		end := 0
		for end < len(rest) && (isNameByte(rest[end])) {
			end++
		}
		b.WriteString("USE flag ")
		b.WriteString(rest[:end])
		s = rest[end:]
	}
	return b.String()
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
