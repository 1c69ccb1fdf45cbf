// Package pool implements the interning arenas that hand out stable dense
// integer ids for names, strings, version sets, and solvables, deduping on
// intern.
//
// Grounded on original_source/src/resolvo/Pool.h (four arenas: solvables,
// package_names via a names_to_ids map, strings, version_sets, each
// allocating consecutive ids and deduping through a hash index).
package pool

import (
	"pkgforge/src/internal/version"
)

// NameId, StringId, VersionSetId, SolvableId are dense small integers; the
// zero value of SolvableId is reserved for the root solvable.
type (
	NameId       uint32
	StringId     uint32
	VersionSetId uint32
	SolvableId   uint32
)

// RootSolvable is the reserved id for the virtual "root" package that
// anchors every solve (SolvableId::root() in the original).
const RootSolvable SolvableId = 0

// Solvable is a candidate: a concrete (name, version) pairing plus the
// dependency/constraint requirement ids attached at materialization time.
// The zero-value solvable at index 0 is the synthetic root and carries no
// version.
type Solvable struct {
	Name    NameId
	Version version.Version
	IsRoot  bool
}

// versionSetKey is the dedup key for version-set interning: two equal
// (name, range-expression) pairs must yield the same id.
type versionSetKey struct {
	name NameId
	expr string
}

// VersionSet is a (name, range) requirement binding.
type VersionSet struct {
	Name  NameId
	Range version.Range
	// Expr is the original range expression text, kept for interning
	// equality and for error/explanation rendering.
	Expr string
}

// Pool owns the four interning arenas. Concurrent access is not supported,
// matching the single-threaded solver loop described in the concurrency
// model.
type Pool struct {
	names       []string
	namesToIds  map[string]NameId
	strings     []string
	stringsToID map[string]StringId
	versionSets []VersionSet
	vsToID      map[versionSetKey]VersionSetId
	solvables   []Solvable
}

// New returns a pool pre-seeded with the root solvable at SolvableId(0).
func New() *Pool {
	p := &Pool{
		namesToIds:  map[string]NameId{},
		stringsToID: map[string]StringId{},
		vsToID:      map[versionSetKey]VersionSetId{},
	}
	p.solvables = append(p.solvables, Solvable{IsRoot: true})
	return p
}

// InternName returns the id for name, allocating one if not seen before.
func (p *Pool) InternName(name string) NameId {
	if id, ok := p.namesToIds[name]; ok {
		return id
	}
	id := NameId(len(p.names))
	p.names = append(p.names, name)
	p.namesToIds[name] = id
	return id
}

// ResolveName returns the string a NameId was interned from.
func (p *Pool) ResolveName(id NameId) string { return p.names[id] }

// InternString interns an arbitrary string (used for explanation text,
// recipe metadata, etc).
func (p *Pool) InternString(s string) StringId {
	if id, ok := p.stringsToID[s]; ok {
		return id
	}
	id := StringId(len(p.strings))
	p.strings = append(p.strings, s)
	p.stringsToID[s] = id
	return id
}

// ResolveString returns the string a StringId was interned from.
func (p *Pool) ResolveString(id StringId) string { return p.strings[id] }

// InternVersionSet interns a (name, range) pair keyed by the range's
// original expression text, so two requirements parsed from equal text
// intern to the same id.
func (p *Pool) InternVersionSet(name NameId, rng version.Range, expr string) VersionSetId {
	key := versionSetKey{name: name, expr: expr}
	if id, ok := p.vsToID[key]; ok {
		return id
	}
	id := VersionSetId(len(p.versionSets))
	p.versionSets = append(p.versionSets, VersionSet{Name: name, Range: rng, Expr: expr})
	p.vsToID[key] = id
	return id
}

// ResolveVersionSet returns the VersionSet a VersionSetId was interned from.
func (p *Pool) ResolveVersionSet(id VersionSetId) VersionSet { return p.versionSets[id] }

// VersionSetName returns the package name a version set constrains.
func (p *Pool) VersionSetName(id VersionSetId) NameId { return p.versionSets[id].Name }

// InternSolvable allocates a new candidate under name at version, returning
// its fresh SolvableId. Unlike names/strings/version-sets, candidates are
// not deduped on (name, version): the package database is responsible for
// calling this at most once per (name, version) it has already fetched.
func (p *Pool) InternSolvable(name NameId, v version.Version) SolvableId {
	id := SolvableId(len(p.solvables))
	p.solvables = append(p.solvables, Solvable{Name: name, Version: v})
	return id
}

// ResolveSolvable returns the Solvable a SolvableId refers to.
func (p *Pool) ResolveSolvable(id SolvableId) Solvable { return p.solvables[id] }

// SolvableCount returns the number of allocated solvables, including root.
func (p *Pool) SolvableCount() int { return len(p.solvables) }

// DisplaySolvable renders "name=version" the way explanation text expects,
// or "root" for the synthetic root solvable.
func (p *Pool) DisplaySolvable(id SolvableId) string {
	sv := p.solvables[id]
	if sv.IsRoot {
		return "root"
	}
	return p.names[sv.Name] + "=" + sv.Version.String()
}
