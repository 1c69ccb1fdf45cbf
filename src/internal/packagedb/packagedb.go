// Package packagedb caches candidates by name, allocates requirement and
// candidate ids, and implements the provider interface the solver queries.
//
// Grounded on original_source/src/PackageDatabase.h's PackageDatabase
// struct: get_candidates / sort_candidates / filter_candidates /
// get_dependencies plus alloc_requirement_from_str / alloc_candidate.
package packagedb

import (
	"context"
	"fmt"
	"sort"

	"pkgforge/src/internal/pool"
	"pkgforge/src/internal/registry"
	"pkgforge/src/internal/useflags"
	"pkgforge/src/internal/version"
)

// Dependencies mirrors resolvo::Dependencies: the requirements a candidate
// must have co-installed, and the constraints it imposes on other names.
type Dependencies struct {
	Requirements []pool.VersionSetId
	Constrains   []pool.VersionSetId
}

// Strategy selects how sort_candidates orders a name's candidate list.
type Strategy int

const (
	// StrategyLatest orders newest-first. Default.
	StrategyLatest Strategy = iota
	// StrategyFavored floats the lock-pinned version to the front, else
	// behaves like StrategyLatest.
	StrategyFavored
	// StrategyLocked keeps only the locked version; all others are
	// filtered out entirely.
	StrategyLocked
)

// Candidates is the result of get_candidates: every known candidate for a
// name plus hints about which already have materialized dependencies.
type Candidates struct {
	Solvables              []pool.SolvableId
	HintDependenciesAvail  []pool.SolvableId
	Favored                *pool.SolvableId
	Locked                 *pool.SolvableId
}

// Database is the solver's DependencyProvider, backed by a registry.Client
// and an interning pool.
type Database struct {
	pool     *pool.Pool
	client   registry.Client
	strategy Strategy

	// lockedVersions, if set for a name, restricts get_candidates under
	// StrategyLocked and informs StrategyFavored.
	lockedVersions map[pool.NameId]version.Version

	queried  map[pool.NameId]bool
	deps     map[pool.SolvableId]Dependencies
	iuse     map[pool.SolvableId][]string
	byName   map[pool.NameId][]pool.SolvableId
	excluded map[pool.SolvableId]string
}

// New returns a Database over pool p, fetching candidate data from client.
func New(p *pool.Pool, client registry.Client, strategy Strategy) *Database {
	return &Database{
		pool:           p,
		client:         client,
		strategy:       strategy,
		lockedVersions: map[pool.NameId]version.Version{},
		queried:        map[pool.NameId]bool{},
		deps:           map[pool.SolvableId]Dependencies{},
		iuse:           map[pool.SolvableId][]string{},
		byName:         map[pool.NameId][]pool.SolvableId{},
		excluded:       map[pool.SolvableId]string{},
	}
}

// Pool exposes the underlying interning pool.
func (db *Database) Pool() *pool.Pool { return db.pool }

// SetLocked pins name to version for StrategyLocked/StrategyFavored.
func (db *Database) SetLocked(name pool.NameId, v version.Version) {
	db.lockedVersions[name] = v
}

// Exclude marks a candidate as forbidden with an explanation string,
// surfaced later as an Excluded clause.
func (db *Database) Exclude(id pool.SolvableId, reason string) {
	db.excluded[id] = reason
}

// ExcludedReason returns the reason a candidate was excluded, if any.
func (db *Database) ExcludedReason(id pool.SolvableId) (string, bool) {
	r, ok := db.excluded[id]
	return r, ok
}

// LockedVersion returns the version name is pinned to, if SetLocked was
// ever called for it.
func (db *Database) LockedVersion(name pool.NameId) (version.Version, bool) {
	v, ok := db.lockedVersions[name]
	return v, ok
}

// AllocRequirement interns a (name, range-expression) pair as a
// VersionSetId, parsing expr via version.ParseRange.
func (db *Database) AllocRequirement(name string, expr string) (pool.VersionSetId, error) {
	nameID := db.pool.InternName(name)
	rng, err := version.ParseRange(expr)
	if err != nil {
		return 0, fmt.Errorf("requirement %s%s: %w", name, expr, err)
	}
	return db.pool.InternVersionSet(nameID, rng, expr), nil
}

// GetCandidates fetches (on first mention) and returns every candidate for
// name, consulting the registry via fetch_versions on cache miss.
func (db *Database) GetCandidates(ctx context.Context, name pool.NameId) (Candidates, error) {
	if !db.queried[name] {
		packageName := db.pool.ResolveName(name)
		if useflags.IsPseudoName(packageName) {
			// spec §4.6: use:X has exactly two candidates (off/on), never
			// fetched from the registry.
			for _, positive := range []bool{false, true} {
				v := useflags.PseudoVersion(positive)
				id := db.pool.InternSolvable(name, v)
				db.deps[id] = Dependencies{}
				db.byName[name] = append(db.byName[name], id)
			}
			db.queried[name] = true
			return db.candidatesFor(name), nil
		}
		entries, err := db.client.FetchVersions(ctx, packageName)
		if err != nil {
			return Candidates{}, fmt.Errorf("fetch_versions(%s): %w", packageName, err)
		}
		for _, entry := range entries {
			v, err := version.Parse(entry.Version)
			if err != nil {
				return Candidates{}, fmt.Errorf("candidate version for %s: %w", packageName, err)
			}
			id := db.pool.InternSolvable(name, v)
			deps := Dependencies{}
			depNames := make([]string, 0, len(entry.Dependencies))
			for depName := range entry.Dependencies {
				depNames = append(depNames, depName)
			}
			sort.Strings(depNames)
			for _, depName := range depNames {
				vsID, err := db.AllocRequirement(depName, entry.Dependencies[depName])
				if err != nil {
					return Candidates{}, err
				}
				deps.Requirements = append(deps.Requirements, vsID)
			}
			// spec §4.6: iuse only pins a requirement on use:X when the entry
			// itself carries an explicit polarity token; a bare flag name is
			// purely informational (see useflags.DeclaredRequirement) and
			// materializes no clause.
			for _, iuseEntry := range entry.IUse {
				if vsID, ok := useflags.DeclaredRequirement(db.pool, iuseEntry); ok {
					deps.Requirements = append(deps.Requirements, vsID)
				}
			}
			db.deps[id] = deps
			db.iuse[id] = entry.IUse
			db.byName[name] = append(db.byName[name], id)
		}
		db.queried[name] = true
	}
	return db.candidatesFor(name), nil
}

// candidatesFor assembles the Candidates result for an already-populated
// name, applying the configured strategy's locked-version filtering.
func (db *Database) candidatesFor(name pool.NameId) Candidates {
	all := db.byName[name]
	result := Candidates{}
	locked, hasLocked := db.lockedVersions[name]

	for _, id := range all {
		sv := db.pool.ResolveSolvable(id)
		if db.strategy == StrategyLocked && hasLocked && !sv.Version.Equal(locked) {
			continue
		}
		result.Solvables = append(result.Solvables, id)
		result.HintDependenciesAvail = append(result.HintDependenciesAvail, id)
		if hasLocked && sv.Version.Equal(locked) {
			lockedCopy := id
			result.Locked = &lockedCopy
		}
	}
	return result
}

// SortCandidates orders ids in place per the configured strategy.
func (db *Database) SortCandidates(ids []pool.SolvableId) {
	sort.Slice(ids, func(i, j int) bool {
		vi := db.pool.ResolveSolvable(ids[i]).Version
		vj := db.pool.ResolveSolvable(ids[j]).Version
		return vi.Greater(vj)
	})
	if db.strategy != StrategyFavored || len(ids) == 0 {
		return
	}
	name := db.pool.ResolveSolvable(ids[0]).Name
	locked, ok := db.lockedVersions[name]
	if !ok {
		return
	}
	for i, id := range ids {
		if db.pool.ResolveSolvable(id).Version.Equal(locked) {
			ids[0], ids[i] = ids[i], ids[0]
			return
		}
	}
}

// FilterCandidates keeps candidates whose version lies in the version
// set's range (or outside it, when inverse is set).
func (db *Database) FilterCandidates(ids []pool.SolvableId, vset pool.VersionSetId, inverse bool) []pool.SolvableId {
	rng := db.pool.ResolveVersionSet(vset).Range
	out := make([]pool.SolvableId, 0, len(ids))
	for _, id := range ids {
		matches := rng.Contains(db.pool.ResolveSolvable(id).Version)
		if matches != inverse {
			out = append(out, id)
		}
	}
	return out
}

// GetDependencies returns the Dependencies recorded for a candidate
// verbatim.
func (db *Database) GetDependencies(id pool.SolvableId) Dependencies {
	return db.deps[id]
}

// GetIUse returns the iuse flags the registry declared for a candidate.
func (db *Database) GetIUse(id pool.SolvableId) []string {
	return db.iuse[id]
}

// CandidatesForName returns every solvable currently known for name
// without triggering a fetch (used by ForbidMultipleInstances wiring).
func (db *Database) CandidatesForName(name pool.NameId) []pool.SolvableId {
	return db.byName[name]
}
