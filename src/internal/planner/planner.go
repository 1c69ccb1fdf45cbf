// Package planner implements the execution planner (spec §4.7, C7): it
// diffs the solver's target state against the installed lock, classifies
// each change as direct/reverse-dependency-driven/dependency-driven/
// already-satisfied, and emits a minimal, topologically-ordered action
// list.
//
// spec.md §4.7's algorithm has no direct analogue in original_source (the
// C tool has no equivalent classifier); it is authored directly from the
// spec's classification and fixed-point description, in the style of
// aaravmaloo-xe's other planning-shaped code (install.go's explicit
// multi-stage pipeline with named stages).
package planner

import (
	"sort"

	"pkgforge/src/internal/lockfile"
)

// Class is one of the four action classifications spec §4.7 names.
type Class int

const (
	AlreadyInstalled Class = iota
	DirectInstall
	RDepInstall
	DepInstall
)

func (c Class) String() string {
	switch c {
	case DirectInstall:
		return "DIRECT_INSTALL"
	case RDepInstall:
		return "RDEP_INSTALL"
	case DepInstall:
		return "DEP_INSTALL"
	default:
		return "ALREADY_INSTALLED"
	}
}

// Resolved is one package the solver selected: its name, the version
// string chosen, its requirements as the solver saw them, its declared
// iuse, and the direct requirement text the manifest carries for it (or
// "" if it's purely transitive).
type Resolved struct {
	Name              string
	Version           string
	Requires          map[string]string
	IUse              []string
	DirectRequirement string // "" if not a direct dependency
}

// Action is one entry of the emitted plan.
type Action struct {
	Name    string
	Version string
	Class   Class
	// DirectVersionRequirement is the range expression the user wrote, or
	// "none" if this package is only a transitive dependency (spec §4.7).
	DirectVersionRequirement string
}

// Input bundles everything Plan needs.
type Input struct {
	Resolved  []Resolved
	Lock      lockfile.Lockfile
	GlobalUse map[string]bool // flag name -> polarity, the active USE selection
	Force     map[string]bool // names forced to DIRECT_INSTALL regardless of lock state
}

// Plan computes the ordered action list. An empty plan (spec §4.7's "If
// no DIRECT_INSTALL exists ... abort without changes") is reported by a
// nil/empty return, not an error.
func Plan(in Input) []Action {
	byName := make(map[string]Resolved, len(in.Resolved))
	for _, r := range in.Resolved {
		byName[r.Name] = r
	}

	classes := make(map[string]Class, len(in.Resolved))
	for _, r := range in.Resolved {
		classes[r.Name] = classifyInitial(r, in.Lock, in.GlobalUse, in.Force[r.Name])
	}

	dependencies, reverseDeps := buildGraphs(in.Resolved, in.Lock)
	fixedPoint(classes, dependencies, reverseDeps)

	for name, c := range classes {
		if c != DepInstall {
			continue
		}
		r := byName[name]
		if exactUseFlags(r, in.Lock, in.GlobalUse) && in.Lock.ExactVersion(name, r.Version) {
			classes[name] = AlreadyInstalled
		}
	}

	hasDirect := false
	for _, c := range classes {
		if c == DirectInstall {
			hasDirect = true
			break
		}
	}
	if !hasDirect {
		return nil
	}

	var actions []Action
	for _, r := range in.Resolved {
		c := classes[r.Name]
		if c == AlreadyInstalled {
			continue
		}
		direct := r.DirectRequirement
		if direct == "" {
			direct = "none"
		}
		actions = append(actions, Action{
			Name:                     r.Name,
			Version:                  r.Version,
			Class:                    c,
			DirectVersionRequirement: direct,
		})
	}
	return topoSort(actions, dependencies)
}

// classifyInitial implements spec §4.7's initial pass.
func classifyInitial(r Resolved, lock lockfile.Lockfile, globalUse map[string]bool, forced bool) Class {
	if forced {
		return DirectInstall
	}
	if r.DirectRequirement == "" {
		return unknown
	}
	if !lock.ExactVersion(r.Name, r.Version) || !exactUseFlags(r, lock, globalUse) {
		return DirectInstall
	}
	return AlreadyInstalled
}

const unknown Class = -1

// exactUseFlags implements spec §4.7's exact_use_flags predicate:
// polarity-exact agreement between the global USE map and the lock's
// recorded `use` for every flag in the package's iuse, and vice versa.
func exactUseFlags(r Resolved, lock lockfile.Lockfile, globalUse map[string]bool) bool {
	pkg, ok := lock.Packages[r.Name]
	if !ok {
		return len(r.IUse) == 0
	}
	recorded := map[string]bool{}
	for _, tok := range pkg.Use {
		if len(tok) < 2 {
			continue
		}
		recorded[tok[1:]] = tok[0] == '+'
	}
	for _, flag := range r.IUse {
		name := flag
		if len(name) > 0 && (name[0] == '+' || name[0] == '-') {
			name = name[1:]
		}
		if globalUse[name] != recorded[name] {
			return false
		}
	}
	for name, polarity := range recorded {
		gp, present := globalUse[name]
		if !present || gp != polarity {
			return false
		}
	}
	return true
}

// buildGraphs constructs the forward (dependencies) and reverse
// (reverse_dependencies) edge maps from the lock's recorded `requires`
// plus the solver's newly introduced requirements.
func buildGraphs(resolved []Resolved, lock lockfile.Lockfile) (deps, rdeps map[string][]string) {
	deps = map[string][]string{}
	rdeps = map[string][]string{}
	add := func(parent string, reqs map[string]string) {
		for dep := range reqs {
			deps[parent] = append(deps[parent], dep)
			rdeps[dep] = append(rdeps[dep], parent)
		}
	}
	for _, r := range resolved {
		add(r.Name, r.Requires)
	}
	for name, pkg := range lock.Packages {
		add(name, pkg.Requires)
	}
	return deps, rdeps
}

// fixedPoint repeatedly promotes UNKNOWN entries to RDEP_INSTALL /
// DEP_INSTALL per spec §4.7 until no change occurs, then marks every
// UNKNOWN that remains as ALREADY_INSTALLED (the lock is not consulted
// again at that point).
func fixedPoint(classes map[string]Class, deps, rdeps map[string][]string) {
	for {
		changed := false
		for name, c := range classes {
			if c != unknown {
				continue
			}
			for _, dep := range deps[name] {
				if classes[dep] == DirectInstall {
					classes[name] = RDepInstall
					changed = true
					break
				}
			}
		}
		if changed {
			continue
		}
		for parent, c := range classes {
			if c != DirectInstall && c != RDepInstall {
				continue
			}
			for _, dep := range deps[parent] {
				if classes[dep] == unknown {
					classes[dep] = DepInstall
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	for name, c := range classes {
		if c == unknown {
			classes[name] = AlreadyInstalled
		}
	}
}

// topoSort orders actions so a package appears after every package it
// requires, ties broken by name ascending (spec §4.7's ordering rule).
func topoSort(actions []Action, deps map[string][]string) []Action {
	byName := make(map[string]Action, len(actions))
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		byName[a.Name] = a
		names = append(names, a.Name)
	}
	sort.Strings(names)

	visited := map[string]int{} // 0=unvisited,1=visiting,2=done
	var order []string
	var visit func(name string)
	visit = func(name string) {
		if visited[name] == 2 || visited[name] == 1 {
			return
		}
		if _, inPlan := byName[name]; !inPlan {
			return
		}
		visited[name] = 1
		depNames := append([]string{}, deps[name]...)
		sort.Strings(depNames)
		for _, d := range depNames {
			visit(d)
		}
		visited[name] = 2
		order = append(order, name)
	}
	for _, n := range names {
		visit(n)
	}

	out := make([]Action, 0, len(order))
	for _, n := range order {
		out = append(out, byName[n])
	}
	return out
}
