// Package engine wires the data flow spec.md §2 describes: manifest/lock
// requirements feed the package database, the solver resolves a target
// state, the planner diffs it against the lock, and the installer
// executes the resulting actions. This is the orchestration layer; each
// stage's real logic lives in its own package (packagedb, solver,
// useflags, planner, installer).
//
// Grounded on aaravmaloo-xe/src/internal/engine/install.go's top-level
// Install() shape (telemetry-spanned stage pipeline: resolve -> plan ->
// execute) generalized from "resolve PyPI requirements into a site-
// packages tree" to "solve manifest requirements into a locked,
// installed package set".
package engine

import (
	"context"
	"fmt"
	"sort"

	"pkgforge/src/internal/installer"
	"pkgforge/src/internal/lockfile"
	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/packagedb"
	"pkgforge/src/internal/planner"
	"pkgforge/src/internal/pool"
	"pkgforge/src/internal/registry"
	"pkgforge/src/internal/solver"
	"pkgforge/src/internal/telemetry"
	"pkgforge/src/internal/useflags"
	"pkgforge/src/internal/version"
)

// Engine bundles the collaborators a solve+plan+install run needs.
type Engine struct {
	Client    registry.Client
	Installer *installer.Installer
	Strategy  packagedb.Strategy
}

// New returns an Engine backed by client and inst.
func New(client registry.Client, inst *installer.Installer) *Engine {
	return &Engine{Client: client, Installer: inst, Strategy: packagedb.StrategyFavored}
}

// SolveResult is the solver's output translated into planner-friendly
// records, plus the pool used to resolve it (kept for diagnostics).
type SolveResult struct {
	Resolved []planner.Resolved
	Pool     *pool.Pool
}

// Solve builds a packagedb over man's direct requirements plus the
// global USE selection, runs the CDCL solver, and returns every chosen
// package translated into planner.Resolved records (spec §4.6's
// pseudo-packages are filtered back out here — planner never sees them).
func (e *Engine) Solve(ctx context.Context, man manifest.Manifest, lock lockfile.Lockfile) (SolveResult, error) {
	done := telemetry.StartSpan("engine.solve", "direct_deps", len(man.Dependencies))
	p := pool.New()
	db := packagedb.New(p, e.Client, e.Strategy)

	for name, pkg := range lock.Packages {
		if v, err := version.Parse(pkg.Version); err == nil {
			db.SetLocked(p.InternName(name), v)
		}
	}

	globalUse, err := useflags.NewState(man.UseFlags)
	if err != nil {
		done("status", "error", "error", err.Error())
		return SolveResult{}, fmt.Errorf("parse useFlags: %w", err)
	}

	depNames := make([]string, 0, len(man.Dependencies))
	for name := range man.Dependencies {
		depNames = append(depNames, name)
	}
	sort.Strings(depNames)

	var rootReqs []pool.VersionSetId
	for _, name := range depNames {
		vset, err := db.AllocRequirement(name, man.Dependencies[name])
		if err != nil {
			done("status", "error", "error", err.Error())
			return SolveResult{}, err
		}
		rootReqs = append(rootReqs, vset)
	}

	useNames := make([]string, 0, len(globalUse))
	for name := range globalUse {
		useNames = append(useNames, name)
	}
	sort.Strings(useNames)
	for _, name := range useNames {
		vset := useflags.RootRequirement(p, useflags.Flag{Name: name, Positive: globalUse[name]})
		rootReqs = append(rootReqs, vset)
	}

	s := solver.New(db)
	result, err := s.Solve(ctx, rootReqs)
	if err != nil {
		if unsat, ok := err.(*solver.UnsatError); ok {
			done("status", "unsat")
			return SolveResult{}, &solver.UnsatError{Explanation: useflags.RewriteExplanation(unsat.Explanation)}
		}
		done("status", "error", "error", err.Error())
		return SolveResult{}, err
	}

	var resolved []planner.Resolved
	for _, sv := range result.Solution {
		solvable := p.ResolveSolvable(sv)
		name := p.ResolveName(solvable.Name)
		if useflags.IsPseudoName(name) {
			continue
		}
		deps := db.GetDependencies(sv)
		requires := map[string]string{}
		for _, vsID := range deps.Requirements {
			vs := p.ResolveVersionSet(vsID)
			depName := p.ResolveName(vs.Name)
			if useflags.IsPseudoName(depName) {
				continue
			}
			requires[depName] = vs.Expr
		}
		direct := ""
		if expr, ok := man.Dependencies[name]; ok {
			direct = expr
			if direct == "" {
				direct = "none"
			}
		}
		resolved = append(resolved, planner.Resolved{
			Name:              name,
			Version:           solvable.Version.String(),
			Requires:          requires,
			IUse:              db.GetIUse(sv),
			DirectRequirement: direct,
		})
	}

	done("status", "ok", "resolved", len(resolved))
	return SolveResult{Resolved: resolved, Pool: p}, nil
}

// PlanAndInstall runs the planner over a solve result and, if the plan is
// non-empty, executes it transactionally, mutating man and lock on
// success.
func (e *Engine) PlanAndInstall(ctx context.Context, sr SolveResult, man *manifest.Manifest, lock *lockfile.Lockfile, force map[string]bool, globalUse map[string]bool) ([]planner.Action, error) {
	done := telemetry.StartSpan("engine.plan_and_install", "candidates", len(sr.Resolved))
	actions := planner.Plan(planner.Input{
		Resolved:  sr.Resolved,
		Lock:      *lock,
		GlobalUse: globalUse,
		Force:     force,
	})
	if len(actions) == 0 {
		done("status", "ok", "actions", 0)
		return nil, nil
	}
	if err := e.Installer.Run(ctx, actions, man, lock); err != nil {
		done("status", "error", "error", err.Error())
		return actions, err
	}
	done("status", "ok", "actions", len(actions))
	return actions, nil
}
