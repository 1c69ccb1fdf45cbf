package solver

import (
	"context"
	"fmt"

	"pkgforge/src/internal/packagedb"
	"pkgforge/src/internal/pool"
)

// Conflict is raised by propagation when a clause's last watched literal
// must be true to satisfy the clause but is already assigned false. It
// implements error so propagateVariable can return it through a regular
// error-returning call chain alongside genuine errors (e.g. registry
// fetch failures).
type Conflict struct {
	Solvable       pool.SolvableId
	AttemptedValue bool
	Clause         ClauseId
	Level          int
}

func (c *Conflict) Error() string { return "sat conflict" }

// UnsatError is returned when the problem has no solution; Explanation is
// always set when the unsatisfiable conflict occurs at level 1 (see
// DESIGN.md's Open Question #2). It lists the signed literals of the one
// conflicting clause, as Solver.explain renders them; no Problem graph of
// the conflict's causes is built or rendered.
type UnsatError struct {
	Explanation string
}

func (e *UnsatError) Error() string { return "unsatisfiable: " + e.Explanation }

// Solver runs the CDCL loop over a packagedb.Database.
type Solver struct {
	db             *packagedb.Database
	arena          []ClauseState
	watchHeads     map[pool.SolvableId]ClauseId
	learnt         [][]Literal
	sorted         map[pool.VersionSetId][]pool.SolvableId
	dm             *DecisionMap
	currentLevel   int
	materialized   map[pool.SolvableId]bool
	fmiRegistered  map[pool.NameId]map[[2]pool.SolvableId]bool
	lockRegistered map[pool.NameId]bool
	excludedRegistered map[pool.SolvableId]bool

	pendingQueue  []pool.SolvableId
	bornConflicts []ClauseId

	metrics Metrics
}

// New returns a Solver over db.
func New(db *packagedb.Database) *Solver {
	s := &Solver{
		db:                 db,
		watchHeads:         map[pool.SolvableId]ClauseId{},
		sorted:             map[pool.VersionSetId][]pool.SolvableId{},
		dm:                 NewDecisionMap(),
		materialized:       map[pool.SolvableId]bool{},
		fmiRegistered:      map[pool.NameId]map[[2]pool.SolvableId]bool{},
		lockRegistered:     map[pool.NameId]bool{},
		excludedRegistered: map[pool.SolvableId]bool{},
	}
	s.arena = append(s.arena, rootClauseState()) // clause 0: InstallRoot
	return s
}

// Result is the solver's output: the solution (excluding root), in
// decision order.
type Result struct {
	Solution []pool.SolvableId
}

// Solve runs the top-level loop: decide root true at level 1, materialize
// and propagate, then repeatedly decide/propagate/analyze until no
// decision remains.
func (s *Solver) Solve(ctx context.Context, rootRequirements []pool.VersionSetId) (Result, error) {
	s.currentLevel = 1
	if err := s.decideAndMaterialize(ctx, pool.RootSolvable, true, nullClause, 1); err != nil {
		return Result{}, err
	}
	born, err := s.materializeRequirements(ctx, pool.RootSolvable, rootRequirements)
	if err != nil {
		return Result{}, err
	}
	s.bornConflicts = append(s.bornConflicts, born...)
	if err := s.resolveUntilStable(ctx); err != nil {
		return Result{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		sv, derivedFrom, ok := s.decideNext()
		if !ok {
			break
		}
		s.currentLevel++
		if err := s.decideAndMaterialize(ctx, sv, true, derivedFrom, s.currentLevel); err != nil {
			return Result{}, err
		}
		if err := s.resolveUntilStable(ctx); err != nil {
			return Result{}, err
		}
	}

	return Result{Solution: s.extractSolution()}, nil
}

// resolveUntilStable drains propagateAll, analyzing and backjumping on
// every conflict it reports, until propagation reaches a conflict-free
// fixpoint or the problem proves unsatisfiable.
func (s *Solver) resolveUntilStable(ctx context.Context) error {
	for {
		conf, err := s.propagateAll(ctx)
		if err != nil {
			return err
		}
		if conf == nil {
			return nil
		}
		if s.currentLevel <= 1 {
			return &UnsatError{Explanation: s.explain(conf.Clause)}
		}
		learntLits, backtrackLevel := s.analyze(conf)
		learntID := LearntClauseId(len(s.learnt))
		s.learnt = append(s.learnt, learntLits)
		clauseID := s.addClause(learntClauseState(learntID, learntLits))

		s.backtrackTo(backtrackLevel)
		s.currentLevel = backtrackLevel

		asserting := learntLits[0]
		if err := s.decideAndMaterialize(ctx, asserting.Solvable, asserting.SatisfyingValue(), clauseID, backtrackLevel); err != nil {
			return err
		}
	}
}

// extractSolution returns every solvable assigned true, excluding root, in
// the order they were decided — deterministic given deterministic
// propagation and heuristic ordering (spec §4.5 "Ordering guarantees").
func (s *Solver) extractSolution() []pool.SolvableId {
	var out []pool.SolvableId
	for _, d := range s.dm.Stack() {
		if d.Solvable != pool.RootSolvable && d.Value {
			out = append(out, d.Solvable)
		}
	}
	return out
}

func (s *Solver) addClause(cs ClauseState) ClauseId {
	id := ClauseId(len(s.arena))
	s.arena = append(s.arena, cs)
	if cs.HasWatches {
		s.linkWatch(id, 0)
		s.linkWatch(id, 1)
	}
	return id
}

func (s *Solver) linkWatch(id ClauseId, slot int) {
	cs := &s.arena[id]
	sv := cs.Watched[slot]
	cs.Next[slot] = s.watchHeads[sv]
	s.watchHeads[sv] = id
}

func slotOf(cs *ClauseState, sv pool.SolvableId) int {
	if cs.Watched[0] == sv {
		return 0
	}
	return 1
}

func (s *Solver) sortedCandidatesFor(ctx context.Context, vset pool.VersionSetId) ([]pool.SolvableId, error) {
	if ids, ok := s.sorted[vset]; ok {
		return ids, nil
	}
	name := s.db.Pool().VersionSetName(vset)
	cands, err := s.db.GetCandidates(ctx, name)
	if err != nil {
		return nil, err
	}
	ids := append([]pool.SolvableId{}, cands.Solvables...)
	s.db.SortCandidates(ids)
	ids = s.db.FilterCandidates(ids, vset, false)
	s.sorted[vset] = ids
	return ids, nil
}

// materializeRequirements creates a Requires(parent, vset) clause for each
// requirement of a newly-true solvable, plus the ForbidMultipleInstances,
// Lock, and Excluded clauses its candidate sets need. Returns the ids of
// any clauses "born conflicting" (spec §4.5's clause-materialization
// paragraph).
func (s *Solver) materializeRequirements(ctx context.Context, parent pool.SolvableId, reqs []pool.VersionSetId) ([]ClauseId, error) {
	var born []ClauseId
	for _, vset := range reqs {
		cands, err := s.sortedCandidatesFor(ctx, vset)
		if err != nil {
			return nil, err
		}
		cs, conflict := requiresClauseState(parent, vset, cands, s.dm)
		id := s.addClause(cs)
		if conflict {
			born = append(born, id)
		}

		name := s.db.Pool().VersionSetName(vset)
		if err := s.registerForbidMultiple(ctx, name); err != nil {
			return nil, err
		}
		if err := s.registerLock(ctx, name); err != nil {
			return nil, err
		}
		if err := s.registerExcluded(ctx, name); err != nil {
			return nil, err
		}
	}
	return born, nil
}

// materializeConstrains creates Constrains(parent, forbidden, via) clauses
// for every candidate outside the constraint's allowed range that shares
// the constrained name.
func (s *Solver) materializeConstrains(ctx context.Context, parent pool.SolvableId, constrains []pool.VersionSetId) error {
	for _, vset := range constrains {
		name := s.db.Pool().VersionSetName(vset)
		all, err := s.db.GetCandidates(ctx, name)
		if err != nil {
			return err
		}
		ids := append([]pool.SolvableId{}, all.Solvables...)
		forbidden := s.db.FilterCandidates(ids, vset, true)
		for _, f := range forbidden {
			cs, conflict := constrainsClauseState(parent, f, vset, s.dm)
			id := s.addClause(cs)
			_ = conflict // surfaced through normal propagation on next call
			_ = id
		}
	}
	return nil
}

func (s *Solver) registerForbidMultiple(ctx context.Context, name pool.NameId) error {
	all := s.db.CandidatesForName(name)
	if s.fmiRegistered[name] == nil {
		s.fmiRegistered[name] = map[[2]pool.SolvableId]bool{}
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			key := [2]pool.SolvableId{all[i], all[j]}
			if s.fmiRegistered[name][key] {
				continue
			}
			s.fmiRegistered[name][key] = true
			s.addClause(forbidMultipleClauseState(all[i], all[j]))
		}
	}
	return nil
}

func (s *Solver) registerLock(ctx context.Context, name pool.NameId) error {
	if s.lockRegistered[name] {
		return nil
	}
	locked, hasLocked := s.db.LockedVersion(name)
	if !hasLocked {
		return nil
	}
	s.lockRegistered[name] = true
	all := s.db.CandidatesForName(name)
	var lockedID pool.SolvableId
	found := false
	for _, id := range all {
		if s.db.Pool().ResolveSolvable(id).Version.Equal(locked) {
			lockedID = id
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	for _, id := range all {
		if id == lockedID {
			continue
		}
		s.addClause(lockClauseState(lockedID, id))
	}
	return nil
}

func (s *Solver) registerExcluded(ctx context.Context, name pool.NameId) error {
	for _, id := range s.db.CandidatesForName(name) {
		if s.excludedRegistered[id] {
			continue
		}
		reason, ok := s.db.ExcludedReason(id)
		if !ok {
			continue
		}
		s.excludedRegistered[id] = true
		s.addClause(excludedClauseState(id, s.db.Pool().InternString(reason)))
	}
	return nil
}

func (s *Solver) explain(clauseID ClauseId) string {
	cs := &s.arena[clauseID]
	var parts []string
	cs.visitLiterals(s.learnt, s.sorted, func(lit Literal) {
		name := "?"
		if lit.Solvable != nullSolvable {
			name = s.db.Pool().DisplaySolvable(lit.Solvable)
		}
		sign := "+"
		if lit.Negate {
			sign = "-"
		}
		parts = append(parts, fmt.Sprintf("%s%s", sign, name))
	})
	return fmt.Sprintf("conflicting clause #%d: %v", clauseID, parts)
}
