package solver

import "pkgforge/src/internal/pool"

// ClauseKind is the tagged-union discriminator for Clause, mirroring
// spec §3's Clause variant list exactly.
type ClauseKind int

const (
	KindInstallRoot ClauseKind = iota
	KindRequires
	KindConstrains
	KindForbidMultipleInstances
	KindLock
	KindExcluded
	KindLearnt
)

// Clause is a closed tagged variant rather than a class hierarchy: every
// field below is populated only for the ClauseKinds that use it, matching
// original_source/src/resolvo/solver/Clause.h's factory-class split
// collapsed into one struct as idiomatic Go.
type Clause struct {
	Kind ClauseKind

	// Requires / Constrains
	Parent      pool.SolvableId
	Requirement pool.VersionSetId // Requires

	// Constrains
	Forbidden pool.SolvableId
	Via       pool.VersionSetId

	// ForbidMultipleInstances
	A, B pool.SolvableId

	// Lock
	Locked, Other pool.SolvableId

	// Excluded
	ExcludedCandidate pool.SolvableId
	Reason            pool.StringId

	// Learnt
	LearntID LearntClauseId
}

// ClauseState is a clause plus its two watched-literal slots and, per
// slot, the next clause in that solvable's watch chain — the linked-list
// arrangement original_source uses so propagation never scans a separate
// index, only walks the chain rooted at the assigned variable.
type ClauseState struct {
	Watched    [2]pool.SolvableId
	Next       [2]ClauseId
	Clause     Clause
	HasWatches bool
}

func newClauseState(kind Clause, watches *[2]pool.SolvableId) ClauseState {
	cs := ClauseState{Clause: kind, Next: [2]ClauseId{nullClause, nullClause}}
	if watches != nil {
		cs.Watched = *watches
		cs.HasWatches = true
	} else {
		cs.Watched = [2]pool.SolvableId{nullSolvable, nullSolvable}
	}
	return cs
}

func rootClauseState() ClauseState {
	return newClauseState(Clause{Kind: KindInstallRoot}, nil)
}

// requiresClauseState mirrors Clause::requires / ClauseState::requires:
// watches (parent, first-not-false candidate); if no candidate qualifies,
// watches (parent, candidates[0]) and the clause is born conflicting.
func requiresClauseState(parent pool.SolvableId, requirement pool.VersionSetId, candidates []pool.SolvableId, dm *DecisionMap) (ClauseState, bool) {
	kind := Clause{Kind: KindRequires, Parent: parent, Requirement: requirement}
	if len(candidates) == 0 {
		return newClauseState(kind, nil), true
	}
	watchedCandidate := nullSolvable
	for _, c := range candidates {
		if v, ok := dm.Value(c); !ok || v {
			watchedCandidate = c
			break
		}
	}
	var watches [2]pool.SolvableId
	conflict := false
	if watchedCandidate != nullSolvable {
		watches = [2]pool.SolvableId{parent, watchedCandidate}
	} else {
		watches = [2]pool.SolvableId{parent, candidates[0]}
		conflict = true
	}
	return newClauseState(kind, &watches), conflict
}

// constrainsClauseState mirrors Clause::constrains: watches (parent,
// forbidden); conflicting iff forbidden is already assigned true.
func constrainsClauseState(parent, forbidden pool.SolvableId, via pool.VersionSetId, dm *DecisionMap) (ClauseState, bool) {
	kind := Clause{Kind: KindConstrains, Parent: parent, Forbidden: forbidden, Via: via}
	v, ok := dm.Value(forbidden)
	conflict := ok && v
	watches := [2]pool.SolvableId{parent, forbidden}
	return newClauseState(kind, &watches), conflict
}

func forbidMultipleClauseState(a, b pool.SolvableId) ClauseState {
	kind := Clause{Kind: KindForbidMultipleInstances, A: a, B: b}
	watches := [2]pool.SolvableId{a, b}
	return newClauseState(kind, &watches)
}

func lockClauseState(locked, other pool.SolvableId) ClauseState {
	kind := Clause{Kind: KindLock, Locked: locked, Other: other}
	watches := [2]pool.SolvableId{pool.RootSolvable, other}
	return newClauseState(kind, &watches)
}

func excludedClauseState(candidate pool.SolvableId, reason pool.StringId) ClauseState {
	kind := Clause{Kind: KindExcluded, ExcludedCandidate: candidate, Reason: reason}
	return newClauseState(kind, nil)
}

func learntClauseState(id LearntClauseId, literals []Literal) ClauseState {
	kind := Clause{Kind: KindLearnt, LearntID: id}
	if len(literals) == 1 {
		return newClauseState(kind, nil)
	}
	watches := [2]pool.SolvableId{literals[0].Solvable, literals[len(literals)-1].Solvable}
	return newClauseState(kind, &watches)
}

// watchedLiterals returns the two watched positions as Literal values (with
// correct polarity for the clause kind), mirroring
// ClauseState::watched_literals.
func (cs *ClauseState) watchedLiterals(learnt [][]Literal) [2]Literal {
	switch cs.Clause.Kind {
	case KindLearnt:
		var out [2]Literal
		for i, sv := range cs.Watched {
			for _, lit := range learnt[cs.Clause.LearntID] {
				if lit.Solvable == sv {
					out[i] = lit
					break
				}
			}
		}
		return out
	case KindConstrains, KindForbidMultipleInstances, KindLock:
		return [2]Literal{
			{Solvable: cs.Watched[0], Negate: true},
			{Solvable: cs.Watched[1], Negate: true},
		}
	case KindRequires:
		// propagation can move either watch onto the parent or any
		// candidate, so polarity follows the watched solvable: the parent
		// is negated, a candidate is not (the original's self-compare).
		return [2]Literal{
			{Solvable: cs.Watched[0], Negate: cs.Watched[0] == cs.Clause.Parent},
			{Solvable: cs.Watched[1], Negate: cs.Watched[1] == cs.Clause.Parent},
		}
	default:
		return [2]Literal{}
	}
}

// watchTurnedFalse reports, if solvable is one of this clause's watches and
// that literal just evaluated false, the watched-literal pair and which
// index (0 or 1) turned false.
func (cs *ClauseState) watchTurnedFalse(solvable pool.SolvableId, dm *DecisionMap, learnt [][]Literal) ([2]Literal, int, bool) {
	lits := cs.watchedLiterals(learnt)
	if solvable == lits[0].Solvable {
		if v, ok := lits[0].Eval(dm); ok && !v {
			return lits, 0, true
		}
	} else if solvable == lits[1].Solvable {
		if v, ok := lits[1].Eval(dm); ok && !v {
			return lits, 1, true
		}
	}
	return lits, 0, false
}

// nextUnwatchedVariable looks for a literal in the clause, other than the
// two currently watched, that is true or unassigned — a candidate to take
// over a watch slot.
func (cs *ClauseState) nextUnwatchedVariable(learnt [][]Literal, sortedCandidates map[pool.VersionSetId][]pool.SolvableId, dm *DecisionMap) (pool.SolvableId, bool) {
	canWatch := func(lit Literal) bool {
		if lit.Solvable == cs.Watched[0] || lit.Solvable == cs.Watched[1] {
			return false
		}
		v, ok := lit.Eval(dm)
		return !ok || v
	}
	switch cs.Clause.Kind {
	case KindLearnt:
		for _, lit := range learnt[cs.Clause.LearntID] {
			if canWatch(lit) {
				return lit.Solvable, true
			}
		}
		return 0, false
	case KindConstrains, KindForbidMultipleInstances, KindLock:
		return 0, false
	case KindRequires:
		parentLit := Literal{Solvable: cs.Clause.Parent, Negate: true}
		if canWatch(parentLit) {
			return cs.Clause.Parent, true
		}
		for _, cand := range sortedCandidates[cs.Clause.Requirement] {
			if canWatch(Literal{Solvable: cand, Negate: false}) {
				return cand, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// visitLiterals calls visit once per literal the clause implies, in the
// same fixed order original_source's Clause::visit_literals uses — the
// order conflict analysis and explanation rendering rely on.
func (cs *ClauseState) visitLiterals(learnt [][]Literal, sortedCandidates map[pool.VersionSetId][]pool.SolvableId, visit func(Literal)) {
	switch cs.Clause.Kind {
	case KindInstallRoot:
		// no literals
	case KindExcluded:
		visit(Literal{Solvable: cs.Clause.ExcludedCandidate, Negate: true})
	case KindLearnt:
		for _, lit := range learnt[cs.Clause.LearntID] {
			visit(lit)
		}
	case KindRequires:
		visit(Literal{Solvable: cs.Clause.Parent, Negate: true})
		for _, cand := range sortedCandidates[cs.Clause.Requirement] {
			visit(Literal{Solvable: cand, Negate: false})
		}
	case KindConstrains:
		visit(Literal{Solvable: cs.Clause.Parent, Negate: true})
		visit(Literal{Solvable: cs.Clause.Forbidden, Negate: true})
	case KindForbidMultipleInstances:
		visit(Literal{Solvable: cs.Clause.A, Negate: true})
		visit(Literal{Solvable: cs.Clause.B, Negate: true})
	case KindLock:
		visit(Literal{Solvable: pool.RootSolvable, Negate: true})
		visit(Literal{Solvable: cs.Clause.Other, Negate: true})
	}
}
