package solver

import "pkgforge/src/internal/pool"

// decideNext implements the "smallest open set first" heuristic: among
// every live Requires(parent, vset) clause whose parent is currently
// assigned true and which isn't already satisfied, pick the one with the
// fewest still-selectable candidates and decide its first candidate true.
// Ties go to the clause that was materialized first (ascending arena
// order), which is what makes Solve's output deterministic.
func (s *Solver) decideNext() (pool.SolvableId, ClauseId, bool) {
	bestCount := -1
	var bestCandidate pool.SolvableId
	var bestClause ClauseId

	for i := 1; i < len(s.arena); i++ {
		cs := &s.arena[i]
		if cs.Clause.Kind != KindRequires {
			continue
		}
		parentValue, parentAssigned := s.dm.Value(cs.Clause.Parent)
		if !parentAssigned || !parentValue {
			continue
		}
		cands := s.sorted[cs.Clause.Requirement]
		satisfied := false
		var selectable []pool.SolvableId
		for _, c := range cands {
			v, ok := s.dm.Value(c)
			if ok && v {
				satisfied = true
				break
			}
			if !ok {
				selectable = append(selectable, c)
			}
		}
		if satisfied || len(selectable) == 0 {
			continue
		}
		if bestCount == -1 || len(selectable) < bestCount {
			bestCount = len(selectable)
			bestCandidate = selectable[0]
			bestClause = ClauseId(i)
		}
	}
	if bestCount == -1 {
		return 0, 0, false
	}
	return bestCandidate, bestClause, true
}

// literalAsFalseNow builds the Literal for sv whose polarity matches its
// current (false) evaluation — used while walking a conflict's reason
// clauses, where every visited variable is, by construction, currently
// evaluating false.
func literalAsFalseNow(dm *DecisionMap, sv pool.SolvableId) Literal {
	v, _ := dm.Value(sv)
	return Literal{Solvable: sv, Negate: v}
}

// analyze performs first-UIP conflict analysis starting from conf's
// clause, walking the decision trail backward and resolving through each
// contributing variable's reason clause until exactly one variable at the
// conflict level remains unresolved (the UIP). Returns the learnt clause
// (UIP literal first) and the level to backtrack to.
func (s *Solver) analyze(conf *Conflict) ([]Literal, int) {
	seen := map[pool.SolvableId]bool{}
	var learnt []Literal
	backtrackLevel := 0
	counter := 0

	conflictLevel := s.currentLevel
	reasonClause := conf.Clause

	process := func(clauseID ClauseId, skip pool.SolvableId) {
		cs := &s.arena[clauseID]
		cs.visitLiterals(s.learnt, s.sorted, func(lit Literal) {
			sv := lit.Solvable
			if sv == skip || sv == nullSolvable || seen[sv] {
				return
			}
			lvl := s.dm.Level(sv)
			if lvl <= 0 {
				return
			}
			seen[sv] = true
			if lvl == conflictLevel {
				counter++
			} else {
				learnt = append(learnt, literalAsFalseNow(s.dm, sv))
				if lvl > backtrackLevel {
					backtrackLevel = lvl
				}
			}
		})
	}

	stack := s.dm.Stack()
	trailIdx := len(stack) - 1
	var uip pool.SolvableId
	skip := nullSolvable

	for {
		process(reasonClause, skip)
		for trailIdx >= 0 && !seen[stack[trailIdx].Solvable] {
			trailIdx--
		}
		if trailIdx < 0 {
			// Defensive: no further seen variable on the trail — treat the
			// last processed variable as the UIP.
			break
		}
		p := stack[trailIdx]
		uip = p.Solvable
		trailIdx--
		counter--
		if counter <= 0 {
			break
		}
		reasonClause = p.DerivedFrom
		skip = p.Solvable
	}

	learntLits := append([]Literal{literalAsFalseNow(s.dm, uip)}, learnt...)
	return learntLits, backtrackLevel
}

// backtrackTo undoes every decision above targetLevel and discards any
// propagation state that referred to them.
func (s *Solver) backtrackTo(targetLevel int) {
	s.dm.UndoUntil(targetLevel)
	s.pendingQueue = nil
	s.bornConflicts = nil
}
