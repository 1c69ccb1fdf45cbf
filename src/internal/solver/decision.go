package solver

import "pkgforge/src/internal/pool"

// ClauseId identifies an entry in the solver's clause arena.
type ClauseId int32

// nullClause marks the end of a watch-chain linked list.
const nullClause ClauseId = -1

// LearntClauseId identifies a learnt clause's literal slice.
type LearntClauseId int32

// Decision records one assignment: solvable set to value, because of
// derivedFrom (the clause that forced or chose it), at level.
type Decision struct {
	Solvable    pool.SolvableId
	Value       bool
	DerivedFrom ClauseId
	Level       int
}

// assignment is the per-solvable entry in the DecisionMap.
type assignment struct {
	value bool
	level int
}

// DecisionMap is the map SolvableId -> (value, level) alongside the
// ordered decision stack, mirroring original_source's DecisionTracker.
type DecisionMap struct {
	stack       []Decision
	assignments map[pool.SolvableId]assignment
}

// NewDecisionMap returns an empty tracker.
func NewDecisionMap() *DecisionMap {
	return &DecisionMap{assignments: map[pool.SolvableId]assignment{}}
}

// Value returns the current assignment for s, if any.
func (d *DecisionMap) Value(s pool.SolvableId) (bool, bool) {
	a, ok := d.assignments[s]
	return a.value, ok
}

// Level returns the decision level at which s was assigned, or -1 if
// unassigned.
func (d *DecisionMap) Level(s pool.SolvableId) int {
	a, ok := d.assignments[s]
	if !ok {
		return -1
	}
	return a.level
}

// Decide pushes a new assignment and returns the Decision.
func (d *DecisionMap) Decide(s pool.SolvableId, value bool, derivedFrom ClauseId, level int) Decision {
	dec := Decision{Solvable: s, Value: value, DerivedFrom: derivedFrom, Level: level}
	d.stack = append(d.stack, dec)
	d.assignments[s] = assignment{value: value, level: level}
	return dec
}

// UndoUntil pops decisions back to (and including) the first one at a
// level greater than targetLevel, restoring the map accordingly. Returns
// the popped decisions in the order they were popped, most recent first.
func (d *DecisionMap) UndoUntil(targetLevel int) []Decision {
	var popped []Decision
	for len(d.stack) > 0 && d.stack[len(d.stack)-1].Level > targetLevel {
		last := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]
		delete(d.assignments, last.Solvable)
		popped = append(popped, last)
	}
	return popped
}

// Stack exposes the decision stack (chronological order) for conflict
// analysis and solution extraction.
func (d *DecisionMap) Stack() []Decision { return d.stack }
