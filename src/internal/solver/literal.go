// Package solver implements the CDCL dependency solver: watched-literal
// unit propagation, conflict-driven clause learning with 1-UIP analysis,
// and non-chronological backtracking over pooled solvable ids.
//
// Grounded on original_source/src/resolvo/solver/Solver.h and Clause.h.
package solver

import "pkgforge/src/internal/pool"

// nullSolvable marks an unused watch slot (e.g. a unit Requires clause that
// only watches its parent).
const nullSolvable = pool.SolvableId(^uint32(0))

// Literal is a solvable id plus a polarity: Negate=true means the literal
// is satisfied when the solvable is assigned false.
type Literal struct {
	Solvable pool.SolvableId
	Negate   bool
}

// SatisfyingValue is the assignment that would make this literal true.
func (l Literal) SatisfyingValue() bool { return !l.Negate }

// Eval returns (value, assigned) — assigned is false if the solvable has no
// decision yet.
func (l Literal) Eval(dm *DecisionMap) (bool, bool) {
	v, ok := dm.Value(l.Solvable)
	if !ok {
		return false, false
	}
	return l.Negate == !v, true
}
