package solver

import (
	"context"

	"pkgforge/src/internal/pool"
)

// decideAndMaterialize records an assignment, queues it for watch-chain
// propagation, and — if the assignment is a positive one for a
// not-yet-materialized solvable — builds its Requires/Constrains clauses
// immediately. Any clause born conflicting (spec §4.5) is appended to
// s.bornConflicts for propagateAll to surface.
func (s *Solver) decideAndMaterialize(ctx context.Context, sv pool.SolvableId, value bool, derivedFrom ClauseId, level int) error {
	s.dm.Decide(sv, value, derivedFrom, level)
	s.queueDecision(sv)
	if !value || s.materialized[sv] {
		return nil
	}
	s.materialized[sv] = true
	deps := s.db.GetDependencies(sv)
	born, err := s.materializeRequirements(ctx, sv, deps.Requirements)
	if err != nil {
		return err
	}
	if err := s.materializeConstrains(ctx, sv, deps.Constrains); err != nil {
		return err
	}
	s.bornConflicts = append(s.bornConflicts, born...)
	return nil
}

func (s *Solver) queueDecision(sv pool.SolvableId) {
	s.pendingQueue = append(s.pendingQueue, sv)
}

// propagateAll drains born-conflicts and the watch-chain propagation queue
// to a fixpoint, returning the first conflict encountered, if any.
func (s *Solver) propagateAll(ctx context.Context) (*Conflict, error) {
	for {
		if len(s.bornConflicts) > 0 {
			clauseID := s.bornConflicts[0]
			s.bornConflicts = s.bornConflicts[1:]
			s.metrics.onConflict()
			return &Conflict{Clause: clauseID, Level: s.currentLevel}, nil
		}
		if len(s.pendingQueue) == 0 {
			return nil, nil
		}
		sv := s.pendingQueue[0]
		s.pendingQueue = s.pendingQueue[1:]
		if err := s.propagateVariable(ctx, sv); err != nil {
			if conf, ok := err.(*Conflict); ok {
				s.metrics.onConflict()
				return conf, nil
			}
			return nil, err
		}
	}
}

// propagateVariable walks sv's watch chain once, relocating watches that
// can move and unit-propagating or conflicting on the ones that can't.
// Mirrors original_source's Solver::propagate inner loop over one
// variable's watch list.
func (s *Solver) propagateVariable(ctx context.Context, sv pool.SolvableId) error {
	prev := nullClause
	cur := s.watchHeads[sv]
	for cur != nullClause {
		cs := &s.arena[cur]
		mySlot := slotOf(cs, sv)
		nextInChain := cs.Next[mySlot]

		lits, idx, turned := cs.watchTurnedFalse(sv, s.dm, s.learnt)
		if !turned {
			prev = cur
			cur = nextInChain
			continue
		}

		if newVar, found := cs.nextUnwatchedVariable(s.learnt, s.sorted, s.dm); found {
			if prev == nullClause {
				s.watchHeads[sv] = nextInChain
			} else {
				prevCS := &s.arena[prev]
				prevCS.Next[slotOf(prevCS, sv)] = nextInChain
			}
			cs.Watched[idx] = newVar
			cs.Next[idx] = s.watchHeads[newVar]
			s.watchHeads[newVar] = cur
			cur = nextInChain
			continue
		}

		other := lits[1-idx]
		if v, ok := other.Eval(s.dm); ok {
			if !v {
				return &Conflict{Solvable: other.Solvable, AttemptedValue: other.SatisfyingValue(), Clause: cur, Level: s.currentLevel}
			}
		} else if err := s.decideAndMaterialize(ctx, other.Solvable, other.SatisfyingValue(), cur, s.currentLevel); err != nil {
			return err
		}
		prev = cur
		cur = nextInChain
	}
	return nil
}
