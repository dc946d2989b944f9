package solver

import (
	"github.com/silt-lang/silt/internal/constraint"
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/tt"
)

// Mismatch records a genuine unification failure: not a bug, a type error
// the elaborator's forward-only structure could not itself detect (spec.md
// §4.3 "the solver is the unique judge").
type Mismatch struct {
	Constraint constraint.Constraint
	Reason     string
}

// Result is everything left over once the work-list drains: constraints
// still blocked on metas that never got solved (a legal outcome, spec.md
// §4.4), and any hard mismatches found along the way.
type Result struct {
	Unsolved  []constraint.Constraint
	Mismatches []Mismatch
}

type pending struct {
	c        constraint.Constraint
	blocking map[tt.Meta]bool
}

// Solver runs the work-list algorithm of spec.md §4.4 against one
// Signature.
type Solver struct {
	sig   *signature.Signature
	queue []constraint.Constraint
}

// New returns a Solver over sig with no queued work.
func New(sig *signature.Signature) *Solver {
	return &Solver{sig: sig}
}

// Emit enqueues a heterogeneous constraint, decomposed per spec.md §4.4.
func (s *Solver) Emit(e constraint.Equal) {
	s.queue = append(s.queue, constraint.Decompose(e))
}

// EmitHomogeneous enqueues an already-homogeneous constraint directly; used
// by callers (e.g. the check phase comparing two already-elaborated types)
// that bypass the elaborator's Equal form.
func (s *Solver) EmitHomogeneous(c constraint.Constraint) {
	s.queue = append(s.queue, c)
}

// Run drains the work-list to a fixpoint (spec.md §4.4 "Work loop"):
// repeatedly attempt every ready constraint; park what can't progress;
// promote parked work once any reduction anywhere made progress; stop when
// a full pass makes none.
func (s *Solver) Run() Result {
	queue := s.queue
	var parked []pending
	var mismatches []Mismatch

	for {
		var nextQueue []constraint.Constraint
		progressed := false

		for _, c := range queue {
			o := s.reduce(c)
			switch o.kind {
			case solved:
				progressed = true
			case progress:
				progressed = true
				nextQueue = append(nextQueue, o.next...)
			case blocked:
				parked = append(parked, pending{c: c, blocking: o.blocking})
			case mismatch:
				mismatches = append(mismatches, Mismatch{Constraint: c, Reason: o.reason})
				progressed = true
			}
		}

		var stillParked []pending
		for _, p := range parked {
			if s.anyBound(p.blocking) {
				nextQueue = append(nextQueue, p.c)
				progressed = true
			} else {
				stillParked = append(stillParked, p)
			}
		}
		parked = stillParked
		queue = nextQueue

		if !progressed {
			break
		}
	}

	unsolved := make([]constraint.Constraint, len(parked))
	for i, p := range parked {
		unsolved[i] = p.c
	}
	return Result{Unsolved: unsolved, Mismatches: mismatches}
}

func (s *Solver) anyBound(metas map[tt.Meta]bool) bool {
	if len(metas) == 0 {
		return true
	}
	for m := range metas {
		if _, bound := s.sig.LookupMetaBinding(m); bound {
			return true
		}
	}
	return false
}

// reduce dispatches one constraint to its form-specific reducer.
func (s *Solver) reduce(c constraint.Constraint) outcome {
	switch c := c.(type) {
	case constraint.Unify:
		return s.reduceUnify(c)
	case constraint.UnifySpines:
		return s.reduceSpines(c)
	case constraint.Conjoin:
		return s.reduceConjoin(c)
	case constraint.Suppose:
		return s.reduceSuppose(c)
	default:
		return mismatchOutcome("solver: unknown constraint form")
	}
}

func (s *Solver) reduceConjoin(c constraint.Conjoin) outcome {
	var remaining []constraint.Constraint
	blocking := map[tt.Meta]bool{}
	progressed := false
	var mismatches []Mismatch

	for _, m := range c.Constraints {
		o := s.reduce(m)
		switch o.kind {
		case solved:
			progressed = true
		case progress:
			progressed = true
			remaining = append(remaining, o.next...)
		case blocked:
			remaining = append(remaining, m)
			for k := range o.blocking {
				blocking[k] = true
			}
		case mismatch:
			mismatches = append(mismatches, Mismatch{Constraint: m, Reason: o.reason})
			progressed = true
		}
	}
	if len(mismatches) > 0 {
		// A conjunction with any failed conjunct is itself unsatisfiable;
		// surface the first mismatch and drop the rest of the conjunction.
		return mismatchOutcome(mismatches[0].Reason)
	}
	if len(remaining) == 0 {
		return solvedOutcome()
	}
	if progressed {
		return progressOutcome(constraint.Conjoin{Constraints: remaining})
	}
	return blockedOutcome(blocking)
}

func (s *Solver) reduceSuppose(c constraint.Suppose) outcome {
	o := s.reduce(c.C1)
	switch o.kind {
	case solved:
		return progressOutcome(c.C2)
	case mismatch:
		// C1 failing outright means the supposition never fires; per §4.4
		// this degrades to reporting C1's mismatch, since a heterogeneous
		// Equal's type-level equation failing makes the value-level
		// equation meaningless to even attempt.
		return o
	case progress:
		combined := combineConjoin(o.next)
		return progressOutcome(constraint.Suppose{C1: combined, C2: c.C2})
	default: // blocked
		return o
	}
}

func combineConjoin(cs []constraint.Constraint) constraint.Constraint {
	if len(cs) == 1 {
		return cs[0]
	}
	return constraint.Conjoin{Constraints: cs}
}

// whnfOf reduces t to WHNF for the solver's purposes: a term headed by an
// unbound meta (tt.OnHead) is not itself a block — it IS the flexible term
// the meta-interaction strategies examine — so it reifies back into an
// Apply term. Only tt.OnMetas (reduction genuinely stuck on metas deeper
// inside the term, e.g. an invertible function's scrutinee) blocks.
func whnfOf(sig *signature.Signature, t tt.Term) (tt.Term, map[tt.Meta]bool) {
	switch b := tt.WHNF(sig, t).(type) {
	case tt.NotBlocked:
		return b.Term, nil
	case tt.OnHead:
		return tt.Apply{Head: tt.MetaHead{ID: b.Meta}, Elims: b.Elims}, nil
	case tt.OnMetas:
		return nil, b.Metas
	default:
		return nil, nil
	}
}
