// Package solver implements Gundry–McBride dynamic pattern unification on a
// work-list (spec.md §4.4).
package solver

import (
	"github.com/silt-lang/silt/internal/constraint"
	"github.com/silt-lang/silt/internal/tt"
)

// outcomeKind tags the result of reducing one constraint one step.
type outcomeKind int

const (
	solved outcomeKind = iota
	progress
	blocked
	mismatch
)

// outcome is the result of attempting to reduce a constraint. solved means
// the constraint needed nothing further; progress carries the smaller
// constraints it decomposed into; blocked means no progress is currently
// possible and names the metas whose binding would unblock it; mismatch
// means the constraint is unsatisfiable (a genuine type error, not a
// structural bug in the solver).
type outcome struct {
	kind     outcomeKind
	next     []constraint.Constraint
	blocking map[tt.Meta]bool
	reason   string
}

func solvedOutcome() outcome { return outcome{kind: solved} }

func progressOutcome(next ...constraint.Constraint) outcome {
	return outcome{kind: progress, next: next}
}

func blockedOutcome(metas map[tt.Meta]bool) outcome {
	return outcome{kind: blocked, blocking: metas}
}

func mismatchOutcome(reason string) outcome {
	return outcome{kind: mismatch, reason: reason}
}
