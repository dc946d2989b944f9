package solver

import (
	"github.com/silt-lang/silt/internal/constraint"
	"github.com/silt-lang/silt/internal/tt"
)

// reduceSpines implements spec.md §4.4's "Spine comparison": walk two
// equal-length spines against an evolving Π type, dropping a binder when
// the codomain doesn't depend on the argument just compared, else
// instantiating and deferring the remainder.
func (s *Solver) reduceSpines(c constraint.UnifySpines) outcome {
	if len(c.Elims1) != len(c.Elims2) {
		return mismatchOutcome("unequal spine lengths")
	}
	if len(c.Elims1) == 0 {
		return solvedOutcome()
	}

	head, tail1, tail2 := c.Elims1[0], c.Elims1[1:], c.Elims2[1:]
	other := c.Elims2[0]

	switch e1 := head.(type) {
	case tt.ApplyArg:
		e2, ok := other.(tt.ApplyArg)
		if !ok {
			return mismatchOutcome("spine shape mismatch: ApplyArg vs Project")
		}
		pi, isPi := c.T.(tt.Pi)
		if !isPi {
			return mismatchOutcome("applying a spine against a non-function type")
		}
		argEq := constraint.Unify{Ctx: c.Ctx, T: pi.Domain, T1: e1.Arg, T2: e2.Arg}

		if reducedCod, err := tt.ApplyChecked(tt.Strengthen(1, tt.Id), pi.Codomain); err == nil {
			rest := constraint.UnifySpines{Ctx: c.Ctx, T: reducedCod, Head: c.Head, Elims1: tail1, Elims2: tail2}
			return progressOutcome(argEq, rest)
		}
		instCod := tt.Apply_(tt.Instantiate(e1.Arg, tt.Id), pi.Codomain)
		rest := constraint.UnifySpines{Ctx: c.Ctx, T: instCod, Head: c.Head, Elims1: tail1, Elims2: tail2}
		return progressOutcome(argEq, rest)

	case tt.Project:
		e2, ok := other.(tt.Project)
		if !ok || e1.Field.Key != e2.Field.Key {
			return mismatchOutcome("spine shape mismatch: Project field disagreement")
		}
		d, ok := s.sig.LookupDefinition(e1.Field.Key)
		if !ok {
			return mismatchOutcome("unknown projection " + e1.Field.Key)
		}
		rest := constraint.UnifySpines{Ctx: c.Ctx, T: d.Type.Inside, Head: c.Head, Elims1: tail1, Elims2: tail2}
		return progressOutcome(rest)

	default:
		return mismatchOutcome("unknown eliminator in spine comparison")
	}
}
