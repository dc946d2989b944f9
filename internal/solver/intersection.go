package solver

import (
	"fmt"

	"github.com/silt-lang/silt/internal/tt"
)

// tryIntersection implements spec.md §4.4.1: given $m[es1] = $m[es2] with
// equal-length spines of variable-headed ApplyArg eliminators, compute the
// per-position prunable set, build a smaller meta when anything is
// prunable, and bind the original meta to re-apply it over only the kept
// positions.
func (s *Solver) tryIntersection(ctx tt.Context, m tt.Meta, es1, es2 []tt.Elim) outcome {
	if len(es1) != len(es2) {
		return mismatchOutcome("intersection: spine length mismatch on same meta")
	}
	n := len(es1)
	vars1 := make([]int, n)
	vars2 := make([]int, n)
	blocking := map[tt.Meta]bool{}
	for i := range es1 {
		a1, ok1 := es1[i].(tt.ApplyArg)
		a2, ok2 := es2[i].(tt.ApplyArg)
		if !ok1 || !ok2 {
			return mismatchOutcome("intersection: non-ApplyArg eliminator in meta spine")
		}
		v1, bl1, isVar1 := extractVar(s.sig, a1.Arg)
		v2, bl2, isVar2 := extractVar(s.sig, a2.Arg)
		if bl1 != nil || bl2 != nil {
			for k := range bl1 {
				blocking[k] = true
			}
			for k := range bl2 {
				blocking[k] = true
			}
			continue
		}
		if !isVar1 || !isVar2 {
			return mismatchOutcome("intersection: non-pattern argument in meta spine")
		}
		vars1[i], vars2[i] = v1, v2
	}
	if len(blocking) > 0 {
		return blockedOutcome(blocking)
	}

	keep := make([]bool, n)
	anyDrop := false
	for i := range vars1 {
		keep[i] = vars1[i] == vars2[i]
		if !keep[i] {
			anyDrop = true
		}
	}
	if !anyDrop {
		return solvedOutcome()
	}

	mty, ok := s.sig.LookupMetaType(m)
	if !ok {
		return mismatchOutcome(fmt.Sprintf("intersection: unknown meta %s", m))
	}
	newType, kept, ok := dropParams(mty, keep)
	if !ok {
		return blockedOutcome(map[tt.Meta]bool{m: true})
	}
	fresh := s.sig.AddMeta(newType, nil)

	elims := make([]tt.Elim, len(kept))
	for j, i := range kept {
		elims[j] = tt.ApplyArg{Arg: tt.V("_", n-1-i)}
	}
	body := tt.Apply{Head: tt.MetaHead{ID: fresh}, Elims: elims}
	if err := s.sig.InstantiateMeta(m, tt.MetaBinding{Arity: n, Body: body}); err != nil {
		return mismatchOutcome(err.Error())
	}
	return solvedOutcome()
}

// dropParams strips the Π parameters at dropped positions from ty (a
// telescope-shaped Π chain, arity == len(keep)), returning the reduced type
// and the original positions that survive, in order. ok is false if
// strengthening a later parameter against an earlier dropped one fails,
// per §4.4.1's "pruning is conservative: skip that drop" — here modeled as
// aborting the whole intersection rather than partially dropping, since a
// partial, silently-different drop set would desynchronize from `keep`.
func dropParams(ty tt.Term, keep []bool) (tt.Term, []int, bool) {
	var kept []int
	remaining := ty
	for i, k := range keep {
		pi, isPi := remaining.(tt.Pi)
		if !isPi {
			return nil, nil, false
		}
		if k {
			kept = append(kept, i)
			remaining = pi.Codomain
			continue
		}
		reduced, err := tt.ApplyChecked(tt.Strengthen(1, tt.Id), pi.Codomain)
		if err != nil {
			return nil, nil, false
		}
		remaining = reduced
	}
	return remaining, kept, true
}
