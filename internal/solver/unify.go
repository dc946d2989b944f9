package solver

import (
	"fmt"

	"github.com/silt-lang/silt/internal/constraint"
	"github.com/silt-lang/silt/internal/tt"
)

// reduceUnify implements the per-frame strategy order of spec.md §4.4:
// syntactic equality, eta expansion, meta interaction, then structural
// comparison.
func (s *Solver) reduceUnify(c constraint.Unify) outcome {
	t1, blk1 := whnfOf(s.sig, c.T1)
	if blk1 != nil {
		return blockedOutcome(blk1)
	}
	t2, blk2 := whnfOf(s.sig, c.T2)
	if blk2 != nil {
		return blockedOutcome(blk2)
	}

	// Strategy 1: syntactic equality on WHNFs.
	if tt.Equals(t1, t2) {
		return solvedOutcome()
	}

	ty, blkT := whnfOf(s.sig, c.T)
	if blkT != nil {
		return blockedOutcome(blkT)
	}

	// Strategy 2: eta expansion of both sides at the current type, then
	// retry once. A term already headed by a Constructor or already a
	// syntactic eta-redex is left untouched by EtaExpandRecord/EtaExpandPi,
	// so this converges instead of looping.
	e1, e2, changed := s.etaExpandBoth(ty, t1, t2)
	if changed {
		return progressOutcome(constraint.Unify{Ctx: c.Ctx, T: c.T, T1: e1, T2: e2})
	}

	// Strategy 3: meta interaction.
	h1, elims1, isApp1 := headApply(t1)
	h2, elims2, isApp2 := headApply(t2)
	m1, flex1 := h1.(tt.MetaHead)
	m2, flex2 := h2.(tt.MetaHead)

	if isApp1 && isApp2 && flex1 && flex2 {
		if m1.ID == m2.ID {
			return s.tryIntersection(c.Ctx, m1.ID, elims1, elims2)
		}
		if o, attempted := s.tryInvert(c.Ctx, m1.ID, elims1, t2); attempted {
			return o
		}
		if o, attempted := s.tryInvert(c.Ctx, m2.ID, elims2, t1); attempted {
			return o
		}
		return blockedOutcome(map[tt.Meta]bool{m1.ID: true, m2.ID: true})
	}
	if isApp1 && flex1 {
		if o, attempted := s.tryInvert(c.Ctx, m1.ID, elims1, t2); attempted {
			return o
		}
		return blockedOutcome(map[tt.Meta]bool{m1.ID: true})
	}
	if isApp2 && flex2 {
		if o, attempted := s.tryInvert(c.Ctx, m2.ID, elims2, t1); attempted {
			return o
		}
		return blockedOutcome(map[tt.Meta]bool{m2.ID: true})
	}

	// Strategy 4: structural comparison.
	return s.structuralCompare(c.Ctx, ty, t1, t2)
}

// etaExpandBoth expands whichever of t1/t2 isn't already in eta-long form
// at type ty, per spec.md §4.1. It reports changed=false once neither side
// has anything left to expand, so the caller's retry always terminates.
func (s *Solver) etaExpandBoth(ty, t1, t2 tt.Term) (tt.Term, tt.Term, bool) {
	changed := false
	if e, ok := tt.EtaExpandRecord(s.sig, ty, t1); ok {
		t1 = e
		changed = true
	}
	if e, ok := tt.EtaExpandRecord(s.sig, ty, t2); ok {
		t2 = e
		changed = true
	}
	if _, isPi := ty.(tt.Pi); isPi {
		if !isLambdaShaped(t1) {
			t1 = tt.EtaExpandPi(t1)
			changed = true
		}
		if !isLambdaShaped(t2) {
			t2 = tt.EtaExpandPi(t2)
			changed = true
		}
	}
	return t1, t2, changed
}

func isLambdaShaped(t tt.Term) bool {
	_, ok := t.(tt.Lambda)
	return ok
}

// headApply reports the head and spine of t if t is an Apply.
func headApply(t tt.Term) (tt.Head, []tt.Elim, bool) {
	ap, ok := t.(tt.Apply)
	if !ok {
		return nil, nil, false
	}
	return ap.Head, ap.Elims, true
}

// structuralCompare implements spec.md §4.4 strategy 4: dispatch on the
// shape of ty/t1/t2 once neither side is flexible.
func (s *Solver) structuralCompare(ctx tt.Context, ty, t1, t2 tt.Term) outcome {
	if _, isTy := ty.(tt.Type); isTy {
		if p1, ok1 := t1.(tt.Pi); ok1 {
			if p2, ok2 := t2.(tt.Pi); ok2 {
				return s.unifyPi(ctx, p1, p2)
			}
		}
		if _, ok1 := t1.(tt.Type); ok1 {
			if _, ok2 := t2.(tt.Type); ok2 {
				return solvedOutcome()
			}
		}
	}

	if pi, isPi := ty.(tt.Pi); isPi {
		l1, ok1 := t1.(tt.Lambda)
		l2, ok2 := t2.(tt.Lambda)
		if ok1 && ok2 {
			innerCtx := ctx.Extend("_", pi.Domain)
			return progressOutcome(constraint.Unify{Ctx: innerCtx, T: pi.Codomain, T1: l1.Body, T2: l2.Body})
		}
	}

	if c1, ok1 := t1.(tt.Constructor); ok1 {
		if c2, ok2 := t2.(tt.Constructor); ok2 {
			return s.unifyConstructors(ctx, c1, c2)
		}
	}

	h1, elims1, isApp1 := headApply(t1)
	h2, elims2, isApp2 := headApply(t2)
	if isApp1 && isApp2 {
		if !headsEqual(h1, h2) {
			return mismatchOutcome(fmt.Sprintf("head mismatch: %s vs %s", h1, h2))
		}
		headType, ok := s.typeOfHead(ctx, h1)
		if !ok {
			return mismatchOutcome(fmt.Sprintf("cannot determine type of head %s", h1))
		}
		return s.reduceSpines(constraint.UnifySpines{Ctx: ctx, T: headType, Head: h1, Elims1: elims1, Elims2: elims2})
	}

	return mismatchOutcome(fmt.Sprintf("structural mismatch: %s vs %s", t1, t2))
}

func headsEqual(a, b tt.Head) bool {
	switch a := a.(type) {
	case tt.VarHead:
		bb, ok := b.(tt.VarHead)
		return ok && a.Index == bb.Index
	case tt.DefHead:
		bb, ok := b.(tt.DefHead)
		return ok && a.Name.Key == bb.Name.Key
	case tt.MetaHead:
		bb, ok := b.(tt.MetaHead)
		return ok && a.ID == bb.ID
	default:
		return false
	}
}

// typeOfHead resolves the type of a spine's head: a context lookup for a
// variable, a Signature lookup for a definition. Meta heads never reach
// here (handled earlier as flexible).
func (s *Solver) typeOfHead(ctx tt.Context, h tt.Head) (tt.Term, bool) {
	switch h := h.(type) {
	case tt.VarHead:
		return ctx.TypeAt(h.Index)
	case tt.DefHead:
		d, ok := s.sig.LookupDefinition(h.Name.Key)
		if !ok {
			return nil, false
		}
		return d.Type.Inside, true
	default:
		return nil, false
	}
}

// unifyPi generates the spine-level equation of spec.md §4.4 strategy 4
// ("Π vs Π at Type — generate spine-level equation treating each Π as
// Π : Π S. ((S→Type) → Type) applied to its pieces"): domains must agree,
// then codomains agree under the shared domain.
func (s *Solver) unifyPi(ctx tt.Context, p1, p2 tt.Pi) outcome {
	inner := ctx.Extend("_", p1.Domain)
	return progressOutcome(
		constraint.Unify{Ctx: ctx, T: tt.Type{}, T1: p1.Domain, T2: p2.Domain},
		constraint.Unify{Ctx: inner, T: tt.Type{}, T1: p1.Codomain, T2: p2.Codomain},
	)
}

// unifyConstructors equates two record/data constructor applications
// argument-by-argument (spec.md §4.4: "record-constructor vs
// record-constructor — equate spines against the instantiated constructor
// type").
func (s *Solver) unifyConstructors(ctx tt.Context, c1, c2 tt.Constructor) outcome {
	if c1.Name.Key != c2.Name.Key || len(c1.Args) != len(c2.Args) {
		return mismatchOutcome(fmt.Sprintf("constructor mismatch: %s vs %s", c1.Name.Key, c2.Name.Key))
	}
	d, ok := s.sig.LookupDefinition(c1.Name.Key)
	if !ok {
		return mismatchOutcome(fmt.Sprintf("unknown constructor %s", c1.Name.Key))
	}
	argTy := d.Type.Inside
	var cs []constraint.Constraint
	for i := range c1.Args {
		domTy, isPi := argTy.(tt.Pi)
		var ty tt.Term = tt.Type{}
		if isPi {
			ty = domTy.Domain
			argTy = tt.Apply_(tt.Instantiate(c1.Args[i], tt.Id), domTy.Codomain)
		}
		cs = append(cs, constraint.Unify{Ctx: ctx, T: ty, T1: c1.Args[i], T2: c2.Args[i]})
	}
	if len(cs) == 0 {
		return solvedOutcome()
	}
	return progressOutcome(constraint.Conjoin{Constraints: cs})
}
