package solver

import (
	"fmt"

	"github.com/silt-lang/silt/internal/tt"
)

// invert builds the variable-to-position map of spec.md §4.4.2: every elim
// must be ApplyArg, each argument (after WHNF and eta-contraction) must be
// a bound variable, and the variable list must be linear. Position i
// (0-indexed left to right) maps to body-level de Bruijn index arity-1-i,
// matching the convention internalizeMeta/buildClauseSubstitution already
// establish for "first applied argument = outermost binder".
//
// Constructor-headed spine arguments are not inverted: spec.md allows
// "a constructor application whose recursive inversion succeeds" as a
// pattern-fragment extension, but no scenario in this system actually
// requires it, so this implementation treats a non-variable argument as a
// structural inversion failure (falls through to pruning) rather than
// attempting to invert into a constructor's fields.
func invert(sig whnfEnv, elims []tt.Elim) (mapping map[int]int, ok bool, blocked map[tt.Meta]bool) {
	arity := len(elims)
	mapping = map[int]int{}
	for i, e := range elims {
		arg, isArg := e.(tt.ApplyArg)
		if !isArg {
			return nil, false, nil
		}
		v, bl, isVar := extractVar(sig, arg.Arg)
		if bl != nil {
			return nil, false, bl
		}
		if !isVar {
			return nil, false, nil
		}
		if _, dup := mapping[v]; dup {
			return nil, false, nil
		}
		mapping[v] = arity - 1 - i
	}
	return mapping, true, nil
}

type whnfEnv interface {
	tt.Env
}

func extractVar(sig whnfEnv, t tt.Term) (index int, blocked map[tt.Meta]bool, ok bool) {
	b := tt.WHNF(sig, t)
	switch bb := b.(type) {
	case tt.NotBlocked:
		if contracted, did := tt.ContractLambda(bb.Term); did {
			return extractVar(sig, contracted)
		}
		ap, isApp := bb.Term.(tt.Apply)
		if !isApp || len(ap.Elims) != 0 {
			return 0, nil, false
		}
		vh, isVar := ap.Head.(tt.VarHead)
		if !isVar {
			return 0, nil, false
		}
		return vh.Index, nil, true
	case tt.OnHead:
		return 0, map[tt.Meta]bool{bb.Meta: true}, false
	case tt.OnMetas:
		return 0, bb.Metas, false
	default:
		return 0, nil, false
	}
}

// applyInversion implements spec.md §4.4.2 "To apply an inversion to the
// RHS term": it rewrites every free occurrence of an inverted context
// variable to its fresh position, failing on an escaping variable and
// collecting blocking metas rather than failing when a meta-headed
// application stands in the way.
func applyInversion(mapping map[int]int, depth int, t tt.Term) (tt.Term, map[tt.Meta]bool, error) {
	switch t := t.(type) {
	case tt.Type:
		return t, nil, nil
	case tt.Refl:
		return t, nil, nil
	case tt.Pi:
		dom, bl, err := applyInversion(mapping, depth, t.Domain)
		if err != nil || bl != nil {
			return nil, bl, err
		}
		cod, bl, err := applyInversion(mapping, depth+1, t.Codomain)
		if err != nil || bl != nil {
			return nil, bl, err
		}
		return tt.Pi{Domain: dom, Codomain: cod}, nil, nil
	case tt.Lambda:
		body, bl, err := applyInversion(mapping, depth+1, t.Body)
		if err != nil || bl != nil {
			return nil, bl, err
		}
		return tt.Lambda{Body: body}, nil, nil
	case tt.Equal:
		ty, bl, err := applyInversion(mapping, depth, t.Ty)
		if err != nil || bl != nil {
			return nil, bl, err
		}
		lhs, bl, err := applyInversion(mapping, depth, t.LHS)
		if err != nil || bl != nil {
			return nil, bl, err
		}
		rhs, bl, err := applyInversion(mapping, depth, t.RHS)
		if err != nil || bl != nil {
			return nil, bl, err
		}
		return tt.Equal{Ty: ty, LHS: lhs, RHS: rhs}, nil, nil
	case tt.Constructor:
		args := make([]tt.Term, len(t.Args))
		for i, a := range t.Args {
			v, bl, err := applyInversion(mapping, depth, a)
			if err != nil || bl != nil {
				return nil, bl, err
			}
			args[i] = v
		}
		return tt.Constructor{Name: t.Name, Args: args}, nil, nil
	case tt.Apply:
		switch h := t.Head.(type) {
		case tt.VarHead:
			elims, bl, err := applyInversionElims(mapping, depth, t.Elims)
			if err != nil || bl != nil {
				return nil, bl, err
			}
			if h.Index < depth {
				return rebuildSpine(tt.V(h.Name, h.Index), elims), nil, nil
			}
			pos, found := mapping[h.Index-depth]
			if !found {
				return nil, nil, fmt.Errorf("solver: variable %d escapes inversion", h.Index-depth)
			}
			return rebuildSpine(tt.V(h.Name, pos+depth), elims), nil, nil
		case tt.MetaHead:
			elims, bl, err := applyInversionElims(mapping, depth, t.Elims)
			if bl != nil {
				merged := map[tt.Meta]bool{h.ID: true}
				for k := range bl {
					merged[k] = true
				}
				return nil, merged, nil
			}
			if err != nil {
				return nil, map[tt.Meta]bool{h.ID: true}, nil
			}
			return rebuildSpine(tt.M(h.ID), elims), nil, nil
		case tt.DefHead:
			elims, bl, err := applyInversionElims(mapping, depth, t.Elims)
			if err != nil || bl != nil {
				return nil, bl, err
			}
			return rebuildSpine(tt.D(h.Name), elims), nil, nil
		default:
			return nil, nil, fmt.Errorf("solver: unknown head %T in inversion", t.Head)
		}
	default:
		return nil, nil, fmt.Errorf("solver: unknown term %T in inversion", t)
	}
}

func applyInversionElims(mapping map[int]int, depth int, elims []tt.Elim) ([]tt.Elim, map[tt.Meta]bool, error) {
	if len(elims) == 0 {
		return nil, nil, nil
	}
	out := make([]tt.Elim, len(elims))
	for i, e := range elims {
		switch e := e.(type) {
		case tt.ApplyArg:
			v, bl, err := applyInversion(mapping, depth, e.Arg)
			if err != nil || bl != nil {
				return nil, bl, err
			}
			out[i] = tt.ApplyArg{Arg: v}
		case tt.Project:
			out[i] = e
		default:
			return nil, nil, fmt.Errorf("solver: unknown elim %T in inversion", e)
		}
	}
	return out, nil, nil
}

func rebuildSpine(base tt.Term, elims []tt.Elim) tt.Term {
	ap, ok := base.(tt.Apply)
	if !ok {
		return base
	}
	merged := make([]tt.Elim, 0, len(ap.Elims)+len(elims))
	merged = append(merged, ap.Elims...)
	merged = append(merged, elims...)
	return tt.Apply{Head: ap.Head, Elims: merged}
}

// tryInvert attempts to solve meta m against rhs by inverting m's spine and
// substituting it over rhs. attempted=false tells the caller this spine
// wasn't even a candidate (non-pattern), so it should fall back to pruning
// or parking instead of treating this as a final answer.
func (s *Solver) tryInvert(ctx tt.Context, m tt.Meta, elims []tt.Elim, rhs tt.Term) (outcome, bool) {
	mapping, ok, blocked := invert(s.sig, elims)
	if blocked != nil {
		return blockedOutcome(blocked), true
	}
	if !ok {
		if o, did := s.tryPrune(ctx, m, elims, rhs); did {
			return o, true
		}
		return outcome{}, false
	}
	body, bl, err := applyInversion(mapping, 0, rhs)
	if bl != nil {
		return blockedOutcome(bl), true
	}
	if err != nil {
		if o, did := s.tryPrune(ctx, m, elims, rhs); did {
			return o, true
		}
		return outcome{}, false
	}
	if _, ok := s.sig.LookupMetaType(m); !ok {
		return mismatchOutcome(fmt.Sprintf("solver: unknown meta %s", m)), true
	}
	if err := s.sig.InstantiateMeta(m, tt.MetaBinding{Arity: len(elims), Body: body}); err != nil {
		return mismatchOutcome(err.Error()), true
	}
	return solvedOutcome(), true
}
