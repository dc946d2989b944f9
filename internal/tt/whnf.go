package tt

import "fmt"

// MetaBinding is a solved meta's internalized solution: Body takes exactly
// Arity arguments (spec.md §3 Signature invariants).
type MetaBinding struct {
	Arity int
	Body  Term
}

// ClauseSet is one function definition's invertibility classification and
// clause list (spec.md §3 "Function(Open | Invertible(...))").
type ClauseSet struct {
	Invertible bool
	Clauses    []Clause
}

// Clause is one pattern-matching equation. Body == nil denotes an absurd
// clause.
type Clause struct {
	Patterns []Pattern
	Body     Term
	Absurd   bool
}

// Pattern is the sum of the three pattern forms spec.md §3 names.
type Pattern interface {
	fmt.Stringer
	patternNode()
}

type PVar struct{ Name string }

func (PVar) patternNode() {}
func (p PVar) String() string { return p.Name }

type PAbsurd struct{}

func (PAbsurd) patternNode()  {}
func (PAbsurd) String() string { return "()" }

type PConstructor struct {
	Name OpenedName
	Args []Pattern
}

func (PConstructor) patternNode() {}
func (p PConstructor) String() string { return p.Name.String() }

// Env is the read-only view of the Signature that WHNF needs: meta
// bindings and function clause sets. internal/signature.Signature
// implements this; defining the interface here (rather than importing
// internal/signature) keeps tt free of a dependency on its own client.
type Env interface {
	MetaBinding(m Meta) (MetaBinding, bool)
	Clauses(defKey string) (ClauseSet, bool)
}

// Blocked is the outcome of WHNF reduction: either the term is in weak
// head normal form, or reduction is stuck on a meta (spec.md §4.1).
type Blocked interface {
	blockedNode()
}

// NotBlocked carries a term already in WHNF: either rigid (variable,
// postulate, constructor, Type, Pi, ...) or exhaustively reduced.
type NotBlocked struct{ Term Term }

func (NotBlocked) blockedNode() {}

// OnHead is stuck because the term's own head is an unbound meta.
type OnHead struct {
	Meta  Meta
	Elims []Elim
}

func (OnHead) blockedNode() {}

// OnMetas is stuck because one or more metas elsewhere in the term (e.g.
// inside a scrutinee argument of an invertible function) prevent deciding
// which clause applies.
type OnMetas struct {
	Metas map[Meta]bool
	Head  Head
	Elims []Elim
}

func (OnMetas) blockedNode() {}

// WHNF reduces a term to weak head normal form (spec.md §4.1).
func WHNF(env Env, t Term) Blocked {
	ap, ok := t.(Apply)
	if !ok {
		return NotBlocked{Term: t}
	}
	switch h := ap.Head.(type) {
	case MetaHead:
		if mb, found := env.MetaBinding(h.ID); found {
			internalized := internalizeMeta(mb)
			reduced := applyElimsToTerm(internalized, ap.Elims)
			return WHNF(env, reduced)
		}
		return OnHead{Meta: h.ID, Elims: ap.Elims}

	case DefHead:
		cs, found := env.Clauses(h.Name.Key)
		if !found || !cs.Invertible {
			return NotBlocked{Term: ap}
		}
		var pendingBlocked map[Meta]bool
		for _, cl := range cs.Clauses {
			if cl.Absurd {
				continue
			}
			ok, vals, blocked := matchPatterns(env, cl.Patterns, ap.Elims)
			if blocked != nil {
				if pendingBlocked == nil {
					pendingBlocked = map[Meta]bool{}
				}
				for m := range blocked {
					pendingBlocked[m] = true
				}
				continue
			}
			if !ok {
				continue
			}
			sub := buildClauseSubstitution(vals)
			reduced := Apply_(sub, cl.Body)
			if len(ap.Elims) > len(cl.Patterns) {
				reduced = applyElimsToTerm(reduced, ap.Elims[len(cl.Patterns):])
			}
			return WHNF(env, reduced)
		}
		if pendingBlocked != nil {
			return OnMetas{Metas: pendingBlocked, Head: ap.Head, Elims: ap.Elims}
		}
		return NotBlocked{Term: ap}

	default: // VarHead
		return NotBlocked{Term: ap}
	}
}

// internalizeMeta wraps a solved meta's body in Arity lambdas (spec.md §3:
// "internalizing it wraps the body in arity lambdas").
func internalizeMeta(mb MetaBinding) Term {
	result := mb.Body
	for i := 0; i < mb.Arity; i++ {
		result = Lambda{Body: result}
	}
	return result
}

// buildClauseSubstitution turns the left-to-right list of matched
// sub-terms into a substitution where index 0 refers to the last-bound
// (rightmost) pattern variable, matching ordinary context-extension
// de Bruijn numbering.
func buildClauseSubstitution(vals []Term) Substitution {
	sub := Id
	for _, v := range vals {
		sub = Instantiate(v, sub)
	}
	return sub
}

// matchPatterns tries to match a clause's pattern vector against a call's
// eliminator spine. ok=true means matched (vals populated); ok=false with
// blocked=nil means a definite mismatch; ok=false with blocked!=nil means
// matching is inconclusive pending the listed metas.
func matchPatterns(env Env, pats []Pattern, elims []Elim) (ok bool, vals []Term, blocked map[Meta]bool) {
	if len(pats) > len(elims) {
		return false, nil, nil
	}
	for i, p := range pats {
		argElim, isArg := elims[i].(ApplyArg)
		if !isArg {
			return false, nil, nil
		}
		sub, bl, matched := matchOne(env, p, argElim.Arg)
		if bl != nil {
			return false, nil, bl
		}
		if !matched {
			return false, nil, nil
		}
		vals = append(vals, sub...)
	}
	return true, vals, nil
}

func matchOne(env Env, p Pattern, arg Term) (vals []Term, blocked map[Meta]bool, matched bool) {
	switch p := p.(type) {
	case PVar:
		return []Term{arg}, nil, true
	case PAbsurd:
		return nil, nil, false
	case PConstructor:
		b := WHNF(env, arg)
		switch bb := b.(type) {
		case NotBlocked:
			ctor, isCtor := bb.Term.(Constructor)
			if !isCtor || ctor.Name.Key != p.Name.Key {
				return nil, nil, false
			}
			if len(p.Args) > len(ctor.Args) {
				return nil, nil, false
			}
			var all []Term
			for i, sp := range p.Args {
				v, bl, m := matchOne(env, sp, ctor.Args[i])
				if bl != nil {
					return nil, bl, false
				}
				if !m {
					return nil, nil, false
				}
				all = append(all, v...)
			}
			return all, nil, true
		case OnHead:
			return nil, map[Meta]bool{bb.Meta: true}, false
		case OnMetas:
			return nil, bb.Metas, false
		default:
			return nil, nil, false
		}
	default:
		panic(fmt.Sprintf("tt: unknown pattern %T", p))
	}
}
