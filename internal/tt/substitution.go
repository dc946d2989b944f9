package tt

import "fmt"

// Substitution is a composable closure built from five primitives
// (spec.md §4.1): Id, Weaken, Strengthen, Instantiate, Lift. Lookup of an
// index against a substitution returns either a term or a strengthening
// error naming the offending variable.
type Substitution interface {
	substNode()
}

type idSub struct{}

func (idSub) substNode() {}

// Id is the identity substitution.
var Id Substitution = idSub{}

type weakenSub struct {
	N     int
	Inner Substitution
}

func (weakenSub) substNode() {}

type strengthenSub struct {
	N     int
	Inner Substitution
}

func (strengthenSub) substNode() {}

type instantiateSub struct {
	Term  Term
	Inner Substitution
}

func (instantiateSub) substNode() {}

type liftSub struct {
	N     int
	Inner Substitution
}

func (liftSub) substNode() {}

// Weaken shifts indices up by n beyond σ. Smart constructor folds
// consecutive weakens and weaken-after-strengthen per spec.md §4.1.
func Weaken(n int, sigma Substitution) Substitution {
	if n == 0 {
		return sigma
	}
	switch s := sigma.(type) {
	case weakenSub:
		return Weaken(n+s.N, s.Inner)
	case strengthenSub:
		// (Weaken n) ∘ (Strengthen m): net shift is n-m in the weaken
		// direction, or m-n in the strengthen direction.
		if n == s.N {
			return s.Inner
		}
		if n > s.N {
			return Weaken(n-s.N, s.Inner)
		}
		return Strengthen(s.N-n, s.Inner)
	default:
		return weakenSub{N: n, Inner: sigma}
	}
}

// Strengthen is the (partial) inverse of Weaken: it drops the n innermost
// bindings, failing at lookup time if a dropped variable is actually
// referenced.
func Strengthen(n int, sigma Substitution) Substitution {
	if n == 0 {
		return sigma
	}
	switch s := sigma.(type) {
	case strengthenSub:
		return Strengthen(n+s.N, s.Inner)
	case weakenSub:
		if n == s.N {
			return s.Inner
		}
		if n > s.N {
			return Strengthen(n-s.N, s.Inner)
		}
		return Weaken(s.N-n, s.Inner)
	default:
		return strengthenSub{N: n, Inner: sigma}
	}
}

// Instantiate consumes one binder, substituting index 0 with t and
// deferring everything else to σ at index-1.
func Instantiate(t Term, sigma Substitution) Substitution {
	return instantiateSub{Term: t, Inner: sigma}
}

// Lift descends under n binders: the innermost n indices are left alone,
// everything else is looked up in σ and reweakened by n.
func Lift(n int, sigma Substitution) Substitution {
	if n == 0 {
		return sigma
	}
	if _, ok := sigma.(idSub); ok {
		return sigma
	}
	// Instantiate t ∘ Lift 1 σ = σ when t is the variable at the hole: a
	// single Lift composed immediately with an Instantiate of Var(0) is the
	// identity fold, handled in Instantiate's caller sites (normalize below)
	// rather than here, since Lift alone has no Instantiate to observe.
	return liftSub{N: n, Inner: sigma}
}

// StrengthenError reports that a substitution could not avoid referencing
// a variable slated for removal.
type StrengthenError struct {
	Var int
}

func (e *StrengthenError) Error() string {
	return fmt.Sprintf("tt: variable %d escapes strengthening", e.Var)
}

// Lookup resolves one de Bruijn index against a substitution.
func Lookup(sigma Substitution, i int) (Term, error) {
	switch s := sigma.(type) {
	case idSub:
		return V("_", i), nil
	case instantiateSub:
		if i == 0 {
			return s.Term, nil
		}
		return Lookup(s.Inner, i-1)
	case liftSub:
		if i < s.N {
			return V("_", i), nil
		}
		t, err := Lookup(s.Inner, i-s.N)
		if err != nil {
			return nil, err
		}
		return shiftTerm(t, s.N), nil
	case weakenSub:
		t, err := Lookup(s.Inner, i)
		if err != nil {
			return nil, err
		}
		return shiftTerm(t, s.N), nil
	case strengthenSub:
		t, err := Lookup(s.Inner, i)
		if err != nil {
			return nil, err
		}
		return unshiftTerm(t, s.N)
	default:
		panic(fmt.Sprintf("tt: unknown substitution variant %T", sigma))
	}
}

// shiftTerm shifts every free variable of t up by n. It never fails.
func shiftTerm(t Term, n int) Term {
	if n == 0 {
		return t
	}
	return Apply_(Weaken(n, Id), t)
}

// unshiftTerm shifts every free variable of t down by n, failing if any
// free variable of t is among the n innermost (would go negative).
func unshiftTerm(t Term, n int) (Term, error) {
	if n == 0 {
		return t, nil
	}
	return ApplyChecked(Strengthen(n, Id), t)
}

// Apply_ applies a substitution to a term, panicking on strengthening
// failure. Most call sites that can statically guarantee success (e.g.
// plain weakening) use this; call sites on the solver's inversion path use
// ApplyChecked and propagate the failure.
func Apply_(sigma Substitution, t Term) Term {
	out, err := ApplyChecked(sigma, t)
	if err != nil {
		panic(err)
	}
	return out
}

// ApplyChecked applies a substitution to a term, descending under each
// binder via Lift(1, -). On a Var head, it looks up the substitution and
// rebuilds the spine with eliminate so redexes created by the substitution
// re-normalize on the spot (spec.md §4.1).
func ApplyChecked(sigma Substitution, t Term) (Term, error) {
	if _, ok := sigma.(idSub); ok {
		return t, nil
	}
	switch t := t.(type) {
	case Type:
		return t, nil
	case Pi:
		dom, err := ApplyChecked(sigma, t.Domain)
		if err != nil {
			return nil, err
		}
		cod, err := ApplyChecked(Lift(1, sigma), t.Codomain)
		if err != nil {
			return nil, err
		}
		return Pi{Domain: dom, Codomain: cod}, nil
	case Lambda:
		body, err := ApplyChecked(Lift(1, sigma), t.Body)
		if err != nil {
			return nil, err
		}
		return Lambda{Body: body}, nil
	case Equal:
		ty, err := ApplyChecked(sigma, t.Ty)
		if err != nil {
			return nil, err
		}
		lhs, err := ApplyChecked(sigma, t.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ApplyChecked(sigma, t.RHS)
		if err != nil {
			return nil, err
		}
		return Equal{Ty: ty, LHS: lhs, RHS: rhs}, nil
	case Refl:
		return t, nil
	case Constructor:
		name, err := applyOpened(sigma, t.Name)
		if err != nil {
			return nil, err
		}
		args, err := applyTerms(sigma, t.Args)
		if err != nil {
			return nil, err
		}
		return Constructor{Name: name, Args: args}, nil
	case Apply:
		elims, err := applyElimsSub(sigma, t.Elims)
		if err != nil {
			return nil, err
		}
		switch h := t.Head.(type) {
		case VarHead:
			base, err := Lookup(sigma, h.Index)
			if err != nil {
				return nil, err
			}
			return applyElimsToTerm(base, elims), nil
		case DefHead:
			name, err := applyOpened(sigma, h.Name)
			if err != nil {
				return nil, err
			}
			return applyElimsToTerm(Apply{Head: DefHead{Name: name}}, elims), nil
		case MetaHead:
			return applyElimsToTerm(Apply{Head: h}, elims), nil
		default:
			panic(fmt.Sprintf("tt: unknown head %T", t.Head))
		}
	default:
		panic(fmt.Sprintf("tt: unknown term %T", t))
	}
}

func applyTerms(sigma Substitution, ts []Term) ([]Term, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	out := make([]Term, len(ts))
	for i, x := range ts {
		v, err := ApplyChecked(sigma, x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func applyOpened(sigma Substitution, o OpenedName) (OpenedName, error) {
	args, err := applyTerms(sigma, o.Args)
	if err != nil {
		return OpenedName{}, err
	}
	return OpenedName{Key: o.Key, Args: args}, nil
}

func applyElimsSub(sigma Substitution, elims []Elim) ([]Elim, error) {
	if len(elims) == 0 {
		return nil, nil
	}
	out := make([]Elim, len(elims))
	for i, e := range elims {
		switch e := e.(type) {
		case ApplyArg:
			arg, err := ApplyChecked(sigma, e.Arg)
			if err != nil {
				return nil, err
			}
			out[i] = ApplyArg{Arg: arg}
		case Project:
			field, err := applyOpened(sigma, e.Field)
			if err != nil {
				return nil, err
			}
			out[i] = Project{Field: field, Index: e.Index}
		default:
			panic(fmt.Sprintf("tt: unknown elim %T", e))
		}
	}
	return out, nil
}

// applyElimsToTerm rebuilds a spine after substitution, performing any
// beta/iota reduction the substitution's result forces (spec.md §4.1:
// "rebuilds with the supplied eliminate callback so spines re-normalize").
func applyElimsToTerm(base Term, elims []Elim) Term {
	t := base
	for _, e := range elims {
		t = eliminate(t, e)
	}
	return t
}

// Eliminate applies one eliminator to an arbitrary term, performing
// whatever beta/iota reduction the combination forces. Exported for callers
// outside this package that build up spine applications incrementally (the
// elaborator's application rule, spec.md §4.3).
func Eliminate(t Term, e Elim) Term { return eliminate(t, e) }

// eliminate applies one eliminator to a term. Apply extends the spine;
// Lambda/ApplyArg beta-reduces; Constructor/Project iota-reduces using the
// index stamped on Project. Any other combination is a structural bug: a
// well-typed spine never eliminates a Type/Pi/Equal/Refl term.
func eliminate(t Term, e Elim) Term {
	switch b := t.(type) {
	case Apply:
		elims := make([]Elim, len(b.Elims)+1)
		copy(elims, b.Elims)
		elims[len(b.Elims)] = e
		return Apply{Head: b.Head, Elims: elims}
	case Lambda:
		arg, ok := e.(ApplyArg)
		if !ok {
			panic("tt: eliminate: Lambda eliminated by non-ApplyArg")
		}
		return Apply_(Instantiate(arg.Arg, Id), b.Body)
	case Constructor:
		proj, ok := e.(Project)
		if !ok {
			panic("tt: eliminate: Constructor eliminated by non-Project")
		}
		if proj.Index < 0 || proj.Index >= len(b.Args) {
			panic("tt: eliminate: projection index out of range")
		}
		return b.Args[proj.Index]
	default:
		panic(fmt.Sprintf("tt: eliminate: cannot eliminate %T", t))
	}
}
