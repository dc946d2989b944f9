package tt

// ContextEntry is one typed binding in a Context.
type ContextEntry struct {
	Name string
	Type Term
}

// Context is the flattened typing context Γ: an ordered sequence of typed
// bindings, innermost last, indexed the same way Var.Index counts de Bruijn
// depth (spec.md §3 "Environment": concatenating scopes gives the current
// context with indices counted from the innermost binding).
type Context struct {
	entries []ContextEntry
}

// Extend pushes one new innermost binding.
func (c Context) Extend(name string, ty Term) Context {
	next := make([]ContextEntry, len(c.entries)+1)
	copy(next, c.entries)
	next[len(c.entries)] = ContextEntry{Name: name, Type: ty}
	return Context{entries: next}
}

// Len reports the number of bindings in scope.
func (c Context) Len() int { return len(c.entries) }

// Lookup resolves a de Bruijn index (0 = innermost) to its binding.
func (c Context) Lookup(index int) (ContextEntry, bool) {
	pos := len(c.entries) - 1 - index
	if pos < 0 || pos >= len(c.entries) {
		return ContextEntry{}, false
	}
	return c.entries[pos], true
}

// TypeAt returns the type of the binding at index, weakened so its free
// variables are expressed relative to the full context rather than the
// point at which the binding was introduced.
func (c Context) TypeAt(index int) (Term, bool) {
	entry, ok := c.Lookup(index)
	if !ok {
		return nil, false
	}
	return shiftTerm(entry.Type, index+1), true
}

// LookupName resolves a surface name to the innermost binding that carries
// it, returning its de Bruijn index and (already reweakened) type. Shadowing
// is resolved by scanning from the innermost binding outward.
func (c Context) LookupName(name string) (index int, ty Term, ok bool) {
	for pos := len(c.entries) - 1; pos >= 0; pos-- {
		if c.entries[pos].Name == name {
			idx := len(c.entries) - 1 - pos
			t, _ := c.TypeAt(idx)
			return idx, t, true
		}
	}
	return 0, nil, false
}

// GeneralizeType closes ty — expressed relative to the whole of c — into a
// Π-telescope over every binding in c, outermost first, producing a term
// with no free variables. This is how a meta introduced under a local
// context gets a type the Signature can actually store: Signature-stored
// types carry no ambient context of their own (spec.md §3 "Signature"), so
// a pattern meta's dependency on Γ has to be turned into explicit Π's
// instead.
func (c Context) GeneralizeType(ty Term) Term {
	result := ty
	for pos := len(c.entries) - 1; pos >= 0; pos-- {
		result = Pi{Domain: c.entries[pos].Type, Codomain: result}
	}
	return result
}

// Spine returns the eliminator spine that applies a GeneralizeType-closed
// meta back to every binding of c, outermost first — the inverse operation
// used at the reference site to turn the closed meta back into a term that
// behaves as if it had been introduced directly under Γ.
func (c Context) Spine() []Elim {
	if len(c.entries) == 0 {
		return nil
	}
	elims := make([]Elim, len(c.entries))
	for i := range c.entries {
		idx := len(c.entries) - 1 - i
		elims[i] = ApplyArg{Arg: V(c.entries[i].Name, idx)}
	}
	return elims
}
