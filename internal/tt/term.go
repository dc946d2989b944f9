// Package tt implements the core type theory: an explicit, well-scoped,
// locally-nameless term representation with a composable substitution
// calculus, weak head normal form reduction, and eta expansion/contraction
// (spec.md §4.1).
//
// Every class hierarchy the teacher expresses as inheritance over its ANF
// Core nodes (internal/core/core.go in sunholo/ailang) is expressed here the
// same way Go idiom demands: a private marker method on an exported
// interface, with one concrete struct per variant.
package tt

import (
	"fmt"
	"strings"
)

// Term is the sum type of every TT term former (spec.md §3).
type Term interface {
	fmt.Stringer
	termNode()
}

// Var pairs a user-facing name (irrelevant to equality) with a de Bruijn
// index (authoritative). The name exists only for pretty-printing and
// diagnostics; Equals never consults it.
type Var struct {
	Name  string
	Index int
}

func (Var) termNode() {}
func (v Var) String() string { return v.Name }

// Type is the impredicative universe.
type Type struct{}

func (Type) termNode() {}
func (Type) String() string { return "Type" }

// Pi is a dependent function type; Codomain binds one variable over Domain.
type Pi struct {
	Domain   Term
	Codomain Term
}

func (Pi) termNode() {}
func (p Pi) String() string { return fmt.Sprintf("Π %s. %s", p.Domain, p.Codomain) }

// Lambda binds one variable over Body.
type Lambda struct {
	Body Term
}

func (Lambda) termNode() {}
func (l Lambda) String() string { return fmt.Sprintf("λ. %s", l.Body) }

// Equal is the (possibly heterogeneous-looking, but internally typed-once)
// equality type former `a ≡_A b`.
type Equal struct {
	Ty  Term
	LHS Term
	RHS Term
}

func (Equal) termNode() {}
func (e Equal) String() string { return fmt.Sprintf("%s ≡_%s %s", e.LHS, e.Ty, e.RHS) }

// Refl is the unique inhabitant of a reflexive Equal.
type Refl struct{}

func (Refl) termNode() {}
func (Refl) String() string { return "refl" }

// Constructor is a fully-applied data or record constructor: an opened
// name together with the arguments instantiating its telescope.
type Constructor struct {
	Name OpenedName
	Args []Term
}

func (Constructor) termNode() {}
func (c Constructor) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// OpenedName is a global definition referenced in a local context: the
// telescope of parameters of the definition instantiated by explicit
// arguments stashed at the reference site (spec.md §3 "Opened entity").
// Invariant: len(Args) == telescope length of the referenced definition.
type OpenedName struct {
	Key  string
	Args []Term
}

func (o OpenedName) String() string {
	if len(o.Args) == 0 {
		return o.Key
	}
	parts := make([]string, len(o.Args))
	for i, a := range o.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s{%s}", o.Key, strings.Join(parts, ", "))
}

// Head is the sum of the three things an Apply spine can be headed by.
type Head interface {
	fmt.Stringer
	headNode()
}

// VarHead is a bound variable head.
type VarHead struct {
	Name  string
	Index int
}

func (VarHead) headNode() {}
func (v VarHead) String() string { return v.Name }

// DefHead is an opened global-definition head (a Def, Function or
// Postulate reference — distinct from Constructor, which carries its own
// term former since it is never eliminated further by an Elim spine in the
// way a Def can be).
type DefHead struct {
	Name OpenedName
}

func (DefHead) headNode() {}
func (d DefHead) String() string { return d.Name.String() }

// MetaHead is a metavariable head.
type MetaHead struct {
	ID Meta
}

func (MetaHead) headNode() {}
func (m MetaHead) String() string { return m.ID.String() }

// Meta is a metavariable identifier, unique within one Signature.
type Meta int

func (m Meta) String() string { return fmt.Sprintf("?%d", int(m)) }

// Elim is either an applied argument or a record field projection.
type Elim interface {
	fmt.Stringer
	elimNode()
}

type ApplyArg struct{ Arg Term }

func (ApplyArg) elimNode() {}
func (a ApplyArg) String() string { return a.Arg.String() }

// Project eliminates a record by an opened field name (parent + args,
// mirroring OpenedName, since a projection's codomain depends on the
// record's own parameters the same way a constructor's does). Index is
// the field's position within the record's constructor telescope, stamped
// by the elaborator at the point the projection's type was resolved — this
// lets substitution perform the iota-reduction against a Constructor
// directly, without re-consulting the Signature for every projection.
type Project struct {
	Field OpenedName
	Index int
}

func (Project) elimNode() {}
func (p Project) String() string { return "." + p.Field.String() }

// Apply is a head applied to a spine of eliminators.
type Apply struct {
	Head  Head
	Elims []Elim
}

func (Apply) termNode() {}
func (a Apply) String() string {
	if len(a.Elims) == 0 {
		return a.Head.String()
	}
	parts := make([]string, len(a.Elims))
	for i, e := range a.Elims {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s %s", a.Head, strings.Join(parts, " "))
}

// ---------------------------------------------------------------------
// Construction helpers
// ---------------------------------------------------------------------

// V builds a bare variable application (no eliminators).
func V(name string, index int) Term {
	return Apply{Head: VarHead{Name: name, Index: index}}
}

// M builds a bare metavariable application (no eliminators).
func M(id Meta) Term {
	return Apply{Head: MetaHead{ID: id}}
}

// D builds a bare opened-definition application (no eliminators).
func D(name OpenedName) Term {
	return Apply{Head: DefHead{Name: name}}
}

// ---------------------------------------------------------------------
// Deep syntactic equality
// ---------------------------------------------------------------------

// Equals is deep syntactic equality on raw terms (not WHNF). Alpha
// equivalence is index equality: Var names are never consulted.
func Equals(a, b Term) bool {
	switch a := a.(type) {
	case Type:
		_, ok := b.(Type)
		return ok
	case Pi:
		bb, ok := b.(Pi)
		return ok && Equals(a.Domain, bb.Domain) && Equals(a.Codomain, bb.Codomain)
	case Lambda:
		bb, ok := b.(Lambda)
		return ok && Equals(a.Body, bb.Body)
	case Equal:
		bb, ok := b.(Equal)
		return ok && Equals(a.Ty, bb.Ty) && Equals(a.LHS, bb.LHS) && Equals(a.RHS, bb.RHS)
	case Refl:
		_, ok := b.(Refl)
		return ok
	case Constructor:
		bb, ok := b.(Constructor)
		if !ok || a.Name.Key != bb.Name.Key || len(a.Args) != len(bb.Args) || !openedArgsEqual(a.Name, bb.Name) {
			return false
		}
		for i := range a.Args {
			if !Equals(a.Args[i], bb.Args[i]) {
				return false
			}
		}
		return true
	case Apply:
		bb, ok := b.(Apply)
		if !ok || len(a.Elims) != len(bb.Elims) || !headEquals(a.Head, bb.Head) {
			return false
		}
		for i := range a.Elims {
			if !elimEquals(a.Elims[i], bb.Elims[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func openedArgsEqual(a, b OpenedName) bool {
	if a.Key != b.Key || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Equals(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

func headEquals(a, b Head) bool {
	switch a := a.(type) {
	case VarHead:
		bb, ok := b.(VarHead)
		return ok && a.Index == bb.Index
	case DefHead:
		bb, ok := b.(DefHead)
		return ok && openedArgsEqual(a.Name, bb.Name)
	case MetaHead:
		bb, ok := b.(MetaHead)
		return ok && a.ID == bb.ID
	default:
		return false
	}
}

func elimEquals(a, b Elim) bool {
	switch a := a.(type) {
	case ApplyArg:
		bb, ok := b.(ApplyArg)
		return ok && Equals(a.Arg, bb.Arg)
	case Project:
		bb, ok := b.(Project)
		return ok && openedArgsEqual(a.Field, bb.Field)
	default:
		return false
	}
}
