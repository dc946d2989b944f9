// Package constraint defines the heterogeneous constraint the elaborator
// emits and the homogeneous internal forms the solver decomposes it into
// (spec.md §3 "Constraint (heterogeneous)", §4.4).
package constraint

import (
	"fmt"

	"github.com/silt-lang/silt/internal/tt"
)

// Equal is the heterogeneous constraint the elaborator emits: under ctx,
// t1:ty1 must equal t2:ty2.
type Equal struct {
	Ctx tt.Context
	Ty1 tt.Term
	T1  tt.Term
	Ty2 tt.Term
	T2  tt.Term
}

// Constraint is the sum of the solver's internal, homogeneous forms
// (spec.md §4.4).
type Constraint interface {
	fmt.Stringer
	constraintNode()
}

// Unify is one equation: under ctx, t1 and t2 must be equal at type T.
type Unify struct {
	Ctx tt.Context
	T   tt.Term
	T1  tt.Term
	T2  tt.Term
}

func (Unify) constraintNode() {}
func (u Unify) String() string { return fmt.Sprintf("%s ≟ %s : %s", u.T1, u.T2, u.T) }

// UnifySpines compares two equal-length spines left-to-right against an
// evolving Π type. Head is nil when the spines being compared are not
// headed by a shared rigid head (e.g. a deferred remainder produced by
// §4.4's "Spine comparison" splitting).
type UnifySpines struct {
	Ctx    tt.Context
	T      tt.Term
	Head   tt.Head
	Elims1 []tt.Elim
	Elims2 []tt.Elim
}

func (UnifySpines) constraintNode() {}
func (s UnifySpines) String() string {
	return fmt.Sprintf("spines(%v, %v) : %s", s.Elims1, s.Elims2, s.T)
}

// Conjoin is a conjunction of constraints, all of which must hold.
type Conjoin struct {
	Constraints []Constraint
}

func (Conjoin) constraintNode() {}
func (c Conjoin) String() string { return fmt.Sprintf("conjoin(%d)", len(c.Constraints)) }

// Suppose enqueues C2 iff C1 reduces to nothing (spec.md §4.4: "c2 is
// enqueued iff c1 reduces to nothing").
type Suppose struct {
	C1 Constraint
	C2 Constraint
}

func (Suppose) constraintNode() {}
func (s Suppose) String() string { return fmt.Sprintf("suppose(%s; %s)", s.C1, s.C2) }

// Decompose turns a heterogeneous Equal into its homogeneous Suppose form
// (spec.md §4.4: "Equal(ctx, T1, t1, T2, t2) decomposes into Suppose(Unify
// (ctx, Type, T1, T2), Unify(ctx, T1, t1, t2))").
func Decompose(e Equal) Suppose {
	return Suppose{
		C1: Unify{Ctx: e.Ctx, T: tt.Type{}, T1: e.Ty1, T2: e.Ty2},
		C2: Unify{Ctx: e.Ctx, T: e.Ty1, T1: e.T1, T2: e.T2},
	}
}
