package solver

import (
	"testing"

	"github.com/silt-lang/silt/internal/constraint"
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/tt"
)

func natSig(t *testing.T) *signature.Signature {
	t.Helper()
	sig := signature.New()
	if err := sig.AddData("Nat", nil, tt.Type{}); err != nil {
		t.Fatalf("AddData: %v", err)
	}
	if err := sig.AddConstructor("zero", "Nat", 0, signature.Contextual{Inside: tt.D(tt.OpenedName{Key: "Nat"})}); err != nil {
		t.Fatalf("AddConstructor zero: %v", err)
	}
	if err := sig.AddConstructor("suc", "Nat", 1, signature.Contextual{Inside: tt.Pi{
		Domain:   tt.D(tt.OpenedName{Key: "Nat"}),
		Codomain: tt.D(tt.OpenedName{Key: "Nat"}),
	}}); err != nil {
		t.Fatalf("AddConstructor suc: %v", err)
	}
	return sig
}

func TestFlexRigidSolvesMetaToClosedTerm(t *testing.T) {
	sig := natSig(t)
	m := sig.AddMeta(tt.Type{}, nil)
	s := New(sig)
	nat := tt.D(tt.OpenedName{Key: "Nat"})
	s.EmitHomogeneous(constraint.Unify{Ctx: tt.Context{}, T: tt.Type{}, T1: tt.M(m), T2: nat})

	res := s.Run()
	if len(res.Unsolved) != 0 || len(res.Mismatches) != 0 {
		t.Fatalf("expected full solve, got unsolved=%v mismatches=%v", res.Unsolved, res.Mismatches)
	}
	binding, ok := sig.LookupMetaBinding(m)
	if !ok {
		t.Fatalf("expected meta to be bound")
	}
	if !tt.Equals(binding.Body, nat) {
		t.Fatalf("expected binding body %s, got %s", nat, binding.Body)
	}
}

func TestFlexRigidWithVariableSpineInverts(t *testing.T) {
	sig := natSig(t)
	// $m[x] =?= suc(x) under a context with one bound variable x.
	ctx := tt.Context{}.Extend("x", tt.D(tt.OpenedName{Key: "Nat"}))
	m := sig.AddMeta(tt.Pi{Domain: tt.D(tt.OpenedName{Key: "Nat"}), Codomain: tt.D(tt.OpenedName{Key: "Nat"})}, nil)
	spine := tt.Apply{Head: tt.MetaHead{ID: m}, Elims: []tt.Elim{tt.ApplyArg{Arg: tt.V("x", 0)}}}
	rhs := tt.Constructor{Name: tt.OpenedName{Key: "suc"}, Args: []tt.Term{tt.V("x", 0)}}

	s := New(sig)
	s.EmitHomogeneous(constraint.Unify{Ctx: ctx, T: tt.D(tt.OpenedName{Key: "Nat"}), T1: spine, T2: rhs})
	res := s.Run()
	if len(res.Unsolved) != 0 || len(res.Mismatches) != 0 {
		t.Fatalf("expected full solve, got unsolved=%v mismatches=%v", res.Unsolved, res.Mismatches)
	}
	binding, ok := sig.LookupMetaBinding(m)
	if !ok {
		t.Fatalf("expected meta to be bound")
	}
	want := tt.Constructor{Name: tt.OpenedName{Key: "suc"}, Args: []tt.Term{tt.V("_", 0)}}
	if !tt.Equals(binding.Body, want) {
		t.Fatalf("expected binding body %s, got %s", want, binding.Body)
	}
}

func TestRigidRigidHeadMismatchIsMismatch(t *testing.T) {
	sig := natSig(t)
	s := New(sig)
	s.EmitHomogeneous(constraint.Unify{
		Ctx: tt.Context{},
		T:   tt.D(tt.OpenedName{Key: "Nat"}),
		T1:  tt.Constructor{Name: tt.OpenedName{Key: "zero"}},
		T2:  tt.Constructor{Name: tt.OpenedName{Key: "suc"}, Args: []tt.Term{tt.Constructor{Name: tt.OpenedName{Key: "zero"}}}},
	})
	res := s.Run()
	if len(res.Mismatches) == 0 {
		t.Fatalf("expected a mismatch for zero vs suc(zero)")
	}
}

func TestFlexFlexSameMetaIntersectionDropsDivergentPosition(t *testing.T) {
	sig := natSig(t)
	nat := tt.D(tt.OpenedName{Key: "Nat"})
	mty := tt.Pi{Domain: nat, Codomain: tt.Pi{Domain: nat, Codomain: nat}}
	m := sig.AddMeta(mty, nil)

	// $m[x, y] =?= $m[x, z] under a 3-variable context: only position 0 (x)
	// agrees, position 1 disagrees (y vs z), so intersection should drop it.
	ctx := tt.Context{}.Extend("x", nat).Extend("y", nat).Extend("z", nat)
	lhs := tt.Apply{Head: tt.MetaHead{ID: m}, Elims: []tt.Elim{
		tt.ApplyArg{Arg: tt.V("x", 2)},
		tt.ApplyArg{Arg: tt.V("y", 1)},
	}}
	rhs := tt.Apply{Head: tt.MetaHead{ID: m}, Elims: []tt.Elim{
		tt.ApplyArg{Arg: tt.V("x", 2)},
		tt.ApplyArg{Arg: tt.V("z", 0)},
	}}
	s := New(sig)
	s.EmitHomogeneous(constraint.Unify{Ctx: ctx, T: nat, T1: lhs, T2: rhs})
	res := s.Run()
	if len(res.Mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", res.Mismatches)
	}
	binding, ok := sig.LookupMetaBinding(m)
	if !ok {
		t.Fatalf("expected intersection to bind the original meta to a smaller one")
	}
	if binding.Arity != 2 {
		t.Fatalf("expected arity 2 binding, got %d", binding.Arity)
	}
}

func TestPiStructuralComparisonDecomposes(t *testing.T) {
	sig := natSig(t)
	nat := tt.D(tt.OpenedName{Key: "Nat"})
	p1 := tt.Pi{Domain: nat, Codomain: nat}
	p2 := tt.Pi{Domain: nat, Codomain: nat}
	s := New(sig)
	s.EmitHomogeneous(constraint.Unify{Ctx: tt.Context{}, T: tt.Type{}, T1: p1, T2: p2})
	res := s.Run()
	if len(res.Unsolved) != 0 || len(res.Mismatches) != 0 {
		t.Fatalf("expected two identical Pi types to unify cleanly, got unsolved=%v mismatches=%v", res.Unsolved, res.Mismatches)
	}
}
