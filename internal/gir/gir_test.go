package gir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/silt-lang/silt/internal/girtypes"
)

// namesOf renders an RPO's continuations as a plain name slice so test
// failures print a readable diff instead of a wall of pointers.
func namesOf(rpo *ReversePostOrder) []string {
	order := rpo.Order()
	names := make([]string, len(order))
	for i, c := range order {
		names[i] = c.Name()
	}
	return names
}

// TestReplaceAllUsesWithRewritesOperands checks that rewiring a PrimOp's
// producer via ReplaceAllUsesWith updates every use in place and leaves
// the old value with no uses.
func TestReplaceAllUsesWithRewritesOperands(t *testing.T) {
	p := NewParameter("x", girtypes.NatType{}, Object)
	q := NewParameter("y", girtypes.NatType{}, Object)

	op1 := NewPrimOp("a", OpCopyValue, girtypes.NatType{}, Object, nil)
	op1.AddOperand(p)
	op2 := NewPrimOp("b", OpCopyValue, girtypes.NatType{}, Object, nil)
	op2.AddOperand(p)

	if got := len(Uses(p)); got != 2 {
		t.Fatalf("expected 2 uses of p, got %d", got)
	}

	ReplaceAllUsesWith(p, q)

	if got := len(Uses(p)); got != 0 {
		t.Fatalf("expected p to have no uses after rewiring, got %d", got)
	}
	if got := len(Uses(q)); got != 2 {
		t.Fatalf("expected q to inherit both uses, got %d", got)
	}
	if op1.Operands[0] != q || op2.Operands[0] != q {
		t.Fatalf("expected both operands rewritten to q, got %v and %v", op1.Operands[0], op2.Operands[0])
	}
}

// TestApplyTermWiresLocalSuccessor checks a direct tail call to a local
// continuation produces a CFG edge, visible through both Successors and
// Predecessors.
func TestApplyTermWiresLocalSuccessor(t *testing.T) {
	from := NewContinuation("entry", nil)
	to := NewContinuation("k", nil)
	from.SetApply(to, nil, girtypes.BottomType{})

	succs := from.Successors()
	if len(succs) != 1 || succs[0] != to {
		t.Fatalf("expected entry to have k as its sole successor, got %v", succs)
	}
	preds := to.Predecessors()
	if len(preds) != 1 || preds[0] != from {
		t.Fatalf("expected k to have entry as its sole predecessor, got %v", preds)
	}
}

// TestApplyTermToExternalFunctionHasNoLocalSuccessor checks that a call
// whose callee is not itself a local Continuation (e.g. a PrimOp result
// from function_ref) produces no CFG edge.
func TestApplyTermToExternalFunctionHasNoLocalSuccessor(t *testing.T) {
	from := NewContinuation("entry", nil)
	callee := NewPrimOp("f", OpFunctionRef, &girtypes.FunctionType{Result: girtypes.BottomType{}}, Object, FunctionRefAttr{Callee: "plus"})
	from.SetApply(callee, nil, girtypes.BottomType{})
	if got := from.Successors(); len(got) != 0 {
		t.Fatalf("expected no local successors through an external call, got %v", got)
	}
}

// TestSwitchConstrWiresOneSuccessorPerArmPlusDefault checks both named
// arms and the default branch link their targets' predecessor lists.
func TestSwitchConstrWiresOneSuccessorPerArmPlusDefault(t *testing.T) {
	from := NewContinuation("entry", nil)
	zeroArm := NewContinuation("k_zero", nil)
	sucArm := NewContinuation("k_suc", []*Parameter{NewParameter("n", girtypes.NatType{}, Object)})
	def := NewContinuation("k_default", nil)

	scrutinee := NewParameter("x", girtypes.NatType{}, Object)
	from.SetSwitchConstr(scrutinee, girtypes.BottomType{}, []*SwitchArm{
		{Constructor: "zero", Target: zeroArm},
		{Constructor: "suc", Target: sucArm},
	}, def)

	succs := from.Successors()
	if len(succs) != 3 {
		t.Fatalf("expected 3 successors (2 arms + default), got %d: %v", len(succs), succs)
	}
	if len(zeroArm.Predecessors()) != 1 || len(sucArm.Predecessors()) != 1 || len(def.Predecessors()) != 1 {
		t.Fatalf("expected each target to record entry as its predecessor")
	}
}

// TestRetargetMovesPredecessorListEntry checks Successor.Retarget moves the
// edge from one target's predecessor list to another's.
func TestRetargetMovesPredecessorListEntry(t *testing.T) {
	from := NewContinuation("entry", nil)
	a := NewContinuation("a", nil)
	b := NewContinuation("b", nil)
	term := from.SetApply(a, nil, girtypes.BottomType{})

	term.succ.Retarget(b)

	if len(a.Predecessors()) != 0 {
		t.Fatalf("expected a to lose its predecessor after retargeting, got %v", a.Predecessors())
	}
	if len(b.Predecessors()) != 1 || b.Predecessors()[0] != from {
		t.Fatalf("expected b to gain entry as predecessor, got %v", b.Predecessors())
	}
}

// TestBuildReversePostOrderOrdersDiamond builds entry -> {left, right} ->
// join and checks join comes last, entry first.
func TestBuildReversePostOrderOrdersDiamond(t *testing.T) {
	entry := NewContinuation("entry", nil)
	left := NewContinuation("left", nil)
	right := NewContinuation("right", nil)
	join := NewContinuation("join", nil)

	left.SetApply(join, nil, girtypes.BottomType{})
	right.SetApply(join, nil, girtypes.BottomType{})
	join.SetUnreachable()
	entry.SetSwitchConstr(NewParameter("x", girtypes.NatType{}, Object), girtypes.BottomType{}, []*SwitchArm{
		{Constructor: "zero", Target: left},
		{Constructor: "suc", Target: right},
	}, nil)

	decl := &Decl{Name: "f", Continuations: []*Continuation{entry, left, right, join}}
	rpo := BuildReversePostOrder(decl)

	if rpo.IndexOf(entry) != 0 {
		t.Fatalf("expected entry first, got index %d", rpo.IndexOf(entry))
	}
	if rpo.IndexOf(join) != 3 {
		t.Fatalf("expected join last, got index %d", rpo.IndexOf(join))
	}
	if !rpo.Precedes(entry, join) {
		t.Fatalf("expected entry to precede join")
	}
	if rpo.Precedes(join, entry) {
		t.Fatalf("did not expect join to precede entry")
	}
}

// TestBuildReversePostOrderLinearChainMatchesSourceOrder builds a straight
// entry->mid->tail chain and checks the full ordered name list, not just
// two endpoints' indices.
func TestBuildReversePostOrderLinearChainMatchesSourceOrder(t *testing.T) {
	entry := NewContinuation("entry", nil)
	mid := NewContinuation("mid", nil)
	tail := NewContinuation("tail", nil)
	tail.SetUnreachable()
	entry.SetApply(mid, nil, girtypes.BottomType{})
	mid.SetApply(tail, nil, girtypes.BottomType{})

	decl := &Decl{Name: "f", Continuations: []*Continuation{entry, mid, tail}}
	rpo := BuildReversePostOrder(decl)

	want := []string{"entry", "mid", "tail"}
	if diff := cmp.Diff(want, namesOf(rpo)); diff != "" {
		t.Fatalf("reverse postorder differs (-want +got):\n%s", diff)
	}
}

// TestPrintRendersEntryApply checks the textual output carries the
// module/decl/continuation/terminator shape spec.md §6's grammar names.
func TestPrintRendersEntryApply(t *testing.T) {
	ret := NewContinuation("ret", []*Parameter{NewParameter("r", girtypes.NatType{}, Object)})
	ret.SetUnreachable()

	arg := NewParameter("x", girtypes.NatType{}, Object)
	entry := NewContinuation("entry", []*Parameter{arg, NewParameter("k", &girtypes.FunctionType{Result: girtypes.BottomType{}}, Object)})
	entry.SetApply(ret, []Value{arg}, girtypes.BottomType{})

	decl := &Decl{Name: "identity", Type: &girtypes.FunctionType{Params: []girtypes.Type{girtypes.NatType{}}, Result: girtypes.NatType{}}, Continuations: []*Continuation{entry, ret}}
	m := NewModule("Main", girtypes.NewTable())
	m.AddDecl(decl)

	out := Print(m)
	for _, want := range []string{"module Main where", "@identity", "entry(", "apply %ret", "unreachable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
