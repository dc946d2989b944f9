package girgen

import (
	"strings"
	"testing"

	"github.com/silt-lang/silt/internal/ast"
	"github.com/silt-lang/silt/internal/check"
	"github.com/silt-lang/silt/internal/elaborate"
	"github.com/silt-lang/silt/internal/gir"
	"github.com/silt-lang/silt/internal/girtypes"
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/solver"
	"github.com/silt-lang/silt/internal/tt"
)

func pos() ast.Pos { return ast.Pos{File: "t.silt", Line: 1, Column: 1} }

// checkedModule runs a module's decls through the real elaborate/check/solve
// pipeline, returning the Signature a Generator runs against — the same
// fixture-building style internal/check/check_test.go uses.
func checkedModule(t *testing.T, decls []ast.Decl) *signature.Signature {
	t.Helper()
	sig := signature.New()
	s := solver.New(sig)
	e := elaborate.New(sig, s)
	c := check.New(sig, e, s)

	mod := &ast.Module{Name: ast.NewQualName("M"), Decls: decls, Pos: pos()}
	if err := c.Module(tt.Context{}, mod); err != nil {
		t.Fatalf("Module: %v", err)
	}
	res := s.Run()
	if len(res.Unsolved) != 0 || len(res.Mismatches) != 0 {
		t.Fatalf("expected a clean solve, got unsolved=%v mismatches=%v", res.Unsolved, res.Mismatches)
	}
	return sig
}

func natDecls() []ast.Decl {
	natRef := &ast.VarExpr{Name: "Nat", Pos: pos()}
	return []ast.Decl{
		&ast.DataSig{Name: ast.NewQualName("Nat"), Type: &ast.TypeExpr{Pos: pos()}, Pos: pos()},
		&ast.DataBody{
			Name: ast.NewQualName("Nat"),
			Constructors: []ast.ConstructorSig{
				{Name: ast.NewQualName("zero"), Type: natRef, Pos: pos()},
				{Name: ast.NewQualName("suc"), Type: &ast.ArrowExpr{Domain: natRef, Codom: natRef, Pos: pos()}, Pos: pos()},
			},
			Pos: pos(),
		},
	}
}

// TestGenerateModuleEmptyModuleHasNoDecls covers spec.md §8 scenario 1: an
// empty module produces a GIR module with zero declarations.
func TestGenerateModuleEmptyModuleHasNoDecls(t *testing.T) {
	sig := checkedModule(t, nil)
	lo := girtypes.NewLowerer(sig)
	gen := New(sig, lo)

	mod, errs := gen.GenerateModule("M", nil)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(mod.Decls()) != 0 {
		t.Fatalf("expected zero declarations, got %d", len(mod.Decls()))
	}
}

// TestGenerateModuleIdentityFunction covers spec.md §8 scenario 2: id's
// entry continuation takes 3 parameters (A, x, a return continuation) and
// returns x via a plain copy_value then apply, with no indirect buffer.
func TestGenerateModuleIdentityFunction(t *testing.T) {
	aRef := &ast.VarExpr{Name: "A", Pos: pos()}
	idTy := &ast.PiExpr{Name: "A", Domain: &ast.TypeExpr{Pos: pos()}, Codom: &ast.ArrowExpr{Domain: aRef, Codom: aRef, Pos: pos()}, Pos: pos()}

	decls := []ast.Decl{
		&ast.Ascription{Name: ast.NewQualName("id"), Type: idTy, Pos: pos()},
		&ast.FunctionClauses{
			Name: ast.NewQualName("id"),
			Clauses: []ast.SurfaceClause{
				{
					Patterns: []ast.SurfacePattern{&ast.PatVar{Name: "A", Pos: pos()}, &ast.PatVar{Name: "x", Pos: pos()}},
					Body:     &ast.VarExpr{Name: "x", Pos: pos()},
					Pos:      pos(),
				},
			},
			Pos: pos(),
		},
	}

	sig := checkedModule(t, decls)
	lo := girtypes.NewLowerer(sig)
	gen := New(sig, lo)

	mod, errs := gen.GenerateModule("M", []string{"id"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	decl, ok := mod.Lookup("id")
	if !ok {
		t.Fatalf("expected a declaration for id")
	}
	entry := decl.Entry()
	if len(entry.Params) != 3 {
		t.Fatalf("expected 3 entry parameters (A, x, retCont), got %d", len(entry.Params))
	}

	out := gir.Print(mod)
	if !strings.Contains(out, "copy_value") {
		t.Fatalf("expected a copy_value op in output, got:\n%s", out)
	}
	apply, ok := entry.Term.(*gir.ApplyTerm)
	if !ok {
		t.Fatalf("expected entry to end in an apply, got %T", entry.Term)
	}
	if apply.Callee != gir.Value(entry.Params[2]) {
		t.Fatalf("expected entry to apply its own return continuation directly")
	}
}

// TestGenerateModulePeanoAddition covers spec.md §8 scenario 3: plus's
// entry switches on its first Nat argument, the zero arm tail-applies the
// return continuation, and the suc arm issues a non-tail recursive call
// (a fresh continuation K) before wrapping the result in suc.
func TestGenerateModulePeanoAddition(t *testing.T) {
	natRef := &ast.VarExpr{Name: "Nat", Pos: pos()}
	plusTy := &ast.PiExpr{Name: "_", Domain: natRef, Codom: &ast.ArrowExpr{Domain: natRef, Codom: natRef, Pos: pos()}, Pos: pos()}

	decls := append(natDecls(),
		&ast.Ascription{Name: ast.NewQualName("plus"), Type: plusTy, Pos: pos()},
		&ast.FunctionClauses{
			Name: ast.NewQualName("plus"),
			Clauses: []ast.SurfaceClause{
				{
					Patterns: []ast.SurfacePattern{&ast.PatConstructor{Name: ast.NewQualName("zero"), Pos: pos()}, &ast.PatVar{Name: "m", Pos: pos()}},
					Body:     &ast.VarExpr{Name: "m", Pos: pos()},
					Pos:      pos(),
				},
				{
					Patterns: []ast.SurfacePattern{
						&ast.PatConstructor{Name: ast.NewQualName("suc"), Args: []ast.SurfacePattern{&ast.PatVar{Name: "n", Pos: pos()}}, Pos: pos()},
						&ast.PatVar{Name: "m", Pos: pos()},
					},
					Body: &ast.ConstructorExpr{
						Name: ast.NewQualName("suc"),
						Args: []ast.Expr{
							&ast.ApplyExpr{
								Head: &ast.VarExpr{Name: "plus", Pos: pos()},
								Elims: []ast.Elim{
									&ast.ApplyArgElim{Arg: &ast.VarExpr{Name: "n", Pos: pos()}, Pos: pos()},
									&ast.ApplyArgElim{Arg: &ast.VarExpr{Name: "m", Pos: pos()}, Pos: pos()},
								},
								Pos: pos(),
							},
						},
						Pos: pos(),
					},
					Pos: pos(),
				},
			},
			Pos: pos(),
		},
	)

	sig := checkedModule(t, decls)
	lo := girtypes.NewLowerer(sig)
	gen := New(sig, lo)

	mod, errs := gen.GenerateModule("M", []string{"plus"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	decl, ok := mod.Lookup("plus")
	if !ok {
		t.Fatalf("expected a declaration for plus")
	}
	entry := decl.Entry()
	if len(entry.Params) != 3 {
		t.Fatalf("expected 3 entry parameters (n, m, retCont), got %d", len(entry.Params))
	}
	sw, ok := entry.Term.(*gir.SwitchConstrTerm)
	if !ok {
		t.Fatalf("expected entry to end in a switch_constr, got %T", entry.Term)
	}
	if len(sw.Arms) != 2 {
		t.Fatalf("expected 2 switch arms (zero, suc), got %d", len(sw.Arms))
	}

	var zeroArm, sucArm *gir.Continuation
	for _, a := range sw.Arms {
		c, ok := a.Target.(*gir.Continuation)
		if !ok {
			t.Fatalf("expected arm target to be a local continuation")
		}
		switch a.Constructor {
		case "zero":
			zeroArm = c
		case "suc":
			sucArm = c
		}
	}
	if zeroArm == nil || sucArm == nil {
		t.Fatalf("expected both zero and suc arms present")
	}

	if _, ok := zeroArm.Term.(*gir.ApplyTerm); !ok {
		t.Fatalf("expected the zero arm to tail-apply the return continuation, got %T", zeroArm.Term)
	}

	sucApply, ok := sucArm.Term.(*gir.ApplyTerm)
	if !ok {
		t.Fatalf("expected the suc arm to end in an apply (recursive call), got %T", sucArm.Term)
	}
	if _, ok := sucApply.Callee.(*gir.PrimOp); !ok {
		t.Fatalf("expected the recursive call's callee to be a function_ref primop, got %T", sucApply.Callee)
	}
	if len(sucApply.Args) != 3 {
		t.Fatalf("expected the recursive call to take 3 args (n, m, a fresh K), got %d", len(sucApply.Args))
	}
	k, ok := sucApply.Args[2].(*gir.Continuation)
	if !ok {
		t.Fatalf("expected the recursive call's return continuation argument to be a local continuation, got %T", sucApply.Args[2])
	}
	if _, ok := k.Term.(*gir.ApplyTerm); !ok {
		t.Fatalf("expected K to wrap the recursive result in suc and tail-apply the return continuation, got %T", k.Term)
	}

	out := gir.Print(mod)
	for _, want := range []string{"data_init", "switch_constr", "function_ref"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func boolDecls() []ast.Decl {
	boolRef := &ast.VarExpr{Name: "Bool", Pos: pos()}
	return []ast.Decl{
		&ast.DataSig{Name: ast.NewQualName("Bool"), Type: &ast.TypeExpr{Pos: pos()}, Pos: pos()},
		&ast.DataBody{
			Name: ast.NewQualName("Bool"),
			Constructors: []ast.ConstructorSig{
				{Name: ast.NewQualName("tt"), Type: boolRef, Pos: pos()},
				{Name: ast.NewQualName("ff"), Type: boolRef, Pos: pos()},
			},
			Pos: pos(),
		},
	}
}

// TestGenerateModuleIfThenElse covers spec.md §8 scenario 4: ite's column
// scoring picks the Bool-headed column, producing one switch_constr with
// two arms, each tail-applying the return continuation with one of the
// two Nat arguments.
func TestGenerateModuleIfThenElse(t *testing.T) {
	boolRef := &ast.VarExpr{Name: "Bool", Pos: pos()}
	natRef := &ast.VarExpr{Name: "Nat", Pos: pos()}
	iteTy := &ast.PiExpr{Name: "_", Domain: boolRef, Codom: &ast.ArrowExpr{Domain: natRef, Codom: &ast.ArrowExpr{Domain: natRef, Codom: natRef, Pos: pos()}, Pos: pos()}, Pos: pos()}

	decls := append(natDecls(), boolDecls()...)
	decls = append(decls,
		&ast.Ascription{Name: ast.NewQualName("ite"), Type: iteTy, Pos: pos()},
		&ast.FunctionClauses{
			Name: ast.NewQualName("ite"),
			Clauses: []ast.SurfaceClause{
				{
					Patterns: []ast.SurfacePattern{&ast.PatConstructor{Name: ast.NewQualName("tt"), Pos: pos()}, &ast.PatVar{Name: "x", Pos: pos()}, &ast.PatWild{Pos: pos()}},
					Body:     &ast.VarExpr{Name: "x", Pos: pos()},
					Pos:      pos(),
				},
				{
					Patterns: []ast.SurfacePattern{&ast.PatConstructor{Name: ast.NewQualName("ff"), Pos: pos()}, &ast.PatWild{Pos: pos()}, &ast.PatVar{Name: "y", Pos: pos()}},
					Body:     &ast.VarExpr{Name: "y", Pos: pos()},
					Pos:      pos(),
				},
			},
			Pos: pos(),
		},
	)

	sig := checkedModule(t, decls)
	lo := girtypes.NewLowerer(sig)
	gen := New(sig, lo)

	mod, errs := gen.GenerateModule("M", []string{"ite"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	decl, ok := mod.Lookup("ite")
	if !ok {
		t.Fatalf("expected a declaration for ite")
	}
	entry := decl.Entry()
	if len(entry.Params) != 4 {
		t.Fatalf("expected 4 entry parameters (cond, x, y, retCont), got %d", len(entry.Params))
	}
	sw, ok := entry.Term.(*gir.SwitchConstrTerm)
	if !ok {
		t.Fatalf("expected entry to end in a switch_constr, got %T", entry.Term)
	}
	if sw.Scrutinee != gir.Value(entry.Params[0]) {
		t.Fatalf("expected column 0 (the Bool argument) to be the scrutinee")
	}
	if len(sw.Arms) != 2 {
		t.Fatalf("expected 2 arms (tt, ff), got %d", len(sw.Arms))
	}
	for _, a := range sw.Arms {
		c := a.Target.(*gir.Continuation)
		if _, ok := c.Term.(*gir.ApplyTerm); !ok {
			t.Fatalf("expected arm %s to tail-apply the return continuation, got %T", a.Constructor, c.Term)
		}
	}
}

// TestGenerateModuleSkipsFunctionWithUnsolvedMeta covers spec.md §8
// scenario 5: GIR emission is skipped for a function whose body still
// references an unsolved metavariable, reported instead of emitted.
func TestGenerateModuleSkipsFunctionWithUnsolvedMeta(t *testing.T) {
	sig := signature.New()
	natTerm := tt.D(tt.OpenedName{Key: "Nat"})
	if err := sig.AddData("Nat", nil, tt.Type{}); err != nil {
		t.Fatalf("AddData: %v", err)
	}
	if err := sig.AddConstructor("zero", "Nat", 0, signature.Contextual{Inside: natTerm}); err != nil {
		t.Fatalf("AddConstructor: %v", err)
	}
	if err := sig.AddAscription("ghost", nil, natTerm); err != nil {
		t.Fatalf("AddAscription: %v", err)
	}
	hole := &ast.VarExpr{Name: "?ghost-hole", Pos: pos()}
	m := sig.AddMeta(natTerm, hole)
	if err := sig.AddFunctionClauses("ghost", signature.Open, []tt.Clause{
		{Body: tt.M(m)},
	}); err != nil {
		t.Fatalf("AddFunctionClauses: %v", err)
	}

	lo := girtypes.NewLowerer(sig)
	gen := New(sig, lo)
	mod, errs := gen.GenerateModule("M", []string{"ghost"})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
	le, ok := errs[0].(*LoweringError)
	if !ok || le.Code != "MET001" {
		t.Fatalf("expected a MET001 LoweringError, got %v", errs[0])
	}
	if le.Origin != hole {
		t.Fatalf("expected the error to carry the meta's origin node")
	}
	stableID := le.StableID()
	if stableID == "" {
		t.Fatalf("expected a non-empty stable id derived from the meta's origin")
	}
	enc := le.Encode(string(stableID))
	if enc.SID != string(stableID) || enc.SID == "unknown" {
		t.Fatalf("expected the encoded diagnostic's SID to carry the computed stable id, got %q", enc.SID)
	}
	if enc.Phase != "lower" || enc.Code != "MET001" {
		t.Fatalf("expected phase=lower code=MET001, got phase=%s code=%s", enc.Phase, enc.Code)
	}
	if _, ok := mod.Lookup("ghost"); ok {
		t.Fatalf("expected ghost to be skipped, not emitted")
	}
}
