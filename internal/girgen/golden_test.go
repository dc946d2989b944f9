package girgen

import (
	"testing"

	"github.com/silt-lang/silt/internal/ast"
	"github.com/silt-lang/silt/internal/gir"
	"github.com/silt-lang/silt/internal/girtypes"
	"github.com/silt-lang/silt/testutil"
)

// TestGoldenGIRTextualDumps pins gir.Print's bit-exact rendering (spec.md
// §6) for the identity, Peano-addition and if-then-else scenarios of §8.2,
// §8.3 and §8.4 against a committed golden file, the same
// CompareWithGolden/UPDATE_GOLDENS workflow testutil/golden.go documents.
// A fresh checkout has no baseline yet: run
//
//	UPDATE_GOLDENS=true go test ./internal/girgen/...
//
// once to seed testdata/girgen/*.golden.json, then commit it.
func TestGoldenGIRTextualDumps(t *testing.T) {
	cases := []struct {
		name  string
		decls func() []ast.Decl
		fn    string
	}{
		{"identity", identityDecls, "id"},
		{"peano_addition", peanoAdditionDecls, "plus"},
		{"if_then_else", ifThenElseDecls, "ite"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			sig := checkedModule(t, c.decls())
			lo := girtypes.NewLowerer(sig)
			gen := New(sig, lo)

			mod, errs := gen.GenerateModule("M", []string{c.fn})
			if len(errs) != 0 {
				t.Fatalf("expected no errors, got %v", errs)
			}
			testutil.CompareWithGolden(t, "girgen", c.name, gir.Print(mod))
		})
	}
}

// identityDecls builds spec.md §8.2's id : (A:Type)->A->A.
func identityDecls() []ast.Decl {
	aRef := &ast.VarExpr{Name: "A", Pos: pos()}
	idTy := &ast.PiExpr{Name: "A", Domain: &ast.TypeExpr{Pos: pos()}, Codom: &ast.ArrowExpr{Domain: aRef, Codom: aRef, Pos: pos()}, Pos: pos()}
	return []ast.Decl{
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
}

// peanoAdditionDecls builds spec.md §8.3's Nat plus two-clause recursive
// plus : Nat->Nat->Nat.
func peanoAdditionDecls() []ast.Decl {
	natRef := &ast.VarExpr{Name: "Nat", Pos: pos()}
	plusTy := &ast.PiExpr{Name: "_", Domain: natRef, Codom: &ast.ArrowExpr{Domain: natRef, Codom: natRef, Pos: pos()}, Pos: pos()}

	return append(natDecls(),
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
}

// ifThenElseDecls builds spec.md §8.4's ite : Bool->Nat->Nat->Nat.
func ifThenElseDecls() []ast.Decl {
	boolRef := &ast.VarExpr{Name: "Bool", Pos: pos()}
	natRef := &ast.VarExpr{Name: "Nat", Pos: pos()}
	iteTy := &ast.PiExpr{Name: "_", Domain: boolRef, Codom: &ast.ArrowExpr{Domain: natRef, Codom: &ast.ArrowExpr{Domain: natRef, Codom: natRef, Pos: pos()}, Pos: pos()}, Pos: pos()}

	decls := append(natDecls(), boolDecls()...)
	return append(decls,
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
}
