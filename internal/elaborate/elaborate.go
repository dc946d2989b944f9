// Package elaborate implements the bidirectional elaborator of spec.md
// §4.3: surface syntax in, core terms out, every potential mismatch routed
// through a fresh meta and a constraint rather than a direct failure. The
// elaborator never runs the solver inline, never prunes, and never itself
// decides that a term is ill-typed — that judgment belongs solely to
// whatever later drains the constraint queue (spec.md §4.3 Non-goals).
//
// The dispatch shape mirrors the teacher's own `normalize` in
// internal/elaborate/elaborate.go (sunholo/ailang): one struct holding the
// job's shared state, one big type-switch entry point, one method per
// surface node kind.
package elaborate

import (
	"fmt"

	"github.com/silt-lang/silt/internal/ast"
	"github.com/silt-lang/silt/internal/constraint"
	"github.com/silt-lang/silt/internal/errors"
	"github.com/silt-lang/silt/internal/sid"
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/solver"
	"github.com/silt-lang/silt/internal/tt"
)

// StructuralError reports ill-structuredness the elaborator can detect
// directly — an unbound name, a constructor applied to the wrong number of
// arguments — as distinct from a type mismatch, which is never an error at
// all at this stage (spec.md §4.3 Non-goals): it becomes a constraint the
// solver may or may not later resolve.
type StructuralError struct {
	Code    string
	Message string
	Pos     ast.Pos
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
}

// StableID computes e's content-addressed diagnostic id from Pos, the same
// file/offset/kind hash internal/girgen.LoweringError derives from a meta's
// origin node.
func (e *StructuralError) StableID() sid.SID {
	return sid.NewSID(e.Pos.File, e.Pos.Offset, e.Pos.Offset, e.Code, nil)
}

// Encode projects a StructuralError into the diagnostics sink's wire shape.
// idStr is normally string(e.StableID()).
func (e *StructuralError) Encode(idStr string) errors.Encoded {
	return errors.NewStructural(idStr, e.Code, e.Message, nil).
		WithSourceSpan(errors.FormatSourceSpan(e.Pos.File, e.Pos.Line, e.Pos.Column))
}

// Elaborator holds the state one elaboration job shares across every node
// it visits: the Signature it reads definitions from and mints metas in,
// and the Solver it feeds constraints to. It carries no notion of "current
// context" — every method receives its own ctx explicitly, matching TT's
// own explicit-context discipline.
type Elaborator struct {
	sig *signature.Signature
	slv *solver.Solver

	trace    bool
	traceBuf []string
}

// New returns an Elaborator over sig, feeding constraints to slv.
func New(sig *signature.Signature, slv *solver.Solver) *Elaborator {
	return &Elaborator{sig: sig, slv: slv}
}

// Trace turns the in-memory trace log on or off (SPEC_FULL.md "Structured
// logging": no logging library is wired in here, since every interesting
// event is already a constraint or a meta the Signature/Solver can replay;
// this is the teacher's SetDebugMode shape applied to that replay log
// instead of a line-oriented logger).
func (e *Elaborator) Trace(enabled bool) { e.trace = enabled }

// TraceLog returns every trace line recorded since the last Trace(true).
func (e *Elaborator) TraceLog() []string { return e.traceBuf }

func (e *Elaborator) trc(format string, args ...interface{}) {
	if e.trace {
		e.traceBuf = append(e.traceBuf, fmt.Sprintf(format, args...))
	}
}

func (e *Elaborator) structuralf(pos ast.Pos, code, format string, args ...interface{}) error {
	return &StructuralError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Elaborate is the single entry point: check expr against expected under
// ctx, producing a core term (spec.md §4.3).
func (e *Elaborator) Elaborate(ctx tt.Context, expected tt.Term, expr ast.Expr) (tt.Term, error) {
	switch x := expr.(type) {
	case *ast.TypeExpr:
		return e.elaborateType(ctx, expected, x)
	case *ast.MetaExpr:
		return e.elaborateMeta(ctx, expected, x)
	case *ast.PiExpr:
		return e.elaboratePi(ctx, expected, x)
	case *ast.ArrowExpr:
		return e.elaborateArrow(ctx, expected, x)
	case *ast.LambdaExpr:
		return e.elaborateLambda(ctx, expected, x)
	case *ast.EqualExpr:
		return e.elaborateEqual(ctx, expected, x)
	case *ast.ReflExpr:
		return e.elaborateRefl(ctx, expected, x)
	case *ast.ConstructorExpr:
		return e.elaborateConstructor(ctx, expected, x)
	case *ast.ApplyExpr:
		return e.elaborateApply(ctx, expected, x)
	case *ast.VarExpr:
		return e.elaborateVar(ctx, expected, x)
	case *ast.LetExpr:
		return e.elaborateLet(ctx, expected, x)
	default:
		return nil, e.structuralf(expr.Position(), errors.STR003, "unsupported expression form %T", expr)
	}
}

// freshMetaTerm mints a meta whose Signature-stored type is ty closed over
// every binding in ctx, and returns it applied back to ctx's own variables
// so the result behaves exactly as if the meta had been created directly
// under Γ (spec.md §4.3's metas are always "in Γ"; the Signature only
// stores closed types, see tt.Context.GeneralizeType).
func (e *Elaborator) freshMetaTerm(ctx tt.Context, ty tt.Term, origin ast.Node) tt.Term {
	closed := ctx.GeneralizeType(ty)
	id := e.sig.AddMeta(closed, origin)
	e.trc("meta %s : %s (under %d bindings)", id, closed, ctx.Len())
	return tt.Apply{Head: tt.MetaHead{ID: id}, Elims: ctx.Spine()}
}

// expect is the elaborator's only channel for reporting a possible type
// mismatch (spec.md §4.3 "expect"): it never compares expected and given
// itself. It mints a fresh meta of the expected type, emits a heterogeneous
// equation tying it to the given term of the given type, and hands back the
// meta — callers use the meta downstream, not term, so a later solver
// failure doesn't require this call site to unwind anything.
func (e *Elaborator) expect(ctx tt.Context, expected, given, term tt.Term, origin ast.Node) tt.Term {
	result := e.freshMetaTerm(ctx, expected, origin)
	e.slv.Emit(constraint.Equal{Ctx: ctx, Ty1: expected, T1: result, Ty2: given, T2: term})
	return result
}

// instantiateTelescope mints one fresh meta per entry of tel, threading a
// substitution so each entry's type sees the metas already generated for
// the entries before it (the same accumulate-then-substitute shape
// tt.WHNF's buildClauseSubstitution uses for clause patterns). It returns
// the metas in telescope order together with the substitution that makes
// tel's Inside type (or any later Π prefix expressed relative to tel)
// concrete.
func (e *Elaborator) instantiateTelescope(ctx tt.Context, tel signature.Telescope, origin ast.Node) ([]tt.Term, tt.Substitution) {
	metas := make([]tt.Term, len(tel))
	sub := tt.Id
	for i, entry := range tel {
		ty := tt.Apply_(sub, entry.Type)
		m := e.freshMetaTerm(ctx, ty, origin)
		metas[i] = m
		sub = tt.Instantiate(m, sub)
	}
	return metas, sub
}

func (e *Elaborator) elaborateType(ctx tt.Context, expected tt.Term, x *ast.TypeExpr) (tt.Term, error) {
	return e.expect(ctx, expected, tt.Type{}, tt.Type{}, x), nil
}

func (e *Elaborator) elaborateMeta(ctx tt.Context, expected tt.Term, x *ast.MetaExpr) (tt.Term, error) {
	// A user-written hole is already exactly "a fresh meta of type
	// expected in Γ" — no expect wrapping needed, since there is no given
	// term to tie it to.
	return e.freshMetaTerm(ctx, expected, x), nil
}

func (e *Elaborator) elaboratePi(ctx tt.Context, expected tt.Term, x *ast.PiExpr) (tt.Term, error) {
	dom, err := e.Elaborate(ctx, tt.Type{}, x.Domain)
	if err != nil {
		return nil, err
	}
	cod, err := e.Elaborate(ctx.Extend(x.Name, dom), tt.Type{}, x.Codom)
	if err != nil {
		return nil, err
	}
	result := tt.Pi{Domain: dom, Codomain: cod}
	return e.expect(ctx, expected, tt.Type{}, result, x), nil
}

func (e *Elaborator) elaborateArrow(ctx tt.Context, expected tt.Term, x *ast.ArrowExpr) (tt.Term, error) {
	return e.elaboratePi(ctx, expected, &ast.PiExpr{
		Name:   "_",
		Domain: x.Domain,
		Codom:  x.Codom,
		Pos:    x.Pos,
	})
}

// elaborateLambda implements spec.md §4.3's Lambda rule. An annotated
// binder's domain is elaborated directly (it's already fully known); an
// unannotated one gets a fresh Type-typed meta instead. Either way the
// codomain is a fresh Type-typed meta introduced under the lambda's own
// extended context, exercising the pattern-meta machinery so later
// unification can pin it down to whatever the body's actual type turns out
// to be.
func (e *Elaborator) elaborateLambda(ctx tt.Context, expected tt.Term, x *ast.LambdaExpr) (tt.Term, error) {
	var dom tt.Term
	if x.Type != nil {
		var err error
		dom, err = e.Elaborate(ctx, tt.Type{}, x.Type)
		if err != nil {
			return nil, err
		}
	} else {
		dom = e.freshMetaTerm(ctx, tt.Type{}, x)
	}
	bodyCtx := ctx.Extend(x.Name, dom)
	cod := e.freshMetaTerm(bodyCtx, tt.Type{}, x)
	body, err := e.Elaborate(bodyCtx, cod, x.Body)
	if err != nil {
		return nil, err
	}
	result := tt.Lambda{Body: body}
	given := tt.Pi{Domain: dom, Codomain: cod}
	return e.expect(ctx, expected, given, result, x), nil
}

func (e *Elaborator) elaborateEqual(ctx tt.Context, expected tt.Term, x *ast.EqualExpr) (tt.Term, error) {
	ty, err := e.Elaborate(ctx, tt.Type{}, x.Type)
	if err != nil {
		return nil, err
	}
	lhs, err := e.Elaborate(ctx, ty, x.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := e.Elaborate(ctx, ty, x.RHS)
	if err != nil {
		return nil, err
	}
	result := tt.Equal{Ty: ty, LHS: lhs, RHS: rhs}
	return e.expect(ctx, expected, tt.Type{}, result, x), nil
}

func (e *Elaborator) elaborateRefl(ctx tt.Context, expected tt.Term, x *ast.ReflExpr) (tt.Term, error) {
	// refl's actual type is `a ≡_A a` for a fresh A and a fresh a of type
	// A: both sides are metas, left to the solver to pin down once
	// `expected` itself resolves to a concrete Equal.
	a := e.freshMetaTerm(ctx, tt.Type{}, x)
	v := e.freshMetaTerm(ctx, a, x)
	given := tt.Equal{Ty: a, LHS: v, RHS: v}
	return e.expect(ctx, expected, given, tt.Refl{}, x), nil
}

// elaborateConstructorRef elaborates a (possibly bare, possibly applied)
// reference to a data or record constructor by name: spec.md §4.3's
// Constructor rule, generalized to cover both `C(e1,...,en)` surface syntax
// and a nullary constructor referenced as a bare identifier.
func (e *Elaborator) elaborateConstructorRef(ctx tt.Context, expected tt.Term, name string, argExprs []ast.Expr, origin ast.Node) (tt.Term, error) {
	d, ok := e.sig.LookupDefinition(name)
	if !ok || d.Kind != signature.KindDataConstructor {
		return nil, e.structuralf(origin.Position(), errors.STR002, "unknown constructor %q", name)
	}
	telescopeMetas, sub := e.instantiateTelescope(ctx, d.Type.Telescope, origin)
	cur := tt.Apply_(sub, d.Type.Inside)

	argTerms := make([]tt.Term, 0, len(argExprs))
	for _, argExpr := range argExprs {
		pi, isPi := cur.(tt.Pi)
		if !isPi {
			return nil, e.structuralf(origin.Position(), errors.STR004,
				"constructor %q applied to too many arguments", name)
		}
		argTerm, err := e.Elaborate(ctx, pi.Domain, argExpr)
		if err != nil {
			return nil, err
		}
		argTerms = append(argTerms, argTerm)
		cur = tt.Apply_(tt.Instantiate(argTerm, tt.Id), pi.Codomain)
	}
	if _, stillPi := cur.(tt.Pi); stillPi {
		return nil, e.structuralf(origin.Position(), errors.STR004,
			"constructor %q applied to too few arguments", name)
	}

	term := tt.Constructor{Name: tt.OpenedName{Key: name, Args: telescopeMetas}, Args: argTerms}
	return e.expect(ctx, expected, cur, term, origin), nil
}

func (e *Elaborator) elaborateConstructor(ctx tt.Context, expected tt.Term, x *ast.ConstructorExpr) (tt.Term, error) {
	return e.elaborateConstructorRef(ctx, expected, x.Name.String(), x.Args, x)
}

// elaborateVar resolves a bare identifier: a local binding first, then a
// Signature entry. Definitions and nullary data/record type references go
// through the same telescope-instantiation shape as a constructor, since
// they are all Contextual values (spec.md §3).
func (e *Elaborator) elaborateVar(ctx tt.Context, expected tt.Term, x *ast.VarExpr) (tt.Term, error) {
	if idx, ty, ok := ctx.LookupName(x.Name); ok {
		return e.expect(ctx, expected, ty, tt.V(x.Name, idx), x), nil
	}
	d, ok := e.sig.LookupDefinition(x.Name)
	if !ok {
		return nil, e.structuralf(x.Pos, errors.STR001, "unbound variable %q", x.Name)
	}
	switch d.Kind {
	case signature.KindPostulate, signature.KindFunction, signature.KindData, signature.KindRecord:
		metas, sub := e.instantiateTelescope(ctx, d.Type.Telescope, x)
		ty := tt.Apply_(sub, d.Type.Inside)
		term := tt.D(tt.OpenedName{Key: x.Name, Args: metas})
		return e.expect(ctx, expected, ty, term, x), nil
	default:
		// Constructors are always written via the dedicated C(args...)
		// surface form (ast.ConstructorExpr), never referenced bare, so a
		// scope-checked frontend never produces this case.
		return nil, e.structuralf(x.Pos, errors.STR003, "%q cannot be referenced as a value", x.Name)
	}
}

// elaborateLet erases `let x = e1 in e2` at elaboration time, since TT has
// no Let term former: e1 is inferred against a fresh meta, e2 is checked
// under the extended context against expected shifted past the new binder,
// and the result is e1 substituted directly into e2's elaboration, which
// both removes the binder again and keeps e2's type exactly `expected`.
func (e *Elaborator) elaborateLet(ctx tt.Context, expected tt.Term, x *ast.LetExpr) (tt.Term, error) {
	valueTy := e.freshMetaTerm(ctx, tt.Type{}, x)
	value, err := e.Elaborate(ctx, valueTy, x.Value)
	if err != nil {
		return nil, err
	}
	bodyCtx := ctx.Extend(x.Name, valueTy)
	expectedUnderX := tt.Apply_(tt.Weaken(1, tt.Id), expected)
	body, err := e.Elaborate(bodyCtx, expectedUnderX, x.Body)
	if err != nil {
		return nil, err
	}
	return tt.Apply_(tt.Instantiate(value, tt.Id), body), nil
}

// elaborateApply implements spec.md §4.3's Application rule: the spine is
// peeled from the right, each layer introducing a fresh domain/codomain
// meta pair to stand in for "whatever Π type the accumulated head turns out
// to have", deferring the actual check to expect.
func (e *Elaborator) elaborateApply(ctx tt.Context, expected tt.Term, x *ast.ApplyExpr) (tt.Term, error) {
	term, given, err := e.elaborateSpine(ctx, x.Head, x.Elims, x)
	if err != nil {
		return nil, err
	}
	return e.expect(ctx, expected, given, term, x), nil
}

// elaborateSpine infers a term and its type for a head applied to a prefix
// of elims, recursing on a shorter prefix first (spec.md §4.3: "elaborate
// recursively right-to-left"). The base case has no natural expected type
// for the head, so it checks the head against a fresh meta standing for
// "whatever type this head turns out to have".
func (e *Elaborator) elaborateSpine(ctx tt.Context, headExpr ast.Expr, elims []ast.Elim, origin ast.Node) (term tt.Term, given tt.Term, err error) {
	if len(elims) == 0 {
		ty := e.freshMetaTerm(ctx, tt.Type{}, origin)
		t, err := e.Elaborate(ctx, ty, headExpr)
		if err != nil {
			return nil, nil, err
		}
		return t, ty, nil
	}
	innerTerm, innerGiven, err := e.elaborateSpine(ctx, headExpr, elims[:len(elims)-1], origin)
	if err != nil {
		return nil, nil, err
	}
	switch el := elims[len(elims)-1].(type) {
	case *ast.ApplyArgElim:
		dm := e.freshMetaTerm(ctx, tt.Type{}, origin)
		cd := e.freshMetaTerm(ctx.Extend("_", dm), tt.Type{}, origin)
		headTerm := e.expect(ctx, tt.Pi{Domain: dm, Codomain: cd}, innerGiven, innerTerm, origin)
		argTerm, err := e.Elaborate(ctx, dm, el.Arg)
		if err != nil {
			return nil, nil, err
		}
		combined := tt.Eliminate(headTerm, tt.ApplyArg{Arg: argTerm})
		resultTy := tt.Apply_(tt.Instantiate(argTerm, tt.Id), cd)
		return combined, resultTy, nil
	case *ast.ProjectElim:
		d, ok := e.sig.LookupDefinition(el.Field)
		if !ok || d.Kind != signature.KindProjection {
			return nil, nil, e.structuralf(origin.Position(), errors.STR005, "unknown field %q", el.Field)
		}
		metas, sub := e.instantiateTelescope(ctx, d.Type.Telescope, origin)
		projTy, ok := tt.Apply_(sub, d.Type.Inside).(tt.Pi)
		if !ok {
			return nil, nil, e.structuralf(origin.Position(), errors.STR005,
				"field %q does not have a record-to-value type", el.Field)
		}
		recordTerm := e.expect(ctx, projTy.Domain, innerGiven, innerTerm, origin)
		combined := tt.Eliminate(recordTerm, tt.Project{Field: tt.OpenedName{Key: el.Field, Args: metas}, Index: d.Index})
		resultTy := tt.Apply_(tt.Instantiate(recordTerm, tt.Id), projTy.Codomain)
		return combined, resultTy, nil
	default:
		return nil, nil, e.structuralf(origin.Position(), errors.STR003, "unsupported eliminator form %T", el)
	}
}
