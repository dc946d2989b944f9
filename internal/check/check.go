// Package check implements the thin declaration-checking layer over
// internal/elaborate and internal/solver (spec.md §4.5): it walks declared
// modules, installs signatures, checks bodies against them, and turns
// surface pattern vectors into tt.Clause values.
package check

import (
	"fmt"

	"github.com/silt-lang/silt/internal/ast"
	"github.com/silt-lang/silt/internal/elaborate"
	"github.com/silt-lang/silt/internal/errors"
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/solver"
	"github.com/silt-lang/silt/internal/tt"
)

// Checker holds the shared state a checking job needs: the Signature it
// installs definitions into, the Elaborator it delegates expression
// checking to, and the Solver that backs both. One Checker checks one
// compilation unit.
//
// Elaborate never runs the solver itself (spec.md §4.3): every type it
// hands back is, in general, an opaque meta application standing for the
// real value until the work-list drains. But the check phase routinely
// needs to inspect a just-elaborated type's actual shape — how many Π
// layers a constructor's type has, whether a pattern's scrutinee type has
// reduced to a data head — so it drains the solver eagerly at those
// points via whnf/whnfPi rather than deferring to one final Run() the way
// a caller only interested in yes/no well-typedness could.
type Checker struct {
	sig  *signature.Signature
	elab *elaborate.Elaborator
	slv  *solver.Solver
}

func New(sig *signature.Signature, elab *elaborate.Elaborator, slv *solver.Solver) *Checker {
	return &Checker{sig: sig, elab: elab, slv: slv}
}

func (c *Checker) structuralf(pos ast.Pos, code, format string, args ...interface{}) error {
	return &elaborate.StructuralError{Code: code, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// whnf drains the solver's work-list, then reduces t to weak head normal
// form against the (now more fully solved) signature.
func (c *Checker) whnf(t tt.Term) tt.Blocked {
	c.slv.Run()
	return tt.WHNF(c.sig, t)
}

// whnfPi reduces t and reports whether it has settled into a Π type.
func (c *Checker) whnfPi(t tt.Term) (tt.Pi, bool) {
	nb, ok := c.whnf(t).(tt.NotBlocked)
	if !ok {
		return tt.Pi{}, false
	}
	pi, ok := nb.Term.(tt.Pi)
	return pi, ok
}

// Module checks mod's own parameter telescope left to right, then checks
// every declaration under the resulting context, finally recording the
// module itself in the signature (spec.md §4.5 "module").
func (c *Checker) Module(ctx tt.Context, mod *ast.Module) error {
	bodyCtx, _, err := c.elaborateParams(ctx, mod.Telescope)
	if err != nil {
		return err
	}
	if err := c.installSignatures(bodyCtx, mod.Decls); err != nil {
		return err
	}
	if err := c.checkBodies(bodyCtx, mod.Decls); err != nil {
		return err
	}
	var inside []string
	for _, d := range mod.Decls {
		if name, ok := declaredName(d); ok {
			inside = append(inside, name)
		}
	}
	return c.sig.AddModule(mod.Name.String(), inside)
}

// declaredName returns the single qualified name a declaration introduces
// into the enclosing module's Inside list, for the forms that introduce
// exactly one (bodies and nested modules don't introduce new names of
// their own — they supply content for a name a signature decl already
// introduced, or recurse into their own module record).
func declaredName(d ast.Decl) (string, bool) {
	switch d := d.(type) {
	case *ast.DataSig:
		return d.Name.String(), true
	case *ast.RecordSig:
		return d.Name.String(), true
	case *ast.Postulate:
		return d.Name.String(), true
	case *ast.Ascription:
		return d.Name.String(), true
	case *ast.NestedModule:
		return d.Inner.Name.String(), true
	default:
		return "", false
	}
}

// elaborateParams elaborates a surface parameter telescope left to right,
// each entry's type checked against Type under the accumulated context,
// returning both the extended context and the parallel signature.Telescope
// (spec.md §3 "Contextual value": later entries reference earlier ones by
// de Bruijn index, the same convention tt.Context.entries already uses).
func (c *Checker) elaborateParams(ctx tt.Context, params []ast.Param) (tt.Context, signature.Telescope, error) {
	tel := make(signature.Telescope, 0, len(params))
	cur := ctx
	for _, p := range params {
		ty, err := c.elab.Elaborate(cur, tt.Type{}, p.Type)
		if err != nil {
			return tt.Context{}, nil, err
		}
		tel = append(tel, signature.TelescopeEntry{Name: p.Name, Type: ty})
		cur = cur.Extend(p.Name, ty)
	}
	return cur, tel, nil
}

// installSignatures is the first of the two passes a module's
// declarations go through: every signature-only form (data/record
// signature, postulate, ascription) is recorded before any body is
// checked, so forward references between sibling declarations resolve
// (SPEC_FULL.md's two-pass supplement). Nested modules are checked in
// full here, since they are self-contained units.
func (c *Checker) installSignatures(ctx tt.Context, decls []ast.Decl) error {
	for _, decl := range decls {
		switch d := decl.(type) {
		case *ast.DataSig:
			localCtx, tel, err := c.elaborateParams(ctx, d.Tele)
			if err != nil {
				return err
			}
			ty, err := c.elab.Elaborate(localCtx, tt.Type{}, d.Type)
			if err != nil {
				return err
			}
			if err := c.sig.AddData(d.Name.String(), tel, ty); err != nil {
				return c.structuralf(d.Pos, errors.STR006, "%s", err)
			}
		case *ast.RecordSig:
			localCtx, tel, err := c.elaborateParams(ctx, d.Tele)
			if err != nil {
				return err
			}
			ty, err := c.elab.Elaborate(localCtx, tt.Type{}, d.Type)
			if err != nil {
				return err
			}
			if err := c.sig.AddRecord(d.Name.String(), tel, ty); err != nil {
				return c.structuralf(d.Pos, errors.STR006, "%s", err)
			}
		case *ast.Postulate:
			ty, err := c.elab.Elaborate(ctx, tt.Type{}, d.Type)
			if err != nil {
				return err
			}
			if err := c.sig.AddPostulate(d.Name.String(), nil, ty); err != nil {
				return c.structuralf(d.Pos, errors.STR006, "%s", err)
			}
		case *ast.Ascription:
			ty, err := c.elab.Elaborate(ctx, tt.Type{}, d.Type)
			if err != nil {
				return err
			}
			if err := c.sig.AddAscription(d.Name.String(), nil, ty); err != nil {
				return c.structuralf(d.Pos, errors.STR006, "%s", err)
			}
		case *ast.DataBody, *ast.RecordBody, *ast.FunctionClauses:
			// handled in the second pass, once every signature is in place.
		case *ast.NestedModule:
			if err := c.Module(ctx, d.Inner); err != nil {
				return err
			}
		default:
			return c.structuralf(decl.Position(), errors.STR003, "unsupported declaration form %T", decl)
		}
	}
	return nil
}

// checkBodies is the second pass: data/record bodies and function clauses,
// all of which need their matching signature already installed.
func (c *Checker) checkBodies(ctx tt.Context, decls []ast.Decl) error {
	for _, decl := range decls {
		switch d := decl.(type) {
		case *ast.DataBody:
			if err := c.dataBody(ctx, d); err != nil {
				return err
			}
		case *ast.RecordBody:
			if err := c.recordBody(ctx, d); err != nil {
				return err
			}
		case *ast.FunctionClauses:
			if err := c.functionClauses(ctx, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// paramContext rebuilds the context a parent telescope describes, by
// straightforward Extend over its already-elaborated entries (no
// re-elaboration: this is the same telescope installSignatures already
// checked once).
func paramContext(ctx tt.Context, tel signature.Telescope) tt.Context {
	cur := ctx
	for _, e := range tel {
		cur = cur.Extend(e.Name, e.Type)
	}
	return cur
}

// ctxVars returns the bound variables a context introduced beyond base,
// outermost first, matching the order a Telescope built from the same
// entries would list them.
func ctxVars(ctx tt.Context, base int) []tt.Term {
	n := ctx.Len()
	vars := make([]tt.Term, 0, n-base)
	for pos := base; pos < n; pos++ {
		idx := n - 1 - pos
		entry, _ := ctx.Lookup(idx)
		vars = append(vars, tt.V(entry.Name, idx))
	}
	return vars
}

// dataBody opens the parent data type's own telescope into bound
// variables, then checks each constructor's declared type against Type
// under it, registering the constructor with the length of its own
// Π-prefix as arity (spec.md §4.5 "data body").
func (c *Checker) dataBody(ctx tt.Context, d *ast.DataBody) error {
	parent, ok := c.sig.LookupDefinition(d.Name.String())
	if !ok || parent.Kind != signature.KindData {
		return c.structuralf(d.Pos, errors.STR007, "constructors for %q have no matching data signature", d.Name)
	}
	localCtx := paramContext(ctx, parent.Type.Telescope)
	for _, ctorSig := range d.Constructors {
		ctorTy, err := c.elab.Elaborate(localCtx, tt.Type{}, ctorSig.Type)
		if err != nil {
			return err
		}
		arity := 0
		cur := ctorTy
		for {
			pi, ok := c.whnfPi(cur)
			if !ok {
				break
			}
			arity++
			cur = pi.Codomain
		}
		err = c.sig.AddConstructor(ctorSig.Name.String(), d.Name.String(), arity,
			signature.Contextual{Telescope: parent.Type.Telescope, Inside: ctorTy})
		if err != nil {
			return c.structuralf(ctorSig.Pos, errors.STR006, "%s", err)
		}
	}
	return nil
}

// foldPi builds the Π-chain over tel ending in tail, outermost entry
// first — the same fold GeneralizeType performs over a whole context,
// here applied to a standalone telescope slice instead.
func foldPi(tel signature.Telescope, tail tt.Term) tt.Term {
	result := tail
	for pos := len(tel) - 1; pos >= 0; pos-- {
		result = tt.Pi{Domain: tel[pos].Type, Codomain: result}
	}
	return result
}

// recordBody opens the parent record's telescope, checks each field's
// declared type against Type (fields form their own telescope, later
// fields referencing earlier ones by plain bound variable), synthesizes
// one projection per field — contextually Π self. field, with every
// earlier field in the field's type rewritten to project self instead of
// referencing the raw field variable — and introduces the single
// constructor whose domain is the field telescope and codomain the
// (weakened) record type (spec.md §4.5 "record body").
func (c *Checker) recordBody(ctx tt.Context, d *ast.RecordBody) error {
	parent, ok := c.sig.LookupDefinition(d.Name.String())
	if !ok || parent.Kind != signature.KindRecord {
		return c.structuralf(d.Pos, errors.STR007, "fields for %q have no matching record signature", d.Name)
	}
	localCtx := paramContext(ctx, parent.Type.Telescope)
	parentVars := ctxVars(localCtx, ctx.Len())
	recordTy := tt.D(tt.OpenedName{Key: d.Name.String(), Args: parentVars})

	fieldCtx := localCtx
	fieldTel := make(signature.Telescope, 0, len(d.Fields))
	for _, f := range d.Fields {
		ty, err := c.elab.Elaborate(fieldCtx, tt.Type{}, f.Type)
		if err != nil {
			return err
		}
		fieldTel = append(fieldTel, signature.TelescopeEntry{Name: f.Name, Type: ty})
		fieldCtx = fieldCtx.Extend(f.Name, ty)
	}

	// The constructor's domain is the field telescope verbatim; its
	// codomain is the record type reweakened past every field binder.
	weakenedRecordTy := tt.Apply_(tt.Weaken(len(fieldTel), tt.Id), recordTy)
	ctorInside := foldPi(fieldTel, weakenedRecordTy)
	err := c.sig.AddConstructor(d.Constructor.String(), d.Name.String(), len(fieldTel),
		signature.Contextual{Telescope: parent.Type.Telescope, Inside: ctorInside})
	if err != nil {
		return c.structuralf(d.Pos, errors.STR006, "%s", err)
	}

	// Projections: proj_i : Π self:R. FieldType_i[w_j := proj_j(self)]_{j<i}.
	// subst accumulates the earlier-field-to-projection rewrite, extended
	// after each projection exactly like instantiateTelescope accumulates
	// meta substitutions.
	subst := tt.Id
	for i, f := range d.Fields {
		fieldTypeUnderSelf := tt.Apply_(subst, fieldTel[i].Type)
		projType := tt.Pi{Domain: recordTy, Codomain: fieldTypeUnderSelf}
		err := c.sig.AddProjection(f.Name, i, d.Name.String(),
			signature.Contextual{Telescope: parent.Type.Telescope, Inside: projType})
		if err != nil {
			return c.structuralf(f.Pos, errors.STR006, "%s", err)
		}
		projSelf := tt.Eliminate(tt.V("self", 0), tt.Project{
			Field: tt.OpenedName{Key: f.Name, Args: parentVars}, Index: i,
		})
		subst = tt.Instantiate(projSelf, subst)
	}
	return nil
}

// checkedPat pairs a checked tt.Pattern with a deferred term builder: the
// representative term a pattern stands for, computed once the final
// length of the enclosing context is known (a nested constructor pattern
// may bind several variables at once, so the final de Bruijn index of an
// earlier-bound variable isn't known until every sibling pattern after it
// has also been checked).
type checkedPat struct {
	pat  tt.Pattern
	term func(finalLen int) tt.Term
}

// checkPatternVector checks a pattern vector against an evolving Π type,
// peeling one Π layer per pattern and instantiating the remaining
// codomain by the just-checked pattern's representative term before
// moving to the next (spec.md §4.5 "pattern checking").
func (c *Checker) checkPatternVector(ctx tt.Context, ty tt.Term, pats []ast.SurfacePattern) (tt.Context, []checkedPat, tt.Term, error) {
	cur := ty
	results := make([]checkedPat, 0, len(pats))
	for _, sp := range pats {
		pi, ok := c.whnfPi(cur)
		if !ok {
			return ctx, nil, nil, c.structuralf(sp.Position(), errors.PAT003, "too many patterns for this type")
		}
		newCtx, scp, err := c.checkOnePattern(ctx, pi.Domain, sp)
		if err != nil {
			return ctx, nil, nil, err
		}
		ctx = newCtx
		results = append(results, scp)
		cur = tt.Apply_(tt.Instantiate(scp.term(ctx.Len()), tt.Id), pi.Codomain)
	}
	return ctx, results, cur, nil
}

// checkOnePattern checks a single surface pattern against domain, the
// current Π's domain type.
func (c *Checker) checkOnePattern(ctx tt.Context, domain tt.Term, sp ast.SurfacePattern) (tt.Context, checkedPat, error) {
	switch p := sp.(type) {
	case *ast.PatVar:
		pos := ctx.Len()
		extCtx := ctx.Extend(p.Name, domain)
		name := p.Name
		return extCtx, checkedPat{
			pat:  tt.PVar{Name: name},
			term: func(finalLen int) tt.Term { return tt.V(name, finalLen-1-pos) },
		}, nil
	case *ast.PatWild:
		pos := ctx.Len()
		extCtx := ctx.Extend("_", domain)
		return extCtx, checkedPat{
			pat:  tt.PVar{Name: "_"},
			term: func(finalLen int) tt.Term { return tt.V("_", finalLen-1-pos) },
		}, nil
	case *ast.PatAbsurd:
		// No context extension and no useful representative term: an
		// absurd position terminates the clause, so nothing downstream
		// ever substitutes this value.
		return ctx, checkedPat{
			pat:  tt.PAbsurd{},
			term: func(int) tt.Term { return tt.Refl{} },
		}, nil
	case *ast.PatConstructor:
		return c.checkConstructorPattern(ctx, domain, p)
	default:
		return ctx, checkedPat{}, c.structuralf(sp.Position(), errors.STR003, "unsupported pattern form %T", sp)
	}
}

func (c *Checker) checkConstructorPattern(ctx tt.Context, domain tt.Term, p *ast.PatConstructor) (tt.Context, checkedPat, error) {
	blocked := c.whnf(domain)
	nb, ok := blocked.(tt.NotBlocked)
	if !ok {
		return ctx, checkedPat{}, c.structuralf(p.Pos, errors.PAT003,
			"constructor pattern %q against a domain that is not yet reduced to a data type", p.Name)
	}
	dataApply, ok := nb.Term.(tt.Apply)
	if !ok {
		return ctx, checkedPat{}, c.structuralf(p.Pos, errors.STR002,
			"constructor pattern %q against a non-data domain", p.Name)
	}
	defHead, ok := dataApply.Head.(tt.DefHead)
	if !ok {
		return ctx, checkedPat{}, c.structuralf(p.Pos, errors.STR002,
			"constructor pattern %q against a non-data domain", p.Name)
	}
	ctorName := p.Name.String()
	ctorDef, ok := c.sig.LookupDefinition(ctorName)
	if !ok || ctorDef.Kind != signature.KindDataConstructor {
		return ctx, checkedPat{}, c.structuralf(p.Pos, errors.STR002, "unknown constructor %q", ctorName)
	}
	if ctorDef.Parent != defHead.Name.Key {
		return ctx, checkedPat{}, c.structuralf(p.Pos, errors.STR002,
			"constructor %q does not belong to %q", ctorName, defHead.Name.Key)
	}

	sub := tt.Id
	for _, a := range defHead.Name.Args {
		sub = tt.Instantiate(a, sub)
	}
	ctorTy := tt.Apply_(sub, ctorDef.Type.Inside)

	subCtx, subResults, remaining, err := c.checkPatternVector(ctx, ctorTy, p.Args)
	if err != nil {
		return ctx, checkedPat{}, err
	}
	if _, stillPi := c.whnfPi(remaining); stillPi {
		return ctx, checkedPat{}, c.structuralf(p.Pos, errors.STR004,
			"constructor %q applied to too few patterns", ctorName)
	}

	patArgs := make([]tt.Pattern, len(subResults))
	for i, r := range subResults {
		patArgs[i] = r.pat
	}
	name := tt.OpenedName{Key: ctorName, Args: defHead.Name.Args}
	term := func(finalLen int) tt.Term {
		args := make([]tt.Term, len(subResults))
		for i, r := range subResults {
			args[i] = r.term(finalLen)
		}
		return tt.Constructor{Name: name, Args: args}
	}
	return subCtx, checkedPat{pat: tt.PConstructor{Name: name, Args: patArgs}, term: term}, nil
}

// functionClauses checks each clause's pattern vector against the
// function's ascribed Π-type, elaborates the body at the resulting
// codomain, infers invertibility once every clause is checked, and
// installs the clause set (spec.md §4.5 "function body").
func (c *Checker) functionClauses(ctx tt.Context, decl *ast.FunctionClauses) error {
	d, ok := c.sig.LookupDefinition(decl.Name.String())
	if !ok || d.Kind != signature.KindFunction {
		return c.structuralf(decl.Pos, errors.STR007, "clauses for %q have no matching ascription", decl.Name)
	}
	clauses := make([]tt.Clause, 0, len(decl.Clauses))
	for _, sc := range decl.Clauses {
		clauseCtx, results, codomain, err := c.checkPatternVector(ctx, d.Type.Inside, sc.Patterns)
		if err != nil {
			return err
		}
		patterns := make([]tt.Pattern, len(results))
		for i, r := range results {
			patterns[i] = r.pat
		}
		if sc.Body == nil {
			clauses = append(clauses, tt.Clause{Patterns: patterns, Absurd: true})
			continue
		}
		body, err := c.elab.Elaborate(clauseCtx, codomain, sc.Body)
		if err != nil {
			return err
		}
		clauses = append(clauses, tt.Clause{Patterns: patterns, Body: body})
	}
	inv := solver.InferInvertibility(c.sig, clauses)
	if err := c.sig.AddFunctionClauses(decl.Name.String(), inv, clauses); err != nil {
		return c.structuralf(decl.Pos, errors.STR007, "%s", err)
	}
	return nil
}
