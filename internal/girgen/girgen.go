// Package girgen lowers checked function definitions into the GIR
// continuation-passing graph (spec.md §4.7 "GIR Generator"): one
// entry continuation per function, one further continuation per decision
// tree switch arm, wired to internal/dtree's already-compiled pattern
// matrix rather than re-deriving match order itself.
package girgen

import (
	"fmt"

	"github.com/silt-lang/silt/internal/ast"
	"github.com/silt-lang/silt/internal/dtree"
	"github.com/silt-lang/silt/internal/errors"
	"github.com/silt-lang/silt/internal/gir"
	"github.com/silt-lang/silt/internal/girtypes"
	"github.com/silt-lang/silt/internal/sid"
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/tt"
)

// LoweringError reports a GIR generation failure, mirroring
// elaborate.StructuralError's Encode convention but tagged under the
// LOW### family (spec.md §4.7/§4.9). Origin, when set, is the AST node the
// offending meta was minted at (signature.MetaOrigin), feeding StableID.
type LoweringError struct {
	Code    string
	Message string
	Name    string
	Origin  ast.Node
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Name, e.Code, e.Message)
}

// StableID computes e's content-addressed diagnostic id from Origin (spec.md
// §8 scenario 5: "the diagnostics collaborator receives an 'unsolved meta'
// report with the meta's origin range"). Returns the empty SID when no
// origin node was recorded, e.g. a meta minted without one in a test.
func (e *LoweringError) StableID() sid.SID {
	if e.Origin == nil {
		return ""
	}
	p := e.Origin.Position()
	return sid.NewSID(p.File, p.Offset, p.Offset, fmt.Sprintf("%T", e.Origin), nil)
}

// Encode projects e into the shared diagnostic schema. idStr is normally
// string(e.StableID()).
func (e *LoweringError) Encode(idStr string) errors.Encoded {
	return errors.NewLowering(idStr, e.Code, e.Message, map[string]interface{}{"name": e.Name})
}

// Generator lowers every function definition named by a module's Inside
// list into one gir.Module.
type Generator struct {
	sig   *signature.Signature
	lo    *girtypes.Lowerer
	fresh int
}

func New(sig *signature.Signature, lo *girtypes.Lowerer) *Generator {
	return &Generator{sig: sig, lo: lo}
}

func (g *Generator) freshName(prefix string) string {
	g.fresh++
	return fmt.Sprintf("%s%d", prefix, g.fresh)
}

// GenerateModule lowers every KindFunction definition named in names into a
// fresh gir.Module called name. A function whose body still reaches an
// unbound meta is skipped (spec.md §8 scenario 5: "GIR emission is skipped
// for the enclosing function") and reported via the returned errors rather
// than emitted as malformed GIR.
func (g *Generator) GenerateModule(name string, names []string) (*gir.Module, []error) {
	mod := gir.NewModule(name, g.lo.Table())
	var errs []error
	for _, n := range names {
		def, ok := g.sig.LookupDefinition(n)
		if !ok || def.Kind != signature.KindFunction {
			continue
		}
		if m, found := g.firstUnboundMeta(def); found {
			origin, _ := g.sig.MetaOrigin(m)
			errs = append(errs, &LoweringError{
				Code:    errors.MET001,
				Message: "function body still references an unsolved metavariable",
				Name:    n,
				Origin:  origin,
			})
			continue
		}
		decl, err := g.generateFunction(n, def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mod.AddDecl(decl)
	}
	return mod, errs
}

// firstUnboundMeta reports the first meta with no recorded binding reached
// by any clause body of def, if any.
func (g *Generator) firstUnboundMeta(def *signature.Definition) (tt.Meta, bool) {
	for _, cl := range def.Clauses {
		if cl.Absurd {
			continue
		}
		if m, found := findUnboundMeta(g.sig, cl.Body); found {
			return m, true
		}
	}
	return 0, false
}

func findUnboundMeta(sig *signature.Signature, t tt.Term) (tt.Meta, bool) {
	switch t := t.(type) {
	case tt.Type, tt.Refl:
		return 0, false
	case tt.Pi:
		if m, ok := findUnboundMeta(sig, t.Domain); ok {
			return m, true
		}
		return findUnboundMeta(sig, t.Codomain)
	case tt.Lambda:
		return findUnboundMeta(sig, t.Body)
	case tt.Equal:
		if m, ok := findUnboundMeta(sig, t.Ty); ok {
			return m, true
		}
		if m, ok := findUnboundMeta(sig, t.LHS); ok {
			return m, true
		}
		return findUnboundMeta(sig, t.RHS)
	case tt.Constructor:
		for _, a := range t.Args {
			if m, ok := findUnboundMeta(sig, a); ok {
				return m, true
			}
		}
		return 0, false
	case tt.Apply:
		if mh, ok := t.Head.(tt.MetaHead); ok {
			if _, bound := sig.LookupMetaBinding(mh.ID); !bound {
				return mh.ID, true
			}
		}
		for _, e := range t.Elims {
			if aa, ok := e.(tt.ApplyArg); ok {
				if m, ok := findUnboundMeta(sig, aa.Arg); ok {
					return m, true
				}
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// funcCtx holds the per-function state threaded through dtree-walking and
// r-value emission: the function's own name (for tail self-recursion),
// its lowered result shape, its return continuation, and (for the
// non-capturing Lambda path only) the single De Bruijn-indexed binding a
// nested closure body may reference.
type funcCtx struct {
	gen       *Generator
	name      string
	resultTy  girtypes.Type
	resultCat gir.Category
	indirect  bool
	retCont   *gir.Continuation
	buf       *gir.Parameter
	decl      *gir.Decl
	index0    gir.Value
}

// cursor is the "current continuation" a term walk appends primops to.
// Emitting a non-tail call to another GIR-level function terminates the
// cursor's continuation with an apply whose return continuation is a
// freshly synthesized one, then advances the cursor to that continuation
// so the rest of the enclosing computation continues there (spec.md §4.7:
// "synthesize K ... emit args, apply f args K").
type cursor struct {
	cont *gir.Continuation
}

func categoryFor(ty girtypes.Type) gir.Category {
	if ty.AddressOnly() {
		return gir.Address
	}
	return gir.Object
}

// needsIndirectReturn restricts spec.md §4.7's indirect-return convention
// to concrete address-only aggregates (DataType/RecordType). A generic
// Archetype-typed result is conservatively AddressOnly for Trivial-copy
// purposes but is still passed as a single ordinary value at a call site
// (spec.md §8 scenario 2's identity function returns via a bare
// `apply retCont (x)`, no buffer parameter) — see DESIGN.md.
func needsIndirectReturn(ty girtypes.Type) bool {
	switch t := ty.(type) {
	case *girtypes.DataType:
		return t.AddressOnly()
	case *girtypes.RecordType:
		return t.AddressOnly()
	case *girtypes.SubstitutedType:
		return needsIndirectReturn(t.Substitutee)
	default:
		return false
	}
}

// generateFunction lowers one function definition into a gir.Decl: one
// entry continuation whose parameters are one per Π-argument (lowered)
// plus a final return-continuation parameter typed (result)->⊥, and one
// further continuation per dtree switch arm (spec.md §4.7).
func (g *Generator) generateFunction(name string, def *signature.Definition) (*gir.Decl, error) {
	width := 0
	if len(def.Clauses) > 0 {
		width = len(def.Clauses[0].Patterns)
	}

	paramTypes := make([]girtypes.Type, 0, width)
	cur := def.Type.Inside
	for i := 0; i < width; i++ {
		pi, ok := cur.(tt.Pi)
		if !ok {
			return nil, &LoweringError{Code: errors.LOW001, Message: "function type has fewer Π layers than its clause arity", Name: name}
		}
		paramTypes = append(paramTypes, g.lo.Lower(pi.Domain))
		cur = pi.Codomain
	}
	resultTy := g.lo.Lower(cur)
	indirect := needsIndirectReturn(resultTy)

	retContTy := g.lo.UniqueFunction(&girtypes.FunctionType{Params: []girtypes.Type{resultTy}, Result: girtypes.BottomType{}})
	retCont := gir.NewParameter(g.freshName("ret"), retContTy, gir.Object)

	entryParams := make([]*gir.Parameter, 0, width+2)
	for i, ty := range paramTypes {
		entryParams = append(entryParams, gir.NewParameter(fmt.Sprintf("p%d", i), ty, categoryFor(ty)))
	}
	var buf *gir.Parameter
	if indirect {
		buf = gir.NewParameter(g.freshName("buf"), resultTy, gir.Address)
		entryParams = append(entryParams, buf)
	}
	entryParams = append(entryParams, retCont)

	entry := gir.NewContinuation("entry", entryParams)

	declParams := append([]girtypes.Type(nil), paramTypes...)
	if indirect {
		declParams = append(declParams, resultTy)
	}
	declParams = append(declParams, retContTy)
	declType := g.lo.UniqueFunction(&girtypes.FunctionType{Params: declParams, Result: girtypes.BottomType{}})
	decl := &gir.Decl{Name: name, Type: declType, Continuations: []*gir.Continuation{entry}}

	fc := &funcCtx{gen: g, name: name, resultTy: resultTy, resultCat: categoryFor(resultTy), indirect: indirect, retCont: retCont, buf: buf, decl: decl}

	if width == 0 {
		if len(def.Clauses) != 1 {
			return nil, &LoweringError{Code: errors.LOW002, Message: "zero-arity function must have exactly one clause", Name: name}
		}
		if err := fc.emitLeafBody(entry, map[string]gir.Value{}, def.Clauses[0]); err != nil {
			return nil, err
		}
		return decl, nil
	}

	universe := g.universeFor(def)
	root := dtree.Compile(def.Clauses, universe)

	env := make(map[int]gir.Value, width)
	for i := 0; i < width; i++ {
		env[i] = entryParams[i]
	}
	if err := fc.emitNode(entry, root, env, def.Clauses); err != nil {
		return nil, err
	}
	return decl, nil
}

// universeFor builds a dtree.Universe backed by the signature: a
// constructor's siblings are its parent data type's own constructor list.
func (g *Generator) universeFor(def *signature.Definition) dtree.Universe {
	return func(ctorKey string) []dtree.CtorInfo {
		cdef, ok := g.sig.LookupDefinition(ctorKey)
		if !ok {
			return nil
		}
		parent, ok := g.sig.LookupDefinition(cdef.Parent)
		if !ok {
			return nil
		}
		out := make([]dtree.CtorInfo, 0, len(parent.Constructors))
		for _, sib := range parent.Constructors {
			sdef, ok := g.sig.LookupDefinition(sib)
			if !ok {
				continue
			}
			out = append(out, dtree.CtorInfo{Name: sib, Arity: sdef.Arity})
		}
		return out
	}
}

// fieldTypesFor resolves one constructor's payload field types and boxing
// flags. When the scrutinee's lowered type is a genuine DataType, its own
// ConstructorLayout (computed once, with accurate recursion-boxing
// information) is used directly; otherwise (e.g. the Nat peephole, whose
// scrutinee type is NatType rather than *DataType) each field type is
// re-derived from the constructor's own Π-chain, with no boxing — a
// peephole-shaped recursive occurrence never needs boxing since the
// peephole itself only applies to non-boxing-shaped data (spec.md §4.6).
func (g *Generator) fieldTypesFor(scrutineeTy girtypes.Type, ctorName string) ([]girtypes.Type, []bool) {
	if dt, ok := underlyingDataType(scrutineeTy); ok {
		for _, c := range dt.Constructors {
			if c.Name == ctorName {
				return c.Payload, c.Boxed
			}
		}
	}
	cdef, ok := g.sig.LookupDefinition(ctorName)
	if !ok {
		return nil, nil
	}
	var payload []girtypes.Type
	cur := cdef.Type.Inside
	for {
		pi, ok := cur.(tt.Pi)
		if !ok {
			break
		}
		payload = append(payload, g.lo.Lower(pi.Domain))
		cur = pi.Codomain
	}
	return payload, make([]bool, len(payload))
}

func underlyingDataType(ty girtypes.Type) (*girtypes.DataType, bool) {
	switch t := ty.(type) {
	case *girtypes.DataType:
		return t, true
	case *girtypes.SubstitutedType:
		return underlyingDataType(t.Substitutee)
	default:
		return nil, false
	}
}

// resultTypeOf peels funcKey's own Π-chain by len(args) layers, substituting
// each argument into the remaining codomain as it goes, mirroring
// internal/check's own pattern-vector codomain peeling.
func (g *Generator) resultTypeOf(funcKey string, args []tt.Term) tt.Term {
	def, ok := g.sig.LookupDefinition(funcKey)
	if !ok {
		return tt.Type{}
	}
	cur := def.Type.Inside
	for _, a := range args {
		pi, ok := cur.(tt.Pi)
		if !ok {
			break
		}
		cur = tt.Apply_(tt.Instantiate(a, tt.Id), pi.Codomain)
	}
	return cur
}

// emitNode walks one dtree node, appending to cont, threading the
// slot -> GIR value environment along the way.
func (fc *funcCtx) emitNode(cont *gir.Continuation, node dtree.Node, env map[int]gir.Value, clauses []tt.Clause) error {
	switch n := node.(type) {
	case dtree.Leaf:
		nameEnv := make(map[string]gir.Value, len(n.Bindings))
		for _, b := range n.Bindings {
			nameEnv[b.Name] = env[b.Slot]
		}
		return fc.emitLeafBody(cont, nameEnv, clauses[n.ClauseIndex])

	case dtree.Unreachable:
		cont.SetUnreachable()
		return nil

	case dtree.Switch:
		scrutinee, ok := env[n.Slot]
		if !ok {
			return &LoweringError{Code: errors.LOW002, Message: "switch scrutinee slot has no bound value", Name: fc.name}
		}
		arms := make([]*gir.SwitchArm, 0, len(n.Arms))
		for _, a := range n.Arms {
			payload, boxed := fc.gen.fieldTypesFor(scrutinee.Type(), a.Constructor)
			armCont := gir.NewContinuation(fc.gen.freshName("k"), nil)
			fc.decl.Continuations = append(fc.decl.Continuations, armCont)

			childEnv := make(map[int]gir.Value, len(env)+len(a.Payload))
			for k, v := range env {
				childEnv[k] = v
			}
			for i, slot := range a.Payload {
				fieldTy := girtypes.Type(girtypes.TypeMetadataType{})
				isBoxed := false
				if i < len(payload) {
					fieldTy = payload[i]
				}
				if i < len(boxed) {
					isBoxed = boxed[i]
				}
				if isBoxed {
					boxParam := gir.NewParameter(fmt.Sprintf("f%d", slot), fieldTy, gir.Object)
					armCont.Params = append(armCont.Params, boxParam)
					underlying := girtypes.Type(girtypes.TypeMetadataType{})
					if bt, ok := fieldTy.(*girtypes.BoxType); ok && bt.Underlying != nil {
						underlying = bt.Underlying
					}
					addr := armCont.Emit(gir.NewPrimOp(fc.gen.freshName("addr"), gir.OpProjectBox, underlying, gir.Address, nil))
					addr.AddOperand(boxParam)
					val := armCont.Emit(gir.NewPrimOp(fc.gen.freshName("v"), gir.OpLoadCopy, underlying, gir.Object, nil))
					val.AddOperand(addr)
					childEnv[slot] = val
				} else {
					p := gir.NewParameter(fmt.Sprintf("f%d", slot), fieldTy, categoryFor(fieldTy))
					armCont.Params = append(armCont.Params, p)
					childEnv[slot] = p
				}
			}
			if err := fc.emitNode(armCont, a.Next, childEnv, clauses); err != nil {
				return err
			}
			arms = append(arms, &gir.SwitchArm{Constructor: a.Constructor, Target: armCont})
		}

		var defTarget gir.Value
		if n.Default != nil {
			defCont := gir.NewContinuation(fc.gen.freshName("k"), nil)
			fc.decl.Continuations = append(fc.decl.Continuations, defCont)
			if err := fc.emitNode(defCont, n.Default, env, clauses); err != nil {
				return err
			}
			defTarget = defCont
		}

		cont.SetSwitchConstr(scrutinee, girtypes.BottomType{}, arms, defTarget)
		return nil

	default:
		return &LoweringError{Code: errors.LOW002, Message: fmt.Sprintf("unknown decision tree node %T", node), Name: fc.name}
	}
}

// asDefCall reports whether t is a fully-saturated, non-projecting call to
// a global definition: Apply{DefHead, ApplyArg*}.
func asDefCall(t tt.Term) (tt.OpenedName, []tt.Term, bool) {
	ap, ok := t.(tt.Apply)
	if !ok {
		return tt.OpenedName{}, nil, false
	}
	dh, ok := ap.Head.(tt.DefHead)
	if !ok {
		return tt.OpenedName{}, nil, false
	}
	args := make([]tt.Term, 0, len(ap.Elims))
	for _, e := range ap.Elims {
		aa, ok := e.(tt.ApplyArg)
		if !ok {
			return tt.OpenedName{}, nil, false
		}
		args = append(args, aa.Arg)
	}
	return dh.Name, args, true
}

func elimArgs(elims []tt.Elim) []tt.Term {
	args := make([]tt.Term, 0, len(elims))
	for _, e := range elims {
		switch e := e.(type) {
		case tt.ApplyArg:
			args = append(args, e.Arg)
		case tt.Project:
			panic("girgen: record projection in r-value position is not supported")
		}
	}
	return args
}

// emitLeafBody emits one matched clause's body into cont, finishing with
// the function's return edge. A body that is exactly a saturated
// self-recursive call reuses the entry's own return continuation directly
// rather than allocating a throwaway one first (spec.md §4.7: "the known
// return continuation of f is reused directly and K is deleted").
func (fc *funcCtx) emitLeafBody(cont *gir.Continuation, nameEnv map[string]gir.Value, clause tt.Clause) error {
	if clause.Absurd {
		cont.SetUnreachable()
		return nil
	}
	cur := &cursor{cont: cont}

	if callee, args, ok := asDefCall(clause.Body); ok && callee.Key == fc.name {
		argVals := make([]gir.Value, 0, len(args))
		for _, a := range args {
			argVals = append(argVals, fc.emitTerm(cur, nameEnv, a))
		}
		fref := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("f"), gir.OpFunctionRef, fc.decl.Type, gir.Object, gir.FunctionRefAttr{Callee: fc.name}))
		callArgs := argVals
		if fc.indirect {
			callArgs = append(callArgs, fc.buf)
		}
		cur.cont.SetApply(fref, append(callArgs, fc.retCont), girtypes.BottomType{})
		return nil
	}

	val := fc.emitTerm(cur, nameEnv, clause.Body)
	return fc.finishReturn(cur, val)
}

func (fc *funcCtx) finishReturn(cur *cursor, val gir.Value) error {
	if fc.indirect {
		copyAddr := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("c"), gir.OpCopyAddress, fc.resultTy, gir.Address, nil))
		copyAddr.AddOperand(val)
		copyAddr.AddOperand(fc.buf)
		cur.cont.SetApply(fc.retCont, []gir.Value{fc.buf}, girtypes.BottomType{})
		return nil
	}
	if !fc.resultTy.Trivial() {
		copied := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("c"), gir.OpCopyValue, fc.resultTy, fc.resultCat, nil))
		copied.AddOperand(val)
		val = copied
	}
	cur.cont.SetApply(fc.retCont, []gir.Value{val}, girtypes.BottomType{})
	return nil
}

// emitTerm emits t's r-value into cur's continuation per spec.md §4.7's
// per-term-former rules, threading nameEnv for pattern-bound variables.
func (fc *funcCtx) emitTerm(cur *cursor, nameEnv map[string]gir.Value, t tt.Term) gir.Value {
	switch t := t.(type) {
	case tt.Constructor:
		return fc.emitConstructor(cur, nameEnv, t)
	case tt.Apply:
		switch h := t.Head.(type) {
		case tt.DefHead:
			return fc.emitDefCall(cur, nameEnv, h.Name, t.Elims)
		case tt.VarHead:
			return fc.emitVarCall(cur, nameEnv, h, t.Elims)
		case tt.MetaHead:
			return fc.emitMetaCall(cur, nameEnv, t)
		}
	case tt.Lambda:
		return fc.emitLambda(cur, nameEnv, t)
	}
	panic(fmt.Sprintf("girgen: unsupported r-value term %T", t))
}

func (fc *funcCtx) emitConstructor(cur *cursor, nameEnv map[string]gir.Value, c tt.Constructor) gir.Value {
	ctorDef, ok := fc.gen.sig.LookupDefinition(c.Name.Key)
	if !ok {
		panic(fmt.Sprintf("girgen: unknown constructor %q", c.Name.Key))
	}
	parentTy := fc.gen.lo.Lower(tt.D(tt.OpenedName{Key: ctorDef.Parent, Args: c.Name.Args}))
	payload, boxed := fc.gen.fieldTypesFor(parentTy, c.Name.Key)

	operands := make([]gir.Value, len(c.Args))
	for i, a := range c.Args {
		v := fc.emitTerm(cur, nameEnv, a)
		if i < len(boxed) && boxed[i] {
			var fieldTy girtypes.Type = girtypes.TypeMetadataType{}
			if i < len(payload) {
				fieldTy = payload[i]
			}
			v = fc.box(cur, fieldTy, v)
		}
		operands[i] = v
	}
	tupleTy := &girtypes.TupleType{Elements: payload}
	tuple := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("t"), gir.OpTuple, tupleTy, gir.Object, nil))
	for _, o := range operands {
		tuple.AddOperand(o)
	}
	init := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("d"), gir.OpDataInit, parentTy, gir.Object, gir.DataInitAttr{Constructor: c.Name.Key}))
	init.AddOperand(tuple)
	return init
}

// emitMetaCall reduces a meta-headed application through tt.WHNF and emits
// its solved form. girgen only runs once a function is confirmed free of
// unsolved metas (GenerateModule's firstUnboundMeta guard), so the result
// is always NotBlocked.
func (fc *funcCtx) emitMetaCall(cur *cursor, nameEnv map[string]gir.Value, t tt.Apply) gir.Value {
	reduced := tt.WHNF(fc.gen.sig, t)
	nb, ok := reduced.(tt.NotBlocked)
	if !ok {
		panic(fmt.Sprintf("girgen: meta application still blocked during emission in function %q", fc.name))
	}
	return fc.emitTerm(cur, nameEnv, nb.Term)
}

// maxFreeIndex returns the largest de Bruijn index t references at its own
// binding depth, or -1 if t references no variable at all. Used to check a
// Lambda's body stays within the single non-capturing parameter girgen
// supports (index 0 only).
func maxFreeIndex(t tt.Term) int {
	switch t := t.(type) {
	case tt.Type, tt.Refl:
		return -1
	case tt.Pi:
		return maxOf(maxFreeIndex(t.Domain), shiftDown(maxFreeIndex(t.Codomain)))
	case tt.Lambda:
		return shiftDown(maxFreeIndex(t.Body))
	case tt.Equal:
		return maxOf(maxFreeIndex(t.Ty), maxOf(maxFreeIndex(t.LHS), maxFreeIndex(t.RHS)))
	case tt.Constructor:
		m := -1
		for _, a := range t.Args {
			m = maxOf(m, maxFreeIndex(a))
		}
		return m
	case tt.Apply:
		m := -1
		if vh, ok := t.Head.(tt.VarHead); ok {
			m = vh.Index
		}
		for _, e := range t.Elims {
			if aa, ok := e.(tt.ApplyArg); ok {
				m = maxOf(m, maxFreeIndex(aa.Arg))
			}
		}
		return m
	default:
		return -1
	}
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// shiftDown drops one binding level: an index that referenced the newly
// unbound variable (0) no longer counts, everything else shifts down by
// one. -1 (no reference) propagates unchanged.
func shiftDown(i int) int {
	if i <= 0 {
		return -1
	}
	return i - 1
}

// emitLambda is deliberately unsupported: closure conversion (lifting a
// nested Lambda into its own top-level continuation-group, capturing its
// free variables through an explicit environment) is a separate pass
// spec.md §4.7 does not specify and none of §8's six worked scenarios
// exercise. A Lambda reaching r-value position during emission fails
// loudly here rather than producing silently-wrong GIR; see DESIGN.md.
func (fc *funcCtx) emitLambda(cur *cursor, nameEnv map[string]gir.Value, l tt.Lambda) gir.Value {
	if maxFreeIndex(l.Body) > 0 {
		panic(fmt.Sprintf("girgen: lambda in function %q captures an outer binding, which is unsupported", fc.name))
	}
	panic(fmt.Sprintf("girgen: lambda reaching r-value position in function %q requires closure conversion, which is out of scope", fc.name))
}

func (fc *funcCtx) box(cur *cursor, boxTy girtypes.Type, v gir.Value) gir.Value {
	underlying := girtypes.Type(girtypes.TypeMetadataType{})
	if b, ok := boxTy.(*girtypes.BoxType); ok && b.Underlying != nil {
		underlying = b.Underlying
	}
	boxVal := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("box"), gir.OpAllocBox, boxTy, gir.Object, nil))
	addr := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("addr"), gir.OpProjectBox, underlying, gir.Address, nil))
	addr.AddOperand(boxVal)
	store := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("s"), gir.OpStore, girtypes.BottomType{}, gir.Object, nil))
	store.AddOperand(v)
	store.AddOperand(addr)
	return boxVal
}

// emitDefCall handles a (possibly non-tail) call to another function:
// synthesize a return continuation K, emit the arguments, apply the
// callee with K, and advance cur to K so the surrounding computation
// continues there (spec.md §4.7).
func (fc *funcCtx) emitDefCall(cur *cursor, nameEnv map[string]gir.Value, name tt.OpenedName, elims []tt.Elim) gir.Value {
	args := elimArgs(elims)
	argVals := make([]gir.Value, len(args))
	for i, a := range args {
		argVals[i] = fc.emitTerm(cur, nameEnv, a)
	}
	resultTerm := fc.gen.resultTypeOf(name.Key, args)
	resultTy := fc.gen.lo.Lower(resultTerm)

	kParam := gir.NewParameter(fc.gen.freshName("r"), resultTy, categoryFor(resultTy))
	k := gir.NewContinuation(fc.gen.freshName("k"), []*gir.Parameter{kParam})
	fc.decl.Continuations = append(fc.decl.Continuations, k)

	calleeTy := girtypes.Type(&girtypes.FunctionType{Result: girtypes.BottomType{}})
	if cdef, ok := fc.gen.sig.LookupDefinition(name.Key); ok {
		calleeTy = fc.gen.lo.Lower(cdef.Type.Inside)
	}
	fref := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("f"), gir.OpFunctionRef, calleeTy, gir.Object, gir.FunctionRefAttr{Callee: name.Key}))
	cur.cont.SetApply(fref, append(argVals, k), girtypes.BottomType{})
	cur.cont = k
	return kParam
}

// emitVarCall resolves a pattern-bound variable by name. With no further
// eliminators it is returned directly (unboxing first, if its type is a
// Box). Applied to arguments, it is treated as a direct higher-order call
// through its own GIR value as callee (spec.md §4.7).
func (fc *funcCtx) emitVarCall(cur *cursor, nameEnv map[string]gir.Value, h tt.VarHead, elims []tt.Elim) gir.Value {
	var v gir.Value
	if fc.index0 != nil && h.Index == 0 {
		v = fc.index0
	} else {
		bound, ok := nameEnv[h.Name]
		if !ok {
			panic(fmt.Sprintf("girgen: unbound pattern variable %q in function %q", h.Name, fc.name))
		}
		v = bound
	}

	if len(elims) == 0 {
		if bt, ok := v.Type().(*girtypes.BoxType); ok {
			underlying := girtypes.Type(girtypes.TypeMetadataType{})
			if bt.Underlying != nil {
				underlying = bt.Underlying
			}
			addr := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("addr"), gir.OpProjectBox, underlying, gir.Address, nil))
			addr.AddOperand(v)
			val := cur.cont.Emit(gir.NewPrimOp(fc.gen.freshName("v"), gir.OpLoadCopy, underlying, gir.Object, nil))
			val.AddOperand(addr)
			return val
		}
		return v
	}

	// v itself is the callee of a direct higher-order call: synthesize a
	// return continuation exactly as emitDefCall does for a known global.
	args := elimArgs(elims)
	argVals := make([]gir.Value, len(args))
	for i, a := range args {
		argVals[i] = fc.emitTerm(cur, nameEnv, a)
	}
	var resultTy girtypes.Type = girtypes.TypeMetadataType{}
	if ft, ok := v.Type().(*girtypes.FunctionType); ok && len(ft.Params) > 0 {
		resultTy = ft.Params[len(ft.Params)-1]
		if rc, ok := resultTy.(*girtypes.FunctionType); ok && len(rc.Params) == 1 {
			resultTy = rc.Params[0]
		}
	}
	kParam := gir.NewParameter(fc.gen.freshName("r"), resultTy, categoryFor(resultTy))
	k := gir.NewContinuation(fc.gen.freshName("k"), []*gir.Parameter{kParam})
	fc.decl.Continuations = append(fc.decl.Continuations, k)
	cur.cont.SetApply(v, append(argVals, k), girtypes.BottomType{})
	cur.cont = k
	return kParam
}
