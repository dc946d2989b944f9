package girtypes

import (
	"fmt"
	"strings"

	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/tt"
)

// Table interns function/tuple/data/record types by structural equality
// within one lowering session (spec.md §4.6 "Uniquing").
type Table struct {
	functions map[string]*FunctionType
	tuples    map[string]*TupleType
}

func newTable() *Table {
	return &Table{functions: map[string]*FunctionType{}, tuples: map[string]*TupleType{}}
}

// NewTable constructs an empty, ready-to-use Table. Lowerer builds its own
// internally; callers assembling a Module directly (e.g. girgen, or tests
// exercising gir.Print without a full Lowerer) use this entry point.
func NewTable() *Table { return newTable() }

func (t *Table) function(f *FunctionType) *FunctionType {
	key := f.String()
	if ex, ok := t.functions[key]; ok {
		return ex
	}
	t.functions[key] = f
	return f
}

func (t *Table) tuple(tp *TupleType) *TupleType {
	key := tp.String()
	if ex, ok := t.tuples[key]; ok {
		return ex
	}
	t.tuples[key] = tp
	return tp
}

// boxFixup records a BoxType still waiting on a pending data type's own
// lowering to finish (spec.md §4.6 "it resolves once the outer lowering
// completes").
type boxFixup struct {
	box  *BoxType
	name string
}

type dataEntry struct {
	pending bool
	ty      *DataType
}

type recordEntry struct {
	pending bool
	ty      *RecordType
}

// Lowerer classifies TT types into GIR types, memoized both by TT-type
// shape (canonicalKey, to short-circuit repeated structural lowering) and
// by data/record definition name (to detect and box recursive
// occurrences, spec.md §4.6).
type Lowerer struct {
	sig        *signature.Signature
	table      *Table
	termMemo   map[string]Type
	dataMemo   map[string]*dataEntry
	recordMemo map[string]*recordEntry
	fixups     []boxFixup
}

func NewLowerer(sig *signature.Signature) *Lowerer {
	return &Lowerer{
		sig:        sig,
		table:      newTable(),
		termMemo:   map[string]Type{},
		dataMemo:   map[string]*dataEntry{},
		recordMemo: map[string]*recordEntry{},
	}
}

// Table returns the uniquing table lo lowers function/tuple types into, so
// a caller assembling a gir.Module from lo's output shares the same
// uniquing rather than opening a second one (spec.md §4.9 "module owns...
// the type unique-tables").
func (lo *Lowerer) Table() *Table { return lo.table }

// UniqueFunction interns f through lo's own table, the same uniquing a
// Π-type lowered via Lower would have gone through, for types (such as a
// return continuation's own signature) girgen assembles directly rather
// than by lowering a tt.Pi.
func (lo *Lowerer) UniqueFunction(f *FunctionType) *FunctionType { return lo.table.function(f) }

// Lower classifies t into its GIR type (spec.md §4.6). Repeated calls for
// structurally identical TT types return the same lowered value.
func (lo *Lowerer) Lower(t tt.Term) Type {
	key := canonicalKey(t)
	if ty, ok := lo.termMemo[key]; ok {
		return ty
	}
	ty := lo.lower(t)
	lo.termMemo[key] = ty
	return ty
}

func (lo *Lowerer) lower(t tt.Term) Type {
	switch t := t.(type) {
	case tt.Type:
		return TypeType{}
	case tt.Pi:
		return lo.table.function(&FunctionType{Params: []Type{lo.Lower(t.Domain)}, Result: lo.Lower(t.Codomain)})
	case tt.Apply:
		switch h := t.Head.(type) {
		case tt.DefHead:
			return lo.lowerDefApply(h.Name)
		case tt.VarHead:
			return Archetype{Index: h.Index}
		default:
			// A meta-headed or otherwise unresolved type: conservative
			// address-only placeholder, since no concrete shape is known.
			return TypeMetadataType{}
		}
	default:
		return TypeMetadataType{}
	}
}

// lowerDefApply dispatches an opened definition reference to its data or
// record lowering, applying concrete argument types when the definition
// is parameterized.
func (lo *Lowerer) lowerDefApply(name tt.OpenedName) Type {
	def, ok := lo.sig.LookupDefinition(name.Key)
	if !ok {
		return TypeMetadataType{}
	}
	switch def.Kind {
	case signature.KindData:
		if isPeanoShape(lo.sig, def, name.Key) {
			return NatType{}
		}
		open := lo.lowerOpenData(name.Key, def)
		return lo.applyArchetypes(open, name.Args)
	case signature.KindRecord:
		open := lo.lowerOpenRecord(name.Key, def)
		return lo.applyArchetypes(open, name.Args)
	default:
		return TypeMetadataType{}
	}
}

func (lo *Lowerer) applyArchetypes(open Type, args []tt.Term) Type {
	if len(args) == 0 {
		return open
	}
	subs := make([]Type, len(args))
	for i, a := range args {
		subs[i] = lo.Lower(a)
	}
	return &SubstitutedType{Substitutee: open, Substitutions: subs}
}

// lowerOpenData lowers def's constructors into their tupled payloads,
// treating a reference back to name itself (directly, or through a
// still-pending sibling in a mutually recursive group) as a box rather
// than recursing forever.
func (lo *Lowerer) lowerOpenData(name string, def *signature.Definition) Type {
	if e, ok := lo.dataMemo[name]; ok {
		if e.pending {
			// Caller is itself inside lowering name (direct self-reference
			// from a constructor field type before the DataType exists
			// yet): box it, to be resolved once the entry below completes.
			box := &BoxType{Unresolved: name}
			lo.fixups = append(lo.fixups, boxFixup{box: box, name: name})
			return box
		}
		return e.ty
	}
	lo.dataMemo[name] = &dataEntry{pending: true}

	trivial := true
	addressOnly := false
	layouts := make([]ConstructorLayout, 0, len(def.Constructors))
	for _, cname := range def.Constructors {
		cdef, ok := lo.sig.LookupDefinition(cname)
		if !ok {
			continue
		}
		payload, boxed := lo.lowerPayload(cdef.Type.Inside)
		for i, p := range payload {
			if boxed[i] {
				continue // a box is itself trivial regardless of contents
			}
			if !p.Trivial() {
				trivial = false
			}
			if p.AddressOnly() {
				addressOnly = true
			}
		}
		layouts = append(layouts, ConstructorLayout{Name: cname, Payload: payload, Boxed: boxed})
	}

	ty := &DataType{Name: name, Constructors: layouts, Cat: Object, trivial: trivial, addressOnly: addressOnly}
	lo.dataMemo[name] = &dataEntry{ty: ty}
	lo.resolveFixups(name, ty)
	return ty
}

func (lo *Lowerer) lowerOpenRecord(name string, def *signature.Definition) Type {
	if e, ok := lo.recordMemo[name]; ok {
		if e.pending {
			box := &BoxType{Unresolved: name}
			lo.fixups = append(lo.fixups, boxFixup{box: box, name: name})
			return box
		}
		return e.ty
	}
	lo.recordMemo[name] = &recordEntry{pending: true}

	fields := make([]Type, 0, len(def.Projections))
	trivial := true
	addressOnly := false
	cur := def.RecordConstructor
	cdef, ok := lo.sig.LookupDefinition(cur)
	if ok {
		payload, boxed := lo.lowerPayload(cdef.Type.Inside)
		fields = payload
		for i, p := range payload {
			if boxed[i] {
				continue
			}
			if !p.Trivial() {
				trivial = false
			}
			if p.AddressOnly() {
				addressOnly = true
			}
		}
	}

	ty := &RecordType{Name: name, Fields: fields, Cat: Object, trivial: trivial, addressOnly: addressOnly}
	lo.recordMemo[name] = &recordEntry{ty: ty}
	lo.resolveFixups(name, ty)
	return ty
}

// lowerPayload walks a constructor/field Π-prefix left to right, lowering
// each domain into one tupled payload element. A domain that resolves to
// a pending data/record (self- or mutually-recursive occurrence) comes
// back already boxed by lowerOpenData/lowerOpenRecord's pending branch.
func (lo *Lowerer) lowerPayload(ctorType tt.Term) ([]Type, []bool) {
	var payload []Type
	var boxed []bool
	cur := ctorType
	for {
		pi, ok := cur.(tt.Pi)
		if !ok {
			break
		}
		elemTy := lo.Lower(pi.Domain)
		isBox := false
		if b, ok := elemTy.(*BoxType); ok && b.Underlying == nil {
			isBox = true
		}
		payload = append(payload, elemTy)
		boxed = append(boxed, isBox)
		cur = pi.Codomain
	}
	return payload, boxed
}

// resolveFixups backfills every BoxType waiting on name now that its
// DataType/RecordType is available.
func (lo *Lowerer) resolveFixups(name string, ty Type) {
	remaining := lo.fixups[:0]
	for _, f := range lo.fixups {
		if f.name == name {
			f.box.Underlying = ty
			f.box.Unresolved = ""
		} else {
			remaining = append(remaining, f)
		}
	}
	lo.fixups = remaining
}

// isPeanoShape recognizes a two-constructor inductive shaped like
// μX. 1 + X — one nullary constructor, one unary constructor whose sole
// field is a bare self-reference — without lowering anything, so the
// peephole never even enters the boxing machinery (spec.md §4.6).
func isPeanoShape(sig *signature.Signature, def *signature.Definition, name string) bool {
	if def.Kind != signature.KindData || len(def.Constructors) != 2 || len(def.Type.Telescope) != 0 {
		return false
	}
	zeroArity, oneArity := 0, 0
	var selfDomain tt.Term
	for _, cname := range def.Constructors {
		cdef, ok := sig.LookupDefinition(cname)
		if !ok {
			return false
		}
		switch cdef.Arity {
		case 0:
			zeroArity++
		case 1:
			oneArity++
			pi, ok := cdef.Type.Inside.(tt.Pi)
			if !ok {
				return false
			}
			selfDomain = pi.Domain
		default:
			return false
		}
	}
	if zeroArity != 1 || oneArity != 1 {
		return false
	}
	return tt.Equals(selfDomain, tt.D(tt.OpenedName{Key: name}))
}

// canonicalKey builds a structural, alpha-invariant string key for a TT
// term — like Term.String() but keyed on de Bruijn index rather than the
// (merely cosmetic) surface name, since two Vars with the same chosen
// name but different indices must never collide in the memo table.
func canonicalKey(t tt.Term) string {
	var b strings.Builder
	writeKey(&b, t)
	return b.String()
}

func writeKey(b *strings.Builder, t tt.Term) {
	switch t := t.(type) {
	case tt.Var:
		fmt.Fprintf(b, "v%d", t.Index)
	case tt.Type:
		b.WriteString("Type")
	case tt.Pi:
		b.WriteString("Pi(")
		writeKey(b, t.Domain)
		b.WriteString(",")
		writeKey(b, t.Codomain)
		b.WriteString(")")
	case tt.Lambda:
		b.WriteString("Lam(")
		writeKey(b, t.Body)
		b.WriteString(")")
	case tt.Equal:
		b.WriteString("Eq(")
		writeKey(b, t.Ty)
		b.WriteString(",")
		writeKey(b, t.LHS)
		b.WriteString(",")
		writeKey(b, t.RHS)
		b.WriteString(")")
	case tt.Refl:
		b.WriteString("refl")
	case tt.Constructor:
		fmt.Fprintf(b, "Ctor(%s", t.Name.Key)
		for _, a := range t.Name.Args {
			b.WriteString(",")
			writeKey(b, a)
		}
		for _, a := range t.Args {
			b.WriteString(";")
			writeKey(b, a)
		}
		b.WriteString(")")
	case tt.Apply:
		b.WriteString("App(")
		writeHeadKey(b, t.Head)
		for _, e := range t.Elims {
			b.WriteString(";")
			switch e := e.(type) {
			case tt.ApplyArg:
				writeKey(b, e.Arg)
			case tt.Project:
				fmt.Fprintf(b, ".%s", e.Field.Key)
			}
		}
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "?%T", t)
	}
}

func writeHeadKey(b *strings.Builder, h tt.Head) {
	switch h := h.(type) {
	case tt.VarHead:
		fmt.Fprintf(b, "v%d", h.Index)
	case tt.DefHead:
		fmt.Fprintf(b, "d(%s", h.Name.Key)
		for _, a := range h.Name.Args {
			b.WriteString(",")
			writeKey(b, a)
		}
		b.WriteString(")")
	case tt.MetaHead:
		fmt.Fprintf(b, "m%d", int(h.ID))
	}
}
