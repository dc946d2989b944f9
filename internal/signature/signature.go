// Package signature implements the process-wide store of definitions and
// metavariables that one type-checking job owns (spec.md §3 "Signature",
// §4.2).
package signature

import (
	"fmt"

	"github.com/silt-lang/silt/internal/ast"
	"github.com/silt-lang/silt/internal/tt"
)

// Telescope is an ordered sequence of typed bindings where later types may
// reference earlier entries via de Bruijn index (spec.md §3 "Contextual
// value").
type Telescope []TelescopeEntry

// TelescopeEntry is one (name, type) pair in a Telescope.
type TelescopeEntry struct {
	Name string
	Type tt.Term
}

// Contextual pairs a telescope with a term well-formed under it (spec.md §3
// "Contextual value").
type Contextual struct {
	Telescope Telescope
	Inside    tt.Term
}

// Kind discriminates the definition kinds spec.md §3 enumerates.
type Kind int

const (
	KindPostulate Kind = iota
	KindData
	KindRecord
	KindFunction
	KindDataConstructor
	KindProjection
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindPostulate:
		return "postulate"
	case KindData:
		return "data"
	case KindRecord:
		return "record"
	case KindFunction:
		return "function"
	case KindDataConstructor:
		return "constructor"
	case KindProjection:
		return "projection"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}

// Invertibility classifies a Function definition (spec.md §3).
type Invertibility int

const (
	Open Invertibility = iota
	Invertible
	NotInvertible
)

// Definition is one entry of the Signature, tagged by Kind. Exactly the
// fields relevant to Kind are populated; see the per-kind accessors below
// rather than reading fields directly from outside this package.
type Definition struct {
	Kind Kind
	Type Contextual

	// KindData
	Constructors []string

	// KindRecord
	RecordConstructor string
	Projections       []string

	// KindFunction
	Invertibility Invertibility
	Clauses       []tt.Clause

	// KindDataConstructor / KindProjection
	Parent string
	Arity  int
	Index  int // field index, KindProjection only

	// KindModule
	Inside []string
}

// MetaEntry is one row of the meta table: its required type, and its
// solution once bound.
type MetaEntry struct {
	Type    tt.Term
	Origin  ast.Node
	Bound   bool
	Binding tt.MetaBinding
}

// Signature is the mapping from qualified names to contextual definitions
// plus the meta table (spec.md §3). It is not thread-safe; one
// type-checking job owns it (spec.md §4.2).
type Signature struct {
	defs       map[string]*Definition
	metas      []MetaEntry
	nextMetaID tt.Meta
}

// New returns an empty Signature.
func New() *Signature {
	return &Signature{defs: make(map[string]*Definition)}
}

// FatalError reports a violated Signature invariant: duplicate names,
// missing parents, or rebinding. These are structural bugs in a caller,
// never user-facing diagnostics (spec.md §9 "exceptions as control flow":
// structural-bug paths are distinguished from legal "unsolved" outcomes).
type FatalError struct {
	Op      string
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("signature: %s: %s", e.Op, e.Message)
}

func fatalf(op, format string, args ...interface{}) *FatalError {
	return &FatalError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// AddData inserts a fresh Data definition (spec.md §4.2 addData).
func (s *Signature) AddData(name string, tel Telescope, ty tt.Term) error {
	if _, exists := s.defs[name]; exists {
		return fatalf("addData", "duplicate name %q", name)
	}
	s.defs[name] = &Definition{
		Kind: KindData,
		Type: Contextual{Telescope: tel, Inside: ty},
	}
	return nil
}

// AddConstructor appends c to parent's constructor list and inserts c's own
// DataConstructor definition (spec.md §4.2 addConstructor).
func (s *Signature) AddConstructor(c, parent string, arity int, ctxType Contextual) error {
	p, ok := s.defs[parent]
	if !ok || (p.Kind != KindData && p.Kind != KindRecord) {
		return fatalf("addConstructor", "parent %q missing or not data/record", parent)
	}
	if _, exists := s.defs[c]; exists {
		return fatalf("addConstructor", "duplicate name %q", c)
	}
	if p.Kind == KindData {
		p.Constructors = append(p.Constructors, c)
	} else {
		p.RecordConstructor = c
	}
	s.defs[c] = &Definition{
		Kind:   KindDataConstructor,
		Type:   ctxType,
		Parent: parent,
		Arity:  arity,
	}
	return nil
}

// AddProjection appends f to parent's projection list and inserts f's own
// Projection definition (spec.md §4.2 addProjection).
func (s *Signature) AddProjection(f string, idx int, parent string, ctxType Contextual) error {
	p, ok := s.defs[parent]
	if !ok || p.Kind != KindRecord {
		return fatalf("addProjection", "parent %q missing or not a record", parent)
	}
	p.Projections = append(p.Projections, f)
	s.defs[f] = &Definition{
		Kind:   KindProjection,
		Type:   ctxType,
		Parent: parent,
		Index:  idx,
	}
	return nil
}

// AddRecord inserts a fresh Record definition. Its constructor and
// projections are attached later via AddConstructor/AddProjection.
func (s *Signature) AddRecord(name string, tel Telescope, ty tt.Term) error {
	if _, exists := s.defs[name]; exists {
		return fatalf("addRecord", "duplicate name %q", name)
	}
	s.defs[name] = &Definition{
		Kind: KindRecord,
		Type: Contextual{Telescope: tel, Inside: ty},
	}
	return nil
}

// AddPostulate inserts a Postulate definition (spec.md §4.2
// addPostulate).
func (s *Signature) AddPostulate(name string, tel Telescope, ty tt.Term) error {
	if _, exists := s.defs[name]; exists {
		return fatalf("addPostulate", "duplicate name %q", name)
	}
	s.defs[name] = &Definition{
		Kind: KindPostulate,
		Type: Contextual{Telescope: tel, Inside: ty},
	}
	return nil
}

// AddAscription declares an Open function signature: a name and type with
// no clauses yet, installed before its body is checked so forward
// references within a module resolve (SPEC_FULL.md's two-pass module
// checking supplement; spec.md §4.2 addAscription).
func (s *Signature) AddAscription(name string, tel Telescope, ty tt.Term) error {
	if _, exists := s.defs[name]; exists {
		return fatalf("addAscription", "duplicate name %q", name)
	}
	s.defs[name] = &Definition{
		Kind:          KindFunction,
		Type:          Contextual{Telescope: tel, Inside: ty},
		Invertibility: Open,
	}
	return nil
}

// AddFunctionClauses installs clauses and an invertibility classification
// for a name previously declared Open via AddAscription. Replacing a
// non-Open function is fatal (spec.md §4.2 addPostulate/addAscription/
// addFunctionClauses: "replacing non-open ⇒ fatal").
func (s *Signature) AddFunctionClauses(name string, inv Invertibility, clauses []tt.Clause) error {
	d, ok := s.defs[name]
	if !ok {
		return fatalf("addFunctionClauses", "name %q not declared", name)
	}
	if d.Kind != KindFunction || d.Invertibility != Open {
		return fatalf("addFunctionClauses", "name %q is not an open function", name)
	}
	d.Invertibility = inv
	d.Clauses = clauses
	return nil
}

// AddModule inserts a Module definition naming the qualified names it
// contains.
func (s *Signature) AddModule(name string, inside []string) error {
	if _, exists := s.defs[name]; exists {
		return fatalf("addModule", "duplicate name %q", name)
	}
	s.defs[name] = &Definition{Kind: KindModule, Inside: inside}
	return nil
}

// AddMeta returns a fresh Meta, recording its required type and optional
// origin AST node (spec.md §4.2 addMeta). The invariant "a meta is added
// before its type is consumed" holds because this is the only way to
// obtain a Meta value.
func (s *Signature) AddMeta(ty tt.Term, origin ast.Node) tt.Meta {
	id := s.nextMetaID
	s.nextMetaID++
	s.metas = append(s.metas, MetaEntry{Type: ty, Origin: origin})
	return id
}

// InstantiateMeta records m's solution. m must exist and be unbound;
// rebinding is fatal (spec.md §4.2 instantiateMeta, §3 invariant "a meta is
// bound at most once").
func (s *Signature) InstantiateMeta(m tt.Meta, binding tt.MetaBinding) error {
	idx := int(m)
	if idx < 0 || idx >= len(s.metas) {
		return fatalf("instantiateMeta", "meta %s does not exist", m)
	}
	if s.metas[idx].Bound {
		return fatalf("instantiateMeta", "meta %s already bound", m)
	}
	s.metas[idx].Bound = true
	s.metas[idx].Binding = binding
	return nil
}

// LookupDefinition reads a definition by qualified name (spec.md §4.2
// lookupDefinition).
func (s *Signature) LookupDefinition(name string) (*Definition, bool) {
	d, ok := s.defs[name]
	return d, ok
}

// LookupMetaType reads a meta's required type. Lookup of an unbound meta's
// type always succeeds by the Signature invariant that a meta is added
// before its type is consumed (spec.md §3).
func (s *Signature) LookupMetaType(m tt.Meta) (tt.Term, bool) {
	idx := int(m)
	if idx < 0 || idx >= len(s.metas) {
		return nil, false
	}
	return s.metas[idx].Type, true
}

// LookupMetaBinding reads a meta's solution, if any (spec.md §4.2
// lookupMetaBinding).
func (s *Signature) LookupMetaBinding(m tt.Meta) (tt.MetaBinding, bool) {
	idx := int(m)
	if idx < 0 || idx >= len(s.metas) {
		return tt.MetaBinding{}, false
	}
	e := s.metas[idx]
	if !e.Bound {
		return tt.MetaBinding{}, false
	}
	return e.Binding, true
}

// MetaOrigin reads the AST node a meta was introduced at, for diagnostics.
func (s *Signature) MetaOrigin(m tt.Meta) (ast.Node, bool) {
	idx := int(m)
	if idx < 0 || idx >= len(s.metas) {
		return nil, false
	}
	e := s.metas[idx]
	return e.Origin, e.Origin != nil
}

// MetaBinding implements tt.Env: it returns the internalizable binding
// shape WHNF consumes (Arity + Body), derived from the stored
// tt.MetaBinding.
func (s *Signature) MetaBinding(m tt.Meta) (tt.MetaBinding, bool) {
	return s.LookupMetaBinding(m)
}

// Clauses implements tt.Env: the invertible clause set for a function
// definition, keyed by its qualified name.
func (s *Signature) Clauses(defKey string) (tt.ClauseSet, bool) {
	d, ok := s.defs[defKey]
	if !ok || d.Kind != KindFunction {
		return tt.ClauseSet{}, false
	}
	return tt.ClauseSet{
		Invertible: d.Invertibility == Invertible,
		Clauses:    d.Clauses,
	}, true
}

// RecordShape implements tt.RecordEnv: a record type's constructor and
// field keys in declaration order.
func (s *Signature) RecordShape(typeKey string) (tt.RecordShape, bool) {
	d, ok := s.defs[typeKey]
	if !ok || d.Kind != KindRecord {
		return tt.RecordShape{}, false
	}
	return tt.RecordShape{
		Constructor: tt.OpenedName{Key: d.RecordConstructor},
		FieldKeys:   d.Projections,
	}, true
}

// UnsolvedMetas returns the ids of every meta still unbound, in ascending
// order: a legal outcome the diagnostics collaborator reports (spec.md
// §4.4 "terminate with unsolved metas, a legal outcome").
func (s *Signature) UnsolvedMetas() []tt.Meta {
	var out []tt.Meta
	for i, e := range s.metas {
		if !e.Bound {
			out = append(out, tt.Meta(i))
		}
	}
	return out
}
