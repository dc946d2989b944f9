package gir

import (
	"fmt"

	"github.com/silt-lang/silt/internal/girtypes"
)

// Decl is one top-level `@qualname : girtype { continuation+ }` (spec.md
// §6 grammar's `decl` production): Continuations[0] is always the entry
// block.
type Decl struct {
	Name          string
	Type          girtypes.Type
	Continuations []*Continuation
}

func (d *Decl) Entry() *Continuation {
	if len(d.Continuations) == 0 {
		return nil
	}
	return d.Continuations[0]
}

// Module owns every top-level declaration plus the type-uniquing table
// its continuations' girtypes.Lowerer was built against (spec.md §4.9
// "module owns continuations..., primops, type unique-tables").
type Module struct {
	Name   string
	Types  *girtypes.Table
	decls  []*Decl
	byName map[string]*Decl
}

func NewModule(name string, types *girtypes.Table) *Module {
	return &Module{Name: name, Types: types, byName: map[string]*Decl{}}
}

// AddDecl inserts d, keyed by its mangled name. A duplicate name is a
// structural bug in the caller — fatal, the same way Signature treats a
// duplicate definition (spec.md §5 "duplicate name addition are fatal
// crashes").
func (m *Module) AddDecl(d *Decl) {
	if _, exists := m.byName[d.Name]; exists {
		panic(fmt.Sprintf("gir: duplicate declaration %q", d.Name))
	}
	m.byName[d.Name] = d
	m.decls = append(m.decls, d)
}

// Decls returns every declaration, in insertion order.
func (m *Module) Decls() []*Decl { return m.decls }

// Lookup finds a declaration by its mangled name.
func (m *Module) Lookup(name string) (*Decl, bool) {
	d, ok := m.byName[name]
	return d, ok
}

// ReversePostOrder is a snapshotted view over one Decl's continuation
// graph: a depth-first traversal from the entry block, continuations
// listed in reverse postorder, with each continuation's position recorded
// at construction time so later index comparisons ("does A dominate-ready
// precede B") are O(1) rather than re-walking the list (spec.md §4.9
// "Reverse post-order... captures indices on first construction for cheap
// ordering comparisons").
type ReversePostOrder struct {
	order []*Continuation
	index map[*Continuation]int
}

// Order returns the continuations in reverse postorder.
func (r *ReversePostOrder) Order() []*Continuation { return r.order }

// IndexOf reports c's position in the order, or -1 if c is unreachable
// from the entry block this view was built from.
func (r *ReversePostOrder) IndexOf(c *Continuation) int {
	if i, ok := r.index[c]; ok {
		return i
	}
	return -1
}

// Precedes reports whether a's reverse-postorder index precedes b's — a
// necessary (not sufficient) condition for a to dominate b, which is what
// makes this view "dominator-ready" without itself computing dominance.
func (r *ReversePostOrder) Precedes(a, b *Continuation) bool {
	ia, ib := r.IndexOf(a), r.IndexOf(b)
	return ia >= 0 && ib >= 0 && ia < ib
}

// BuildReversePostOrder walks d's continuation graph depth-first from its
// entry block and records reverse postorder.
func BuildReversePostOrder(d *Decl) *ReversePostOrder {
	entry := d.Entry()
	var postorder []*Continuation
	visited := map[*Continuation]bool{}
	var visit func(*Continuation)
	visit = func(c *Continuation) {
		if c == nil || visited[c] {
			return
		}
		visited[c] = true
		for _, s := range c.Successors() {
			visit(s)
		}
		postorder = append(postorder, c)
	}
	visit(entry)

	order := make([]*Continuation, len(postorder))
	index := make(map[*Continuation]int, len(postorder))
	for i, c := range postorder {
		rev := len(postorder) - 1 - i
		order[rev] = c
		index[c] = rev
	}
	return &ReversePostOrder{order: order, index: index}
}
