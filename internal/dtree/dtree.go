// Package dtree compiles a function's clause list into a decision tree
// over its parameter vector, following Maranget's pattern matrix algorithm
// (spec.md §4.8). The tree is independent of GIR: it names columns by
// abstract "slots" (fresh integers minted as constructor arms introduce
// payload columns) rather than concrete GIR values, so internal/girgen can
// walk it and allocate real continuations/parameters while staying free of
// the matching algorithm itself.
package dtree

import "github.com/silt-lang/silt/internal/tt"

// Node is one node of a compiled decision tree.
type Node interface {
	nodeNode()
}

// Binding names one pattern variable bound along the path to a Leaf,
// together with the slot (parameter) it was bound from.
type Binding struct {
	Name string
	Slot int
}

// Leaf selects clause ClauseIndex's body once every one of its patterns
// has matched; Bindings lists every named variable the clause's pattern
// vector introduced, in no particular order.
type Leaf struct {
	ClauseIndex int
	Bindings    []Binding
}

func (Leaf) nodeNode() {}

// Unreachable marks a point no live clause covers: either an explicit
// absurd pattern (ClauseIndex names the clause) or a case the matrix
// genuinely has no row for (ClauseIndex is -1), the non-exhaustive-match
// shape spec.md §7 reports as PAT001.
type Unreachable struct{ ClauseIndex int }

func (Unreachable) nodeNode() {}

// Arm is one constructor-headed branch of a Switch.
type Arm struct {
	Constructor string
	Arity       int
	Payload     []int // the fresh slots introduced for this constructor's fields, in order
	Next        Node
}

// Switch dispatches on the value at Slot by constructor head (spec.md
// §4.8 step 5's switch_constr). Default is nil when every row is
// constructor-headed (the scrutinee type's constructors are exhausted by
// Arms alone).
type Switch struct {
	Slot    int
	Arms    []Arm
	Default Node
}

func (Switch) nodeNode() {}

// row is one clause's pattern vector as it stands at some point during
// compilation: cells maps a still-live slot to the pattern occupying it
// (specialized-away slots are simply absent), and bindings accumulates
// every named variable matched so far along this row's path.
type row struct {
	clause   int
	cells    map[int]tt.Pattern
	bindings []Binding
}

// CtorInfo names one constructor of a data type and the number of fields
// it carries.
type CtorInfo struct {
	Name  string
	Arity int
}

// Universe reports every constructor sibling to ctorKey's data type
// (ctorKey included), so specialize can tell a column's constructors
// actually exhaust its type apart from just exhausting the matrix. A nil
// Universe disables this check (every constructor that merely never
// appears in the matrix is silently left uncovered), which is enough for
// tests that only care about the matching shape.
type Universe func(ctorKey string) []CtorInfo

type compiler struct {
	nextSlot int
	universe Universe
}

func (c *compiler) fresh() int {
	s := c.nextSlot
	c.nextSlot++
	return s
}

// Compile builds the decision tree for clauses, a uniform-width clause
// list (spec.md §4.8). Clause indices in the returned tree refer back
// into the clauses slice the caller supplies. universe resolves a
// constructor's siblings so missing cases surface as a synthesized
// Unreachable arm rather than being silently absent from the tree; pass
// nil to skip that check.
func Compile(clauses []tt.Clause, universe Universe) Node {
	c := &compiler{universe: universe}
	width := 0
	if len(clauses) > 0 {
		width = len(clauses[0].Patterns)
	}
	slots := make([]int, width)
	for i := range slots {
		slots[i] = c.fresh()
	}
	rows := make([]row, len(clauses))
	for ci, cl := range clauses {
		cells := make(map[int]tt.Pattern, width)
		for i, p := range cl.Patterns {
			cells[slots[i]] = p
		}
		rows[ci] = row{clause: ci, cells: cells}
	}
	return c.compile(clauses, rows, append([]int(nil), slots...))
}

// isVarOrAbsurd reports whether p is a PVar or PAbsurd — a cell that
// never needs further decomposition to match.
func isVarOrAbsurd(p tt.Pattern) bool {
	switch p.(type) {
	case tt.PVar, tt.PAbsurd:
		return true
	default:
		return false
	}
}

func cloneCellsWithout(cells map[int]tt.Pattern, drop int) map[int]tt.Pattern {
	out := make(map[int]tt.Pattern, len(cells))
	for k, v := range cells {
		if k != drop {
			out[k] = v
		}
	}
	return out
}

func (c *compiler) compile(clauses []tt.Clause, rows []row, unspecialized []int) Node {
	if len(rows) == 0 {
		return Unreachable{ClauseIndex: -1}
	}

	// A row whose remaining columns are all wildcards matches unconditionally,
	// so the first such row wins by clause priority regardless of how many
	// rows follow it (they are redundant — dead under this row, reported by
	// UnreachableClauses). Once every column is consumed (unspecialized is
	// empty) the same rule applies vacuously: only row priority is left.
	first := rows[0]
	if len(unspecialized) == 0 || allVarsOrAbsurd(first, unspecialized) {
		if clauses[first.clause].Absurd {
			return Unreachable{ClauseIndex: first.clause}
		}
		bindings := append([]Binding(nil), first.bindings...)
		for _, slot := range unspecialized {
			if v, ok := first.cells[slot].(tt.PVar); ok && v.Name != "_" {
				bindings = append(bindings, Binding{Name: v.Name, Slot: slot})
			}
		}
		return Leaf{ClauseIndex: first.clause, Bindings: bindings}
	}

	col := pickColumn(rows, unspecialized)
	return c.specialize(clauses, rows, unspecialized, col)
}

// allVarsOrAbsurd reports whether every still-live column of row is a
// variable or absurd pattern (spec.md §4.8 step 1).
func allVarsOrAbsurd(r row, unspecialized []int) bool {
	for _, slot := range unspecialized {
		if !isVarOrAbsurd(r.cells[slot]) {
			return false
		}
	}
	return true
}

// pickColumn scores every unspecialized column (spec.md §4.8 step 2: +1
// per constructor cell, frozen once a wildcard appears) and returns the
// highest-scoring one, ties broken by lowest index.
func pickColumn(rows []row, unspecialized []int) int {
	best, bestScore := unspecialized[0], -1
	for _, slot := range unspecialized {
		score := 0
		for _, r := range rows {
			if _, ok := r.cells[slot].(tt.PConstructor); ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = slot, score
		}
	}
	return best
}

// specialize implements spec.md §4.8 step 4: partitions rows by column
// col's constructor head, in first-appearance order, emitting one arm per
// constructor plus a default arm when any row has a variable there.
func (c *compiler) specialize(clauses []tt.Clause, rows []row, unspecialized []int, col int) Node {
	var order []string
	arity := map[string]int{}
	hasWildcard := false
	for _, r := range rows {
		switch p := r.cells[col].(type) {
		case tt.PConstructor:
			if _, seen := arity[p.Name.Key]; !seen {
				order = append(order, p.Name.Key)
				arity[p.Name.Key] = len(p.Args)
			}
		case tt.PVar:
			hasWildcard = true
		}
	}

	remaining := make([]int, 0, len(unspecialized)-1)
	for _, s := range unspecialized {
		if s != col {
			remaining = append(remaining, s)
		}
	}

	arms := make([]Arm, 0, len(order))
	for _, name := range order {
		n := arity[name]
		payload := make([]int, n)
		for i := range payload {
			payload[i] = c.fresh()
		}
		var armRows []row
		for _, r := range rows {
			switch p := r.cells[col].(type) {
			case tt.PConstructor:
				if p.Name.Key != name {
					continue
				}
				cells := cloneCellsWithout(r.cells, col)
				for i, sp := range p.Args {
					cells[payload[i]] = sp
				}
				armRows = append(armRows, row{clause: r.clause, cells: cells, bindings: r.bindings})
			case tt.PVar:
				cells := cloneCellsWithout(r.cells, col)
				bindings := r.bindings
				if p.Name != "_" {
					bindings = append(append([]Binding(nil), bindings...), Binding{Name: p.Name, Slot: col})
				}
				for _, s := range payload {
					cells[s] = tt.PVar{Name: "_"}
				}
				armRows = append(armRows, row{clause: r.clause, cells: cells, bindings: bindings})
			case tt.PAbsurd:
				// An absurd row never actually reaches this constructor
				// arm — it denies the whole column, not one head of it.
			}
		}
		armUnspecialized := append(append([]int(nil), remaining...), payload...)
		arms = append(arms, Arm{
			Constructor: name, Arity: n, Payload: payload,
			Next: c.compile(clauses, armRows, armUnspecialized),
		})
	}

	// If the column's constructors don't exhaust its type and no row falls
	// back to a wildcard, pad the missing siblings with a synthesized
	// Unreachable so the gap is visible in the tree (spec.md §7 PAT001)
	// instead of silently vanishing because nothing in the matrix names it.
	if !hasWildcard && c.universe != nil && len(order) > 0 {
		for _, sib := range c.universe(order[0]) {
			if _, covered := arity[sib.Name]; !covered {
				arms = append(arms, Arm{Constructor: sib.Name, Arity: sib.Arity, Next: Unreachable{ClauseIndex: -1}})
			}
		}
	}

	var def Node
	if hasWildcard {
		var defRows []row
		for _, r := range rows {
			v, ok := r.cells[col].(tt.PVar)
			if !ok {
				continue
			}
			cells := cloneCellsWithout(r.cells, col)
			bindings := r.bindings
			if v.Name != "_" {
				bindings = append(append([]Binding(nil), bindings...), Binding{Name: v.Name, Slot: col})
			}
			defRows = append(defRows, row{clause: r.clause, cells: cells, bindings: bindings})
		}
		def = c.compile(clauses, defRows, remaining)
	}

	return Switch{Slot: col, Arms: arms, Default: def}
}

// IsExhaustive reports whether n contains no synthesized (ClauseIndex -1)
// Unreachable node — the non-exhaustive-match case spec.md §7 reports as
// PAT001.
func IsExhaustive(n Node) bool {
	switch n := n.(type) {
	case Unreachable:
		return n.ClauseIndex != -1
	case Leaf:
		return true
	case Switch:
		if n.Default != nil && !IsExhaustive(n.Default) {
			return false
		}
		for _, a := range n.Arms {
			if !IsExhaustive(a.Next) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ReachableClauses collects every clause index that appears at a Leaf or
// an explicit Unreachable node somewhere in the tree.
func ReachableClauses(n Node) map[int]bool {
	out := map[int]bool{}
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Leaf:
			out[n.ClauseIndex] = true
		case Unreachable:
			if n.ClauseIndex >= 0 {
				out[n.ClauseIndex] = true
			}
		case Switch:
			for _, a := range n.Arms {
				walk(a.Next)
			}
			if n.Default != nil {
				walk(n.Default)
			}
		}
	}
	walk(n)
	return out
}

// UnreachableClauses returns, in ascending order, every clause index in
// [0,total) that ReachableClauses never visited — the PAT002 diagnostic
// (spec.md §7, §4.8 "Tie-breaking and determinism").
func UnreachableClauses(n Node, total int) []int {
	reached := ReachableClauses(n)
	var out []int
	for i := 0; i < total; i++ {
		if !reached[i] {
			out = append(out, i)
		}
	}
	return out
}
