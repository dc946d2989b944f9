// Package gir implements the CPS graph intermediate representation
// spec.md §3/§4.9 describes: continuations are basic blocks, every
// control transfer is an `apply`/`switch_constr`/`unreachable` terminator,
// and values carry intrusive def-use lists the way the teacher's own
// SSA-shaped IR does (internal/core/core.go's ANF nodes), generalized from
// a list of named let-bindings to a graph of continuations.
package gir

import "github.com/silt-lang/silt/internal/girtypes"

// Category mirrors girtypes.Category on the value itself: every GIR value
// is either a plain object (loadable/storable directly) or an address
// (must go through the `_address` primop family), per spec.md §3 "GIR
// value". Re-declared here rather than imported so gir's own doc comments
// and switch statements read in terms of values, not types.
type Category = girtypes.Category

const (
	Object  = girtypes.Object
	Address = girtypes.Address
)

// Value is anything a PrimOp operand or a terminator's operand list can
// reference: a Parameter, a Continuation (referenced as a callee, never as
// a data operand), or a PrimOp's own result.
type Value interface {
	// Identity is a value's address-stable identifier, used for use-list
	// bookkeeping and textual naming; it is NOT structural equality.
	Identity() *Identity
	Type() girtypes.Type
	Category() Category
}

// Identity is shared plumbing embedded into every Value implementation: an
// assigned name and the intrusive head of its use list.
type Identity struct {
	name    string
	useHead *Use
}

func (id *Identity) Identity() *Identity { return id }

// Name returns the value's assigned textual name (spec.md §6 grammar's
// `%id`), empty until the owning Module or Builder names it.
func (id *Identity) Name() string { return id.name }

// SetName assigns the value's textual name. Builders call this once, at
// creation time.
func (id *Identity) SetName(name string) { id.name = name }

// Use is one intrusive node of a value's use list: Operand is the operand
// slot referencing the value (so a use can be rewritten or removed without
// a separate index), User is the instruction or terminator holding that
// slot, and Next threads the list.
type Use struct {
	Value   Value
	Operand *Value
	User    interface{}
	next    *Use
	prev    *Use
}

// Uses returns every live use of v, in no particular order (spec.md §5
// "no locking beyond implied exclusive ownership" — iteration is safe only
// while the owning Module is not concurrently mutated, which this
// single-threaded model never does anyway).
func Uses(v Value) []*Use {
	var out []*Use
	for u := v.Identity().useHead; u != nil; u = u.next {
		out = append(out, u)
	}
	return out
}

// addUse links a new Use onto v's list. Called by setOperand whenever an
// operand slot is pointed at v.
func addUse(v Value, operand *Value, user interface{}) *Use {
	id := v.Identity()
	u := &Use{Value: v, Operand: operand, User: user, next: id.useHead}
	if id.useHead != nil {
		id.useHead.prev = u
	}
	id.useHead = u
	return u
}

// removeUse unlinks u from its value's use list.
func removeUse(u *Use) {
	if u == nil {
		return
	}
	if u.prev != nil {
		u.prev.next = u.next
	} else if u.Value != nil {
		u.Value.Identity().useHead = u.next
	}
	if u.next != nil {
		u.next.prev = u.prev
	}
}

// setOperand points *slot at v, maintaining v's use list and releasing any
// use the slot previously held. Builders and rewrites (replaceAllUsesWith)
// go through this rather than assigning the operand slot directly.
func setOperand(slot *Value, v Value, user interface{}, existing *Use) *Use {
	removeUse(existing)
	*slot = v
	if v == nil {
		return nil
	}
	return addUse(v, slot, user)
}

// ReplaceAllUsesWith repoints every live use of old at repl, leaving old
// with no uses (spec.md §3 "Lifecycle": "GIR continuations/primops...
// rewired via replaceAllUsesWith").
func ReplaceAllUsesWith(old, repl Value) {
	head := old.Identity().useHead
	old.Identity().useHead = nil
	for u := head; u != nil; {
		next := u.next
		*u.Operand = repl
		addUse(repl, u.Operand, u.User)
		u = next
	}
}

// Parameter is a continuation's formal parameter: a Value in its own
// right, bound by the continuation that declares it.
type Parameter struct {
	Identity
	ty  girtypes.Type
	cat Category
}

func NewParameter(name string, ty girtypes.Type, cat Category) *Parameter {
	p := &Parameter{ty: ty, cat: cat}
	p.SetName(name)
	return p
}

func (p *Parameter) Type() girtypes.Type { return p.ty }
func (p *Parameter) Category() Category  { return p.cat }
