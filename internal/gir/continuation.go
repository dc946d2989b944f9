package gir

import "github.com/silt-lang/silt/internal/girtypes"

// asContinuation reports whether v is itself a local continuation
// reference, the only case a terminator's callee/arm target produces a
// control-flow edge this module's graph views can see; an external
// function_ref/apply pair never does.
func asContinuation(v Value) (*Continuation, bool) {
	c, ok := v.(*Continuation)
	return c, ok
}

// Successor is one intrusive edge of the continuation graph: From is the
// block the edge leaves, To is threaded into To's own predecessor list via
// predNext rather than To holding a plain slice (spec.md §4.9
// "predecessors via intrusive list threaded at each terminator's successor
// slot").
type Successor struct {
	From     *Continuation
	to       *Continuation
	predNext *Successor
}

func newSuccessor(from, to *Continuation) *Successor {
	s := &Successor{From: from, to: to}
	link(s, to)
	return s
}

func link(s *Successor, to *Continuation) {
	if to == nil {
		return
	}
	s.to = to
	s.predNext = to.predHead
	to.predHead = s
}

func unlink(s *Successor) {
	if s == nil || s.to == nil {
		return
	}
	head := s.to.predHead
	if head == s {
		s.to.predHead = s.predNext
	} else {
		for cur := head; cur != nil; cur = cur.predNext {
			if cur.predNext == s {
				cur.predNext = s.predNext
				break
			}
		}
	}
	s.to = nil
	s.predNext = nil
}

// Retarget repoints s at to, relinking To's predecessor list.
func (s *Successor) Retarget(to *Continuation) {
	unlink(s)
	link(s, to)
}

func (s *Successor) To() *Continuation { return s.to }

// Terminator is the sum of the three ways a continuation's body can end
// (spec.md §6 grammar's `terminator` production).
type Terminator interface {
	termNode()
	// Successors reports the local continuations this terminator can
	// transfer control to directly — apply/switch arms whose target value
	// is itself a *Continuation in this module, never an external
	// function reached through function_ref.
	Successors() []*Continuation
}

// ApplyTerm is `apply callee(args...) : resultType`.
type ApplyTerm struct {
	Callee     Value
	Args       []Value
	ResultType girtypes.Type
	succ       *Successor
}

func (*ApplyTerm) termNode() {}
func (t *ApplyTerm) Successors() []*Continuation {
	if c, ok := asContinuation(t.Callee); ok {
		return []*Continuation{c}
	}
	return nil
}

// SwitchArm is one `qualname : value` case of a switch_constr.
type SwitchArm struct {
	Constructor string
	Target      Value
	succ        *Successor
}

// SwitchConstrTerm is `switch_constr scrutinee : resultType (ctor: target)* (default: d)?`.
type SwitchConstrTerm struct {
	Scrutinee   Value
	ResultType  girtypes.Type
	Arms        []*SwitchArm
	Default     Value
	defaultSucc *Successor
}

func (*SwitchConstrTerm) termNode() {}
func (t *SwitchConstrTerm) Successors() []*Continuation {
	var out []*Continuation
	for _, a := range t.Arms {
		if c, ok := asContinuation(a.Target); ok {
			out = append(out, c)
		}
	}
	if t.Default != nil {
		if c, ok := asContinuation(t.Default); ok {
			out = append(out, c)
		}
	}
	return out
}

// UnreachableTerm is `unreachable`: no successors, no operands.
type UnreachableTerm struct{}

func (UnreachableTerm) termNode()                   {}
func (UnreachableTerm) Successors() []*Continuation { return nil }

// Continuation is one CPS basic block: a parameter list, a straight-line
// primop body, and exactly one terminator. It is itself a Value (spec.md
// §3 "GIR value... subclasses Parameter/Continuation/PrimOp") so a
// terminator or function_ref can reference it directly as a callee.
type Continuation struct {
	Identity
	Params   []*Parameter
	Body     []*PrimOp
	Term     Terminator
	predHead *Successor
}

func NewContinuation(name string, params []*Parameter) *Continuation {
	c := &Continuation{Params: params}
	c.SetName(name)
	return c
}

func (c *Continuation) Type() girtypes.Type {
	params := make([]girtypes.Type, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.Type()
	}
	return &girtypes.FunctionType{Params: params, Result: girtypes.BottomType{}}
}

func (c *Continuation) Category() Category { return Object }

// Emit appends op to c's straight-line body.
func (c *Continuation) Emit(op *PrimOp) *PrimOp {
	c.Body = append(c.Body, op)
	return op
}

// SetApply installs an ApplyTerm, wiring a Successor edge when callee is a
// local continuation.
func (c *Continuation) SetApply(callee Value, args []Value, resultType girtypes.Type) *ApplyTerm {
	t := &ApplyTerm{Callee: callee, Args: args, ResultType: resultType}
	if target, ok := asContinuation(callee); ok {
		t.succ = newSuccessor(c, target)
	}
	c.Term = t
	return t
}

// SetSwitchConstr installs a SwitchConstrTerm, wiring a Successor edge per
// arm (and the default, if present) whose target is a local continuation.
func (c *Continuation) SetSwitchConstr(scrutinee Value, resultType girtypes.Type, arms []*SwitchArm, def Value) *SwitchConstrTerm {
	t := &SwitchConstrTerm{Scrutinee: scrutinee, ResultType: resultType, Arms: arms, Default: def}
	for _, a := range arms {
		if target, ok := asContinuation(a.Target); ok {
			a.succ = newSuccessor(c, target)
		}
	}
	if def != nil {
		if target, ok := asContinuation(def); ok {
			t.defaultSucc = newSuccessor(c, target)
		}
	}
	c.Term = t
	return t
}

// SetUnreachable installs an UnreachableTerm.
func (c *Continuation) SetUnreachable() { c.Term = UnreachableTerm{} }

// Predecessors walks c's intrusive predecessor list, collecting the
// distinct blocks that hold an edge into c.
func (c *Continuation) Predecessors() []*Continuation {
	var out []*Continuation
	for s := c.predHead; s != nil; s = s.predNext {
		out = append(out, s.From)
	}
	return out
}

// Successors delegates to c's terminator, or nil if c has none yet.
func (c *Continuation) Successors() []*Continuation {
	if c.Term == nil {
		return nil
	}
	return c.Term.Successors()
}
