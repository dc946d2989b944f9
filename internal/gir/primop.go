package gir

import (
	"fmt"
	"strings"

	"github.com/silt-lang/silt/internal/girtypes"
)

// Opcode enumerates the non-terminator primop vocabulary spec.md §6's
// grammar names under `opcode`.
type Opcode int

const (
	OpAlloca Opcode = iota
	OpDealloca
	OpAllocBox
	OpDeallocBox
	OpProjectBox
	OpLoadTake
	OpLoadCopy
	OpStore
	OpCopyValue
	OpDestroyValue
	OpCopyAddress
	OpDestroyAddress
	OpFunctionRef
	OpDataInit
	OpTuple
	OpTupleElementAddress
	OpThicken
	OpForceEffects
)

func (op Opcode) String() string {
	switch op {
	case OpAlloca:
		return "alloca"
	case OpDealloca:
		return "dealloca"
	case OpAllocBox:
		return "alloc_box"
	case OpDeallocBox:
		return "dealloc_box"
	case OpProjectBox:
		return "project_box"
	case OpLoadTake:
		return "load[take]"
	case OpLoadCopy:
		return "load[copy]"
	case OpStore:
		return "store"
	case OpCopyValue:
		return "copy_value"
	case OpDestroyValue:
		return "destroy_value"
	case OpCopyAddress:
		return "copy_address"
	case OpDestroyAddress:
		return "destroy_address"
	case OpFunctionRef:
		return "function_ref"
	case OpDataInit:
		return "data_init"
	case OpTuple:
		return "tuple"
	case OpTupleElementAddress:
		return "tuple_element_address"
	case OpThicken:
		return "thicken"
	case OpForceEffects:
		return "force_effects"
	default:
		return fmt.Sprintf("opcode(%d)", int(op))
	}
}

// PrimOp is one non-terminator instruction in a continuation's body. Its
// result (when it has one; alloca/dealloca/store/destroy_* family members
// produce no value) is itself a Value other instructions may operand-use.
type PrimOp struct {
	Identity
	Op         Opcode
	Operands   []Value
	operandUse []*Use
	// Attr carries opcode-specific payload that isn't itself a Value:
	// function_ref's callee name, data_init/tuple_element_address's field
	// index, switch_constr's case table lives on the terminator instead.
	Attr interface{}
	ty   girtypes.Type
	cat  Category
}

// FunctionRefAttr is OpFunctionRef's Attr: the mangled name of the
// continuation-group (top-level function) being referenced.
type FunctionRefAttr struct{ Callee string }

// DataInitAttr is OpDataInit's Attr: which constructor of the result data
// type is being assembled.
type DataInitAttr struct{ Constructor string }

// TupleElementAddressAttr/ProjectBoxAttr name the field index being
// projected.
type TupleElementAddressAttr struct{ Index int }

func NewPrimOp(name string, op Opcode, ty girtypes.Type, cat Category, attr interface{}) *PrimOp {
	p := &PrimOp{Op: op, Attr: attr, ty: ty, cat: cat}
	p.SetName(name)
	return p
}

func (p *PrimOp) Type() girtypes.Type { return p.ty }
func (p *PrimOp) Category() Category  { return p.cat }

// AddOperand appends v as a new operand, tracking its use.
func (p *PrimOp) AddOperand(v Value) {
	p.Operands = append(p.Operands, nil)
	p.operandUse = append(p.operandUse, nil)
	i := len(p.Operands) - 1
	p.operandUse[i] = setOperand(&p.Operands[i], v, p, nil)
}

func (p *PrimOp) String() string {
	parts := make([]string, len(p.Operands))
	for i, o := range p.Operands {
		parts[i] = o.Identity().Name()
	}
	prefix := ""
	if p.Name() != "" {
		prefix = "%" + p.Name() + " = "
	}
	attr := ""
	switch a := p.Attr.(type) {
	case FunctionRefAttr:
		attr = " " + a.Callee
	case DataInitAttr:
		attr = " " + a.Constructor
	case TupleElementAddressAttr:
		attr = " " + fmt.Sprintf("%d", a.Index)
	}
	return fmt.Sprintf("%s%s%s %s", prefix, p.Op, attr, strings.Join(parts, " "))
}
