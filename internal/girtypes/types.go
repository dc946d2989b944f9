// Package girtypes classifies TT types into their lowered GIR form
// (spec.md §4.6): every GIR type carries the facets a code generator needs
// to decide how a value of that type is passed, copied, and destroyed —
// whether it is trivial (no copy/destroy required), address-only (must be
// manipulated indirectly through a buffer), and complete (not still being
// defined, i.e. not a provisional cycle placeholder).
package girtypes

import (
	"fmt"
	"strings"
)

// Category distinguishes a GIR value that can be loaded/stored directly
// (Object) from one that must be projected/copied through the `_address`
// primop family (Address), per spec.md §3 "GIR value".
type Category int

const (
	Object Category = iota
	Address
)

func (c Category) String() string {
	if c == Address {
		return "address"
	}
	return "object"
}

// Type is the common interface every lowered GIR type implements.
type Type interface {
	fmt.Stringer
	girType()
	// Trivial reports whether a value of this type needs no copy_value /
	// destroy_value treatment.
	Trivial() bool
	// AddressOnly reports whether a value of this type must always be
	// manipulated through the `_address` primop family, never loaded as
	// a plain object.
	AddressOnly() bool
}

// BottomType is the singleton return type of a terminator that never
// returns control (spec.md §3 "GIR types").
type BottomType struct{}

func (BottomType) girType()          {}
func (BottomType) Trivial() bool     { return true }
func (BottomType) AddressOnly() bool { return true }
func (BottomType) String() string    { return "@bottom" }

// TypeType is the self-typed universe of GIR types (spec.md §4.6: "Type
// lowers to TypeType (trivial, address-only)").
type TypeType struct{}

func (TypeType) girType()          {}
func (TypeType) Trivial() bool     { return true }
func (TypeType) AddressOnly() bool { return true }
func (TypeType) String() string    { return "@type" }

// TypeMetadataType is the runtime descriptor a TypeType value carries
// when reified (spec.md §3 "GIR types").
type TypeMetadataType struct{}

func (TypeMetadataType) girType()          {}
func (TypeMetadataType) Trivial() bool     { return true }
func (TypeMetadataType) AddressOnly() bool { return true }
func (TypeMetadataType) String() string    { return "@type_metadata" }

// NatType is the peephole-optimized Peano-naturals representation
// (spec.md §4.6's "small peephole"): a trivial, directly-held natural
// number rather than a boxed two-constructor inductive.
type NatType struct{}

func (NatType) girType()          {}
func (NatType) Trivial() bool     { return true }
func (NatType) AddressOnly() bool { return false }
func (NatType) String() string    { return "@nat" }

// FunctionType is the lowering of a TT Π type: a closure value (thin
// function reference, since this module does not model captured
// environments beyond what `thicken` already wraps) — trivial, never
// address-only.
type FunctionType struct {
	Params []Type
	Result Type
}

func (*FunctionType) girType()          {}
func (*FunctionType) Trivial() bool     { return true }
func (*FunctionType) AddressOnly() bool { return false }
func (f *FunctionType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("(%s)->%s", strings.Join(parts, ","), f.Result)
}

// TupleType is the payload shape a data constructor's fields are lowered
// into. Trivial/AddressOnly are the composite of its elements: trivial
// only if every element is, address-only if any element is.
type TupleType struct {
	Elements []Type
	Cat      Category
}

func (*TupleType) girType() {}
func (t *TupleType) Trivial() bool {
	for _, e := range t.Elements {
		if !e.Trivial() {
			return false
		}
	}
	return true
}
func (t *TupleType) AddressOnly() bool {
	for _, e := range t.Elements {
		if e.AddressOnly() {
			return true
		}
	}
	return false
}
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ","))
}

// ConstructorLayout is one data constructor's lowered payload: its field
// types tupled together, with Boxed[i] recording whether that field had
// to be boxed because its own type was still being lowered when this
// constructor was reached (a recursive occurrence, spec.md §4.6).
type ConstructorLayout struct {
	Name    string
	Payload []Type
	Boxed   []bool
}

// DataType is the lowering of an applied data definition. Trivial and
// AddressOnly are computed once, from every constructor's payload,
// during lowering rather than derived structurally afterward, since a
// boxed recursive field breaks the usual element-wise composition (a box
// is itself trivial regardless of what it contains).
type DataType struct {
	Name         string
	Indices      []Type
	Constructors []ConstructorLayout
	Cat          Category
	trivial      bool
	addressOnly  bool
}

func (*DataType) girType()            {}
func (d *DataType) Trivial() bool     { return d.trivial }
func (d *DataType) AddressOnly() bool { return d.addressOnly }
func (d *DataType) String() string    { return "@" + d.Name }

// RecordType is the lowering of an applied record definition: a single
// constructor's worth of fields, structurally identical to a DataType
// with one ConstructorLayout but kept distinct so a printer or generator
// can special-case records (spec.md §4.8 step 4's "for records with
// wildcards" distinction, which only applies to this shape).
type RecordType struct {
	Name        string
	Fields      []Type
	Cat         Category
	trivial     bool
	addressOnly bool
}

func (*RecordType) girType()            {}
func (r *RecordType) Trivial() bool     { return r.trivial }
func (r *RecordType) AddressOnly() bool { return r.addressOnly }
func (r *RecordType) String() string    { return "@" + r.Name }

// Archetype stands for one of a parameterized data/record type's own
// telescope entries, referenced from inside its own constructor or field
// types before any concrete argument has been substituted in.
type Archetype struct {
	Index int
}

func (Archetype) girType()          {}
func (Archetype) Trivial() bool     { return false }
func (Archetype) AddressOnly() bool { return true }
func (a Archetype) String() string  { return fmt.Sprintf("@archetype(%d)", a.Index) }

// SubstitutedType applies concrete argument types to a parameterized
// Substitutee (a DataType or RecordType whose own constructor/field types
// still mention Archetype placeholders).
type SubstitutedType struct {
	Substitutee   Type
	Substitutions []Type
}

func (*SubstitutedType) girType() {}
func (s *SubstitutedType) Trivial() bool {
	return s.Substitutee.Trivial()
}
func (s *SubstitutedType) AddressOnly() bool {
	return s.Substitutee.AddressOnly()
}
func (s *SubstitutedType) String() string {
	parts := make([]string, len(s.Substitutions))
	for i, t := range s.Substitutions {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s<%s>", s.Substitutee, strings.Join(parts, ","))
}

// BoxType is heap indirection introduced for a recursive constructor
// field (spec.md §4.6). It starts out Unresolved (naming the pending data
// type) and is backfilled with Underlying once that type's own lowering
// completes — held by pointer so every reference observes the fixup.
type BoxType struct {
	Underlying Type
	Unresolved string
}

func (*BoxType) girType()          {}
func (*BoxType) Trivial() bool     { return false }
func (*BoxType) AddressOnly() bool { return false }
func (b *BoxType) String() string {
	if b.Underlying != nil {
		return "@box " + b.Underlying.String()
	}
	return "@box(" + b.Unresolved + ")"
}
