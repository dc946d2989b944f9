package gir

import (
	"fmt"
	"strings"

	"github.com/silt-lang/silt/internal/girtypes"
)

// typeString renders a girtypes.Type per spec.md §6's `girtype` production
// (`@box`? `*`? typename_or_apply): `*` marks an address-category value,
// `@box` marks a BoxType, everything else falls back to the type's own
// String().
func typeString(ty girtypes.Type, cat Category) string {
	s := ty.String()
	if _, ok := ty.(*girtypes.BoxType); ok {
		return "@box " + s
	}
	if cat == Address {
		return "*" + s
	}
	return s
}

func operandList(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = "%" + v.Identity().Name()
	}
	return strings.Join(parts, "; ")
}

func paramList(ps []*Parameter) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%%%s: %s", p.Name(), typeString(p.Type(), p.Category()))
	}
	return "(" + strings.Join(parts, "; ") + ")"
}

func writeTerminator(b *strings.Builder, t Terminator) {
	switch t := t.(type) {
	case *ApplyTerm:
		fmt.Fprintf(b, "apply %%%s(%s): %s\n", t.Callee.Identity().Name(), operandList(t.Args), t.ResultType)
	case *SwitchConstrTerm:
		fmt.Fprintf(b, "switch_constr %%%s: %s", t.Scrutinee.Identity().Name(), t.ResultType)
		for _, a := range t.Arms {
			fmt.Fprintf(b, "; %s: %%%s", a.Constructor, a.Target.Identity().Name())
		}
		if t.Default != nil {
			fmt.Fprintf(b, "; default %%%s", t.Default.Identity().Name())
		}
		b.WriteString("\n")
	case UnreachableTerm:
		b.WriteString("unreachable\n")
	}
}

func writeContinuation(b *strings.Builder, c *Continuation) {
	fmt.Fprintf(b, "  %s%s:\n", c.Name(), paramList(c.Params))
	for _, op := range c.Body {
		fmt.Fprintf(b, "    %s\n", op.String())
	}
	b.WriteString("    ")
	writeTerminator(b, c.Term)
}

func writeDecl(b *strings.Builder, d *Decl) {
	fmt.Fprintf(b, "@%s : %s {\n", d.Name, d.Type)
	for _, c := range d.Continuations {
		writeContinuation(b, c)
	}
	b.WriteString("}\n")
}

// Print renders m per spec.md §6's bit-exact grammar.
func Print(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s where\n", m.Name)
	for _, d := range m.Decls() {
		writeDecl(&b, d)
	}
	return b.String()
}
