package tt

// RecordShape is the information eta-expansion needs about a record type:
// its single constructor and the field keys in declaration order.
type RecordShape struct {
	Constructor OpenedName
	FieldKeys   []string
}

// RecordEnv is the subset of the Signature eta-expansion consults.
// internal/signature.Signature implements it.
type RecordEnv interface {
	RecordShape(typeKey string) (RecordShape, bool)
}

// EtaExpandPi expands t : Π S. T to λ. eliminate(weaken(t), apply v0)
// (spec.md §4.1).
func EtaExpandPi(t Term) Term {
	shifted := shiftTerm(t, 1)
	return Lambda{Body: eliminate(shifted, ApplyArg{Arg: V("_", 0)})}
}

// EtaExpandRecord expands a non-constructor term t at record type ty to
// Constructor(con, [eliminate(t, project(f)) | f <- fields]) (spec.md
// §4.1). ok is false when ty isn't a record type or t is already headed
// by a constructor (nothing to expand).
func EtaExpandRecord(env RecordEnv, ty Term, t Term) (Term, bool) {
	if _, already := t.(Constructor); already {
		return t, false
	}
	ap, ok := ty.(Apply)
	if !ok {
		return t, false
	}
	dh, ok := ap.Head.(DefHead)
	if !ok {
		return t, false
	}
	shape, ok := env.RecordShape(dh.Name.Key)
	if !ok {
		return t, false
	}
	fields := make([]Term, len(shape.FieldKeys))
	for i, fk := range shape.FieldKeys {
		proj := Project{Field: OpenedName{Key: fk, Args: dh.Name.Args}, Index: i}
		fields[i] = eliminate(t, proj)
	}
	return Constructor{Name: shape.Constructor, Args: fields}, true
}

// ContractLambda inverts EtaExpandPi where syntactically obvious: λ. (f v0)
// with f not depending on v0 contracts to f.
func ContractLambda(t Term) (Term, bool) {
	lam, ok := t.(Lambda)
	if !ok {
		return t, false
	}
	ap, ok := lam.Body.(Apply)
	if !ok || len(ap.Elims) == 0 {
		return t, false
	}
	last, ok := ap.Elims[len(ap.Elims)-1].(ApplyArg)
	if !ok {
		return t, false
	}
	argAp, ok := last.Arg.(Apply)
	if !ok || len(argAp.Elims) != 0 {
		return t, false
	}
	vh, ok := argAp.Head.(VarHead)
	if !ok || vh.Index != 0 {
		return t, false
	}
	shorter := Apply{Head: ap.Head, Elims: ap.Elims[:len(ap.Elims)-1]}
	result, err := ApplyChecked(Strengthen(1, Id), shorter)
	if err != nil {
		return t, false
	}
	return result, true
}

// ContractRecord inverts EtaExpandRecord where syntactically obvious:
// Constructor(c, project-all(t)) contracts to t when every argument is a
// consecutive projection off the same base term.
func ContractRecord(t Term) (Term, bool) {
	ctor, ok := t.(Constructor)
	if !ok || len(ctor.Args) == 0 {
		return t, false
	}
	base, ok := projectionBase(ctor.Args[0], 0)
	if !ok {
		return t, false
	}
	for i, a := range ctor.Args {
		b, ok := projectionBase(a, i)
		if !ok || !Equals(b, base) {
			return t, false
		}
	}
	return base, true
}

func projectionBase(t Term, expectIndex int) (Term, bool) {
	ap, ok := t.(Apply)
	if !ok || len(ap.Elims) == 0 {
		return nil, false
	}
	last, ok := ap.Elims[len(ap.Elims)-1].(Project)
	if !ok || last.Index != expectIndex {
		return nil, false
	}
	return Apply{Head: ap.Head, Elims: ap.Elims[:len(ap.Elims)-1]}, true
}
