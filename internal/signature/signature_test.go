package signature

import (
	"testing"

	"github.com/silt-lang/silt/internal/tt"
)

func TestAddDataThenConstructorRoundTrip(t *testing.T) {
	s := New()
	if err := s.AddData("Nat", nil, tt.Type{}); err != nil {
		t.Fatalf("AddData: %v", err)
	}
	if err := s.AddConstructor("zero", "Nat", 0, Contextual{Inside: tt.D(tt.OpenedName{Key: "Nat"})}); err != nil {
		t.Fatalf("AddConstructor zero: %v", err)
	}
	if err := s.AddConstructor("suc", "Nat", 1, Contextual{Inside: tt.D(tt.OpenedName{Key: "Nat"})}); err != nil {
		t.Fatalf("AddConstructor suc: %v", err)
	}
	d, ok := s.LookupDefinition("Nat")
	if !ok || d.Kind != KindData {
		t.Fatalf("expected Nat to be a data definition, got %#v", d)
	}
	if len(d.Constructors) != 2 || d.Constructors[0] != "zero" || d.Constructors[1] != "suc" {
		t.Fatalf("unexpected constructor list: %v", d.Constructors)
	}
}

func TestAddConstructorMissingParentIsFatal(t *testing.T) {
	s := New()
	err := s.AddConstructor("zero", "Nat", 0, Contextual{})
	if err == nil {
		t.Fatalf("expected fatal error for missing parent")
	}
}

func TestAddDataDuplicateNameIsFatal(t *testing.T) {
	s := New()
	if err := s.AddData("Nat", nil, tt.Type{}); err != nil {
		t.Fatalf("AddData: %v", err)
	}
	if err := s.AddData("Nat", nil, tt.Type{}); err == nil {
		t.Fatalf("expected fatal error for duplicate name")
	}
}

func TestAddFunctionClausesReplacesOpenDeclaration(t *testing.T) {
	s := New()
	if err := s.AddAscription("id", nil, tt.Type{}); err != nil {
		t.Fatalf("AddAscription: %v", err)
	}
	clauses := []tt.Clause{{Patterns: []tt.Pattern{tt.PVar{Name: "x"}}, Body: tt.V("x", 0)}}
	if err := s.AddFunctionClauses("id", Invertible, clauses); err != nil {
		t.Fatalf("AddFunctionClauses: %v", err)
	}
	cs, ok := s.Clauses("id")
	if !ok || !cs.Invertible || len(cs.Clauses) != 1 {
		t.Fatalf("unexpected clause set: %#v", cs)
	}
}

func TestAddFunctionClausesOnNonOpenIsFatal(t *testing.T) {
	s := New()
	if err := s.AddAscription("id", nil, tt.Type{}); err != nil {
		t.Fatalf("AddAscription: %v", err)
	}
	clauses := []tt.Clause{{Patterns: []tt.Pattern{tt.PVar{Name: "x"}}, Body: tt.V("x", 0)}}
	if err := s.AddFunctionClauses("id", Invertible, clauses); err != nil {
		t.Fatalf("first AddFunctionClauses: %v", err)
	}
	if err := s.AddFunctionClauses("id", Invertible, clauses); err == nil {
		t.Fatalf("expected fatal error replacing a non-open function")
	}
}

func TestMetaLifecycle(t *testing.T) {
	s := New()
	m := s.AddMeta(tt.Type{}, nil)
	if _, bound := s.LookupMetaBinding(m); bound {
		t.Fatalf("fresh meta must be unbound")
	}
	ty, ok := s.LookupMetaType(m)
	if !ok {
		t.Fatalf("meta type lookup must always succeed for an existing meta")
	}
	if _, isType := ty.(tt.Type); !isType {
		t.Fatalf("unexpected meta type: %v", ty)
	}
	binding := tt.MetaBinding{Arity: 1, Body: tt.V("x", 0)}
	if err := s.InstantiateMeta(m, binding); err != nil {
		t.Fatalf("InstantiateMeta: %v", err)
	}
	got, ok := s.LookupMetaBinding(m)
	if !ok || got.Arity != 1 {
		t.Fatalf("unexpected binding after instantiation: %#v", got)
	}
	if err := s.InstantiateMeta(m, binding); err == nil {
		t.Fatalf("expected fatal error on rebinding a solved meta")
	}
}

func TestUnsolvedMetas(t *testing.T) {
	s := New()
	a := s.AddMeta(tt.Type{}, nil)
	_ = s.AddMeta(tt.Type{}, nil)
	c := s.AddMeta(tt.Type{}, nil)
	if err := s.InstantiateMeta(a, tt.MetaBinding{Body: tt.Type{}}); err != nil {
		t.Fatalf("InstantiateMeta: %v", err)
	}
	unsolved := s.UnsolvedMetas()
	if len(unsolved) != 2 || unsolved[0] != 1 || unsolved[1] != c {
		t.Fatalf("unexpected unsolved set: %v", unsolved)
	}
}

func TestRecordShapeAndEtaEnvIntegration(t *testing.T) {
	s := New()
	if err := s.AddRecord("Point", nil, tt.Type{}); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if err := s.AddConstructor("mkPoint", "Point", 2, Contextual{}); err != nil {
		t.Fatalf("AddConstructor: %v", err)
	}
	if err := s.AddProjection("x", 0, "Point", Contextual{}); err != nil {
		t.Fatalf("AddProjection x: %v", err)
	}
	if err := s.AddProjection("y", 1, "Point", Contextual{}); err != nil {
		t.Fatalf("AddProjection y: %v", err)
	}
	shape, ok := s.RecordShape("Point")
	if !ok || shape.Constructor.Key != "mkPoint" || len(shape.FieldKeys) != 2 {
		t.Fatalf("unexpected record shape: %#v", shape)
	}
	ty := tt.D(tt.OpenedName{Key: "Point"})
	v := tt.V("p", 0)
	expanded, ok := tt.EtaExpandRecord(s, ty, v)
	if !ok {
		t.Fatalf("expected eta expansion against signature-backed record shape to succeed")
	}
	if _, isCtor := expanded.(tt.Constructor); !isCtor {
		t.Fatalf("expected a Constructor, got %T", expanded)
	}
}
