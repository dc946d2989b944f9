package tt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func cmpTerm(t *testing.T, got, want Term) {
	t.Helper()
	if !Equals(got, want) {
		t.Errorf("terms differ (-want +got):\n%s", cmp.Diff(want, got))
	}
}

// sample builds a small open term: λ. (f v0 v1) where f is a free var at
// index 1 (one beyond the lambda's own binder) and v1 is free at index 0
// outside the lambda.
func sampleOpenTerm() Term {
	return Lambda{
		Body: Apply{
			Head: VarHead{Name: "f", Index: 2},
			Elims: []Elim{
				ApplyArg{Arg: V("x", 0)},
				ApplyArg{Arg: V("y", 1)},
			},
		},
	}
}

func TestApplyIdentity(t *testing.T) {
	term := sampleOpenTerm()
	got := Apply_(Id, term)
	cmpTerm(t, got, term)
}

func TestApplyComposition(t *testing.T) {
	// apply(σ, apply(τ, t)) ≡ apply(σ ∘ τ, t) for σ = Weaken 2, τ = Weaken 3.
	term := sampleOpenTerm()
	inner := Apply_(Weaken(3, Id), term)
	lhs := Apply_(Weaken(2, Id), inner)
	rhs := Apply_(Weaken(5, Id), term) // Weaken(2, Weaken(3, Id)) folds to Weaken(5, Id)
	cmpTerm(t, lhs, rhs)
}

func TestWeakenStrengthenRoundTrip(t *testing.T) {
	// A term with no reference to index 0 survives Weaken 1 then Strengthen 1.
	term := Apply{Head: VarHead{Name: "g", Index: 3}}
	weakened := Apply_(Weaken(1, Id), term)
	back, err := ApplyChecked(Strengthen(1, Id), weakened)
	if err != nil {
		t.Fatalf("unexpected strengthening failure: %v", err)
	}
	cmpTerm(t, back, term)
}

func TestStrengthenFailsOnEscapingVariable(t *testing.T) {
	term := V("x", 0)
	_, err := ApplyChecked(Strengthen(1, Id), term)
	if err == nil {
		t.Fatalf("expected strengthening failure, got none")
	}
	var se *StrengthenError
	if !errorsAs(err, &se) {
		t.Fatalf("expected *StrengthenError, got %T", err)
	}
}

func errorsAs(err error, target **StrengthenError) bool {
	se, ok := err.(*StrengthenError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func TestInstantiateLookupZero(t *testing.T) {
	u := Constructor{Name: OpenedName{Key: "tt"}}
	sub := Instantiate(u, Id)
	got, err := Lookup(sub, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmpTerm(t, got, u)
}

func TestInstantiateUnderLambdaBetaReduces(t *testing.T) {
	// (λ. v0) applied to u reduces to u via substitution's eliminate.
	idFn := Lambda{Body: V("x", 0)}
	u := Constructor{Name: OpenedName{Key: "tt"}}
	reduced := eliminate(idFn, ApplyArg{Arg: u})
	cmpTerm(t, reduced, u)
}

func TestProjectReducesAgainstConstructor(t *testing.T) {
	point := Constructor{
		Name: OpenedName{Key: "mkPoint"},
		Args: []Term{Constructor{Name: OpenedName{Key: "one"}}, Constructor{Name: OpenedName{Key: "two"}}},
	}
	yField := Project{Field: OpenedName{Key: "y"}, Index: 1}
	got := eliminate(point, yField)
	cmpTerm(t, got, Constructor{Name: OpenedName{Key: "two"}})
}
