package sid

import "testing"

func TestNewSIDIsDeterministic(t *testing.T) {
	a := NewSID("t.silt", 10, 14, "*ast.VarExpr", nil)
	b := NewSID("t.silt", 10, 14, "*ast.VarExpr", nil)
	if a != b {
		t.Fatalf("expected the same inputs to hash to the same id, got %s and %s", a, b)
	}
}

func TestNewSIDDistinguishesByKind(t *testing.T) {
	a := NewSID("t.silt", 10, 14, "*ast.VarExpr", nil)
	b := NewSID("t.silt", 10, 14, "*ast.PiExpr", nil)
	if a == b {
		t.Fatalf("expected different node kinds at the same span to hash differently")
	}
}

func TestNewSIDDistinguishesByOffset(t *testing.T) {
	a := NewSID("t.silt", 10, 14, "*ast.VarExpr", nil)
	b := NewSID("t.silt", 11, 15, "*ast.VarExpr", nil)
	if a == b {
		t.Fatalf("expected different offsets to hash differently")
	}
}

func TestNewSIDDistinguishesByChildPath(t *testing.T) {
	a := NewSID("t.silt", 10, 14, "*ast.ApplyExpr", []int{0})
	b := NewSID("t.silt", 10, 14, "*ast.ApplyExpr", []int{1})
	if a == b {
		t.Fatalf("expected different child paths to hash differently")
	}
}
