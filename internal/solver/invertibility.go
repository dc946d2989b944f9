package solver

import (
	"github.com/silt-lang/silt/internal/signature"
	"github.com/silt-lang/silt/internal/tt"
)

// InferInvertibility implements spec.md §4.4.4: a clause's body head
// classifies it. Data/record/postulate/Π heads are possibly invertible if
// the head classes are pairwise distinct across clauses; a
// function/lambda/equality head anywhere makes the whole definition
// non-invertible. Absurd clauses (no body) don't constrain the
// classification.
func InferInvertibility(sig *signature.Signature, clauses []tt.Clause) signature.Invertibility {
	seen := map[string]bool{}
	for _, cl := range clauses {
		if cl.Absurd || cl.Body == nil {
			continue
		}
		key, invertibleHead := classifyBodyHead(sig, cl.Body)
		if !invertibleHead {
			return signature.NotInvertible
		}
		if seen[key] {
			return signature.NotInvertible
		}
		seen[key] = true
	}
	return signature.Invertible
}

// classifyBodyHead returns the equivalence key for a clause body's outer
// shape and whether that shape counts toward possible invertibility at
// all. Constructors classify under their parent data/record type, matching
// spec.md §4.4.4 "Constructors also contribute as their type head".
func classifyBodyHead(sig *signature.Signature, body tt.Term) (key string, invertibleHead bool) {
	switch b := body.(type) {
	case tt.Pi:
		return "Π", true
	case tt.Equal, tt.Lambda:
		return "", false
	case tt.Constructor:
		d, ok := sig.LookupDefinition(b.Name.Key)
		if !ok {
			return "", false
		}
		return d.Parent, true
	case tt.Apply:
		dh, ok := b.Head.(tt.DefHead)
		if !ok {
			return "", false
		}
		d, ok := sig.LookupDefinition(dh.Name.Key)
		if !ok {
			return "", false
		}
		switch d.Kind {
		case signature.KindData, signature.KindRecord, signature.KindPostulate:
			return dh.Name.Key, true
		default:
			return "", false
		}
	default:
		return "", false
	}
}
