// Package errors provides structured diagnostic encoding for the
// elaboration/unification/lowering pipeline's diagnostics sink.
package errors

import (
	"fmt"

	"github.com/silt-lang/silt/internal/schema"
)

// Fix represents a suggested fix with confidence score.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded represents a structured diagnostic in JSON form — the machine-
// readable projection of a Diagnostic that a Sink implementation can choose
// to emit (SPEC_FULL.md "Diagnostics sink concrete shape").
type Encoded struct {
	Schema     string      `json:"schema"`
	SID        string      `json:"sid"`
	Phase      string      `json:"phase"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Fix        Fix         `json:"fix"`
	Context    interface{} `json:"context,omitempty"`
	SourceSpan string      `json:"source_span,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

func newEncoded(sid, phase, code, msg string, ctx interface{}) Encoded {
	if sid == "" {
		sid = "unknown"
	}
	return Encoded{
		Schema:  schema.DiagnosticV1,
		SID:     sid,
		Phase:   phase,
		Code:    code,
		Message: msg,
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
		Context: ctx,
	}
}

// NewStructural creates a structural diagnostic (STR###).
func NewStructural(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "structural", code, msg, ctx)
}

// NewUnification creates a unification-mismatch diagnostic (UNI###).
func NewUnification(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "unify", code, msg, ctx)
}

// NewUnsolvedMeta creates an unsolved-metavariable diagnostic (MET###).
func NewUnsolvedMeta(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "meta", code, msg, ctx)
}

// NewPattern creates a pattern-match diagnostic (PAT###).
func NewPattern(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "pattern", code, msg, ctx)
}

// NewLowering creates a GIR-lowering diagnostic (LOW###).
func NewLowering(sid, code, msg string, ctx interface{}) Encoded {
	return newEncoded(sid, "lower", code, msg, ctx)
}

// WithFix adds a fix suggestion to the diagnostic.
func (e Encoded) WithFix(suggestion string, confidence float64) Encoded {
	e.Fix = Fix{Suggestion: suggestion, Confidence: confidence}
	return e
}

// WithSourceSpan adds source location to the diagnostic.
func (e Encoded) WithSourceSpan(span string) Encoded {
	e.SourceSpan = span
	return e
}

// WithMeta adds metadata to the diagnostic.
func (e Encoded) WithMeta(meta interface{}) Encoded {
	e.Meta = meta
	return e
}

// ToJSON converts the diagnostic to deterministic JSON.
func (e Encoded) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(e)
	if err != nil {
		fallback := Encoded{
			Schema:  schema.DiagnosticV1,
			Message: "encoding failed",
			Meta:    map[string]string{"original_error": err.Error()},
		}
		return schema.MarshalDeterministic(fallback)
	}
	return schema.FormatJSON(data)
}

// ErrorContext provides structured context for diagnostics.
type ErrorContext struct {
	Constraints []string          `json:"constraints,omitempty"`
	Decisions   []string          `json:"decisions,omitempty"`
	TraceSlice  string            `json:"trace_slice,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// SafeEncodeError safely encodes any error, never panics.
func SafeEncodeError(err error, phase string) []byte {
	if err == nil {
		return nil
	}
	encoded := Encoded{
		Schema:  schema.DiagnosticV1,
		SID:     "unknown",
		Phase:   phase,
		Code:    "ERR000",
		Message: err.Error(),
		Fix:     Fix{Suggestion: "", Confidence: 0.0},
	}
	data, _ := encoded.ToJSON()
	return data
}

// FormatSourceSpan formats file position as "file:line:col".
func FormatSourceSpan(file string, line, col int) string {
	return fmt.Sprintf("%s:%d:%d", file, line, col)
}
