// Package errors provides the centralized diagnostic code taxonomy for the
// elaboration/unification/lowering pipeline. Codes follow a consistent,
// phase-prefixed scheme so tooling can group and correlate them.
package errors

// Error code constants organized by phase (spec.md §7's five-way
// taxonomy: Structural, Unification, UnsolvedMetas, Pattern-match,
// Lowering).
const (
	// ============================================================
	// Structural errors (STR###) — ill-structuredness the frontend's
	// scope checker should have caught before elaboration ever runs.
	// ============================================================

	// STR001 indicates an unbound variable reference
	STR001 = "STR001"

	// STR002 indicates an unknown constructor name
	STR002 = "STR002"

	// STR003 indicates an unknown definition name
	STR003 = "STR003"

	// STR004 indicates a constructor applied to the wrong argument count
	STR004 = "STR004"

	// STR005 indicates a projection on a non-record type
	STR005 = "STR005"

	// STR006 indicates a declaration referencing an already-declared name
	STR006 = "STR006"

	// STR007 indicates function clauses with no matching ascription
	STR007 = "STR007"

	// ============================================================
	// Unification errors (UNI###) — rigid-rigid mismatches the solver
	// reports, spec.md §4.4.
	// ============================================================

	// UNI001 indicates a head mismatch between two rigid terms
	UNI001 = "UNI001"

	// UNI002 indicates a spine length mismatch
	UNI002 = "UNI002"

	// UNI003 indicates a Pi-vs-non-Pi structural mismatch
	UNI003 = "UNI003"

	// UNI004 indicates an eliminator shape mismatch (apply vs project)
	UNI004 = "UNI004"

	// UNI005 indicates a constructor identity mismatch
	UNI005 = "UNI005"

	// ============================================================
	// Unsolved metavariable errors (MET###) — a legal but unfinished
	// outcome of the work-list (spec.md §4.4, §9).
	// ============================================================

	// MET001 indicates a metavariable left unsolved at the end of a job
	MET001 = "MET001"

	// MET002 indicates an inversion failure (escaping variable, not prunable)
	MET002 = "MET002"

	// MET003 indicates an occurs-check-shaped non-invertible flex-rigid equation
	MET003 = "MET003"

	// ============================================================
	// Pattern-match errors (PAT###) — dtree compilation, spec.md §4.8.
	// ============================================================

	// PAT001 indicates a non-exhaustive pattern match
	PAT001 = "PAT001"

	// PAT002 indicates unreachable clauses
	PAT002 = "PAT002"

	// PAT003 indicates a pattern with the wrong constructor arity
	PAT003 = "PAT003"

	// ============================================================
	// Lowering errors (LOW###) — GIR generation, spec.md §4.7/§4.9.
	// ============================================================

	// LOW001 indicates a GIR type with no lowering rule
	LOW001 = "LOW001"

	// LOW002 indicates a malformed continuation graph (missing terminator)
	LOW002 = "LOW002"

	// LOW003 indicates a managed-value cleanup stack imbalance
	LOW003 = "LOW003"
)

// ErrorInfo provides structured information about an error code.
type ErrorInfo struct {
	Code        string
	Phase       string
	Category    string
	Description string
}

// ErrorRegistry maps error codes to their information.
var ErrorRegistry = map[string]ErrorInfo{
	STR001: {STR001, "structural", "scope", "Unbound variable"},
	STR002: {STR002, "structural", "scope", "Unknown constructor"},
	STR003: {STR003, "structural", "scope", "Unknown definition"},
	STR004: {STR004, "structural", "arity", "Wrong constructor arity"},
	STR005: {STR005, "structural", "shape", "Projection on non-record type"},
	STR006: {STR006, "structural", "namespace", "Duplicate declaration"},
	STR007: {STR007, "structural", "shape", "Clauses without ascription"},

	UNI001: {UNI001, "unify", "mismatch", "Head mismatch"},
	UNI002: {UNI002, "unify", "mismatch", "Spine length mismatch"},
	UNI003: {UNI003, "unify", "mismatch", "Pi structural mismatch"},
	UNI004: {UNI004, "unify", "mismatch", "Eliminator shape mismatch"},
	UNI005: {UNI005, "unify", "mismatch", "Constructor identity mismatch"},

	MET001: {MET001, "meta", "unsolved", "Unsolved metavariable"},
	MET002: {MET002, "meta", "inversion", "Inversion failed"},
	MET003: {MET003, "meta", "inversion", "Non-invertible flex-rigid equation"},

	PAT001: {PAT001, "pattern", "exhaustiveness", "Non-exhaustive match"},
	PAT002: {PAT002, "pattern", "reachability", "Unreachable clause"},
	PAT003: {PAT003, "pattern", "arity", "Wrong pattern arity"},

	LOW001: {LOW001, "lower", "type", "No lowering rule for type"},
	LOW002: {LOW002, "lower", "graph", "Missing continuation terminator"},
	LOW003: {LOW003, "lower", "cleanup", "Cleanup stack imbalance"},
}

// GetErrorInfo returns information about an error code.
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, exists := ErrorRegistry[code]
	return info, exists
}

// IsStructuralError checks if the error code is a structural error.
func IsStructuralError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "structural"
}

// IsUnificationError checks if the error code is a unification error.
func IsUnificationError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "unify"
}

// IsMetaError checks if the error code is an unsolved-metavariable error.
func IsMetaError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "meta"
}

// IsPatternError checks if the error code is a pattern-match error.
func IsPatternError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "pattern"
}

// IsLoweringError checks if the error code is a lowering error.
func IsLoweringError(code string) bool {
	info, exists := GetErrorInfo(code)
	return exists && info.Phase == "lower"
}
