// Package sid computes stable, content-addressed diagnostic ids from an
// AST node's source location, so two reports of the same underlying
// problem (e.g. the same unsolved meta surfacing across repeated solver
// runs) hash to the same id.
package sid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// SID is a stable identifier for a diagnostic's origin.
type SID string

// NewSID computes a stable id for a node spanning [start,end) of the given
// kind at path, with childPath disambiguating nested nodes sharing a span.
// Formula: hash(canonical_path | start | end | kind | child_path).
func NewSID(path string, start, end int, kind string, childPath []int) SID {
	canonPath := canonicalizePath(path)

	parts := []string{canonPath, fmt.Sprintf("%d", start), fmt.Sprintf("%d", end), kind}
	for _, idx := range childPath {
		parts = append(parts, fmt.Sprintf("%d", idx))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return SID(hex.EncodeToString(hash[:])[:16])
}

// canonicalizePath normalizes a file path for stable SID calculation.
func canonicalizePath(path string) string {
	path = filepath.Clean(path)

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	// SID stability only; actual file resolution uses real FS semantics.
	if isCaseInsensitive() {
		path = strings.ToLower(path)
	}

	return filepath.ToSlash(path)
}

func isCaseInsensitive() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}
