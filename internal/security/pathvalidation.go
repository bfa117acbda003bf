// Package security keeps files written on behalf of a profile inside the
// directory the operator chose.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxFilenameLen bounds names derived from profile identifiers.
const maxFilenameLen = 128

// ValidatePathWithinDirectory rejects filePath if, after cleaning and
// resolving symlinks on its existing ancestors, it escapes safeDir.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalDir, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", safeDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks in the longest existing prefix of an
// absolute path and re-attaches the rest.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	check := absPath
	for {
		parent := filepath.Dir(check)
		if parent == check {
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rest, _ := filepath.Rel(parent, absPath)
			return filepath.Join(resolved, rest)
		}
		check = parent
	}
}

// SanitizeFilename maps an identifier such as a profile ID or WMO number to
// a safe file name: runs of characters outside [A-Za-z0-9._-] become a
// single underscore and the result is trimmed of leading and trailing dots
// and underscores. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ProfileFile returns dir/<sanitized id><ext> after checking that it stays
// inside dir.
func ProfileFile(dir, id, ext string) (string, error) {
	name := filepath.Join(dir, SanitizeFilename(id)+ext)
	if err := ValidatePathWithinDirectory(name, dir); err != nil {
		return "", err
	}
	return name, nil
}
