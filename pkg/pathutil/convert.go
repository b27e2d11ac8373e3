// Package pathutil provides the path and resource-name normalization
// helpers shared by the archive reader, loose-file indexers and pipeline
// orchestrator.
//
// Resource identity is case-insensitive, but the filesystem underneath
// may be case-sensitive. This package is the conversion layer between
// the canonical uppercase identity and whatever case the files actually
// have on disk.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root
// directory, falling back to the original path if conversion fails or the
// path already is relative or lies outside root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// CanonicalName upper-cases a resource name: identity is
// case-insensitive, always compared in upper case.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// StemAndExt splits a filename into its upper-cased stem and lower-cased
// extension (without the dot), e.g. "Foo.Bam" -> ("FOO", "bam").
func StemAndExt(filename string) (stem, ext string) {
	base := filepath.Base(filename)
	e := filepath.Ext(base)
	stem = CanonicalName(strings.TrimSuffix(base, e))
	ext = strings.ToLower(strings.TrimPrefix(e, "."))
	return stem, ext
}

// ResolveCaseInsensitive finds literalName (which may contain slash- or
// backslash-separated subdirectories, as BIF paths recorded in a KEY file
// do) under dir, resolving one path component at a time so a mismatch in
// any single directory or file segment's case does not fail the whole
// lookup. Paths recorded in an index are not guaranteed to match the
// case of the files a case-sensitive filesystem actually has.
func ResolveCaseInsensitive(dir, literalName string) (string, bool) {
	literalName = strings.ReplaceAll(literalName, "\\", "/")
	current := dir
	for _, part := range strings.Split(literalName, "/") {
		if part == "" {
			continue
		}
		next := filepath.Join(current, part)
		if _, err := os.Stat(next); err == nil {
			current = next
			continue
		}
		entries, err := os.ReadDir(current)
		if err != nil {
			return "", false
		}
		target := strings.ToLower(part)
		found := false
		for _, entry := range entries {
			if strings.ToLower(entry.Name()) == target {
				current = filepath.Join(current, entry.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return current, true
}
