// Package loose scans an on-disk directory tree once and builds a
// (name, type) -> file map for resources that sit outside any archive:
// the override tree, and the unhardcoded/<gameType> and
// unhardcoded/shared trees. A name on the configured known-bad list is
// skipped; an unrecognized extension is silently ignored.
package loose

import (
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/debug"
	"github.com/pie4k/pie4k/internal/restype"
	"github.com/pie4k/pie4k/pkg/pathutil"
)

// Entry is one indexed loose file.
type Entry struct {
	FullPath         string
	FileSize         int64
	OriginalFilename string // base name as found on disk, original case
}

type key struct {
	name string
	typ  restype.Type
}

// Index is a flat, single-directory scan result keyed by
// (canonical name, type).
type Index struct {
	root    string
	entries map[key]Entry
}

// IsKnownBad reports whether name should be skipped during a scan; it is
// supplied by the caller (internal/config.Config.IsKnownBad) so this
// package has no config dependency of its own.
type IsKnownBad func(name string) bool

// Scan walks root (non-recursively) and indexes every file whose
// extension is recognized by restype, skipping known-bad names. A
// missing root is not an error: it yields an empty index, since
// override/unhardcoded directories are optional.
func Scan(root string, isKnownBad IsKnownBad) (*Index, error) {
	idx := &Index{root: root, entries: make(map[key]Entry)}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			debug.Log("loose", "directory %s does not exist, indexing as empty", root)
			return idx, nil
		}
		return nil, err
	}

	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		stem, ext := pathutil.StemAndExt(de.Name())
		typ, ok := restype.ForExtension(ext)
		if !ok {
			continue
		}
		if isKnownBad != nil && isKnownBad(stem) {
			debug.Log("loose", "skipping known-bad resource %s", stem)
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		idx.entries[key{name: stem, typ: typ}] = Entry{
			FullPath:         filepath.Join(root, de.Name()),
			FileSize:         info.Size(),
			OriginalFilename: de.Name(),
		}
	}

	debug.Log("loose", "indexed %d files under %s", len(idx.entries), root)
	return idx, nil
}

// Lookup returns the entry for (name, typ), case-insensitively.
func (idx *Index) Lookup(name string, typ restype.Type) (Entry, bool) {
	e, ok := idx.entries[key{name: pathutil.CanonicalName(name), typ: typ}]
	return e, ok
}

// Names returns every canonical name indexed for typ.
func (idx *Index) Names(typ restype.Type) []string {
	var out []string
	for k := range idx.entries {
		if k.typ == typ {
			out = append(out, k.name)
		}
	}
	return out
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int { return len(idx.entries) }
