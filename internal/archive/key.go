// Package archive parses a KEY index and its referenced BIF archives,
// and serves byte-accurate reads by (bifIndex, locator, size).
//
// KeyIndex owns the header, BIF table and resource table, and resolves
// each BIF entry to an on-disk path with a case-insensitive walk. Reader
// opens archive bodies lazily and keeps a size index built once so a
// size query never has to open an archive body.
package archive

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/pie4k/pie4k/internal/debug"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
	"github.com/pie4k/pie4k/internal/restype"
	"github.com/pie4k/pie4k/pkg/pathutil"
)

const (
	keySignature  = "KEY "
	keyVersion    = "V1  "
	entryNameSize = 8
)

// BifEntry is one row of the KEY file's BIF table: the size of the
// referenced archive and the path under which it was recorded.
type BifEntry struct {
	Index        int
	FileSize     uint32
	Path         string // as recorded in the KEY file, forward-slash separated
	ResolvedPath string // as found on disk, case-insensitive; "" if missing
}

// ResourceEntry is one row of the KEY file's resource table.
type ResourceEntry struct {
	Name    string // canonical (upper-case, NUL-trimmed) resource name
	Type    restype.Type
	Locator uint32
}

// BifIndex, TilesetIndex and SlotIndex decompose a packed locator the way
// the original engine's BIF_INDEX / TILESET_INDEX / RESOURCE_INDEX
// bit-field macros do: bits 20-31 select the archive, bits 14-19 select a
// tileset sub-slot, and bits 0-13 select the entry within it.
func BifIndex(locator uint32) int     { return int((locator >> 20) & 0xFFF) }
func TilesetIndex(locator uint32) int { return int((locator >> 14) & 0x3F) }
func SlotIndex(locator uint32) int    { return int(locator & 0x3FFF) }

// KeyIndex is the parsed contents of a KEY file: the BIF table and the
// resource table, keyed the way KEYService.resourceIndex is.
type KeyIndex struct {
	BifEntries []BifEntry
	Resources  map[resourceKey]ResourceEntry
}

type resourceKey struct {
	name string
	typ  restype.Type
}

// ParseKeyFile reads and parses a KEY file's binary layout: the fixed
// header, the BIF table and the resource table.
func ParseKeyFile(path string) (*KeyIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pie4kerrors.NewIOError("read", path, err)
	}
	if len(data) < 24 {
		return nil, pie4kerrors.NewIOError("parse", path, errShortHeader)
	}
	if string(data[0:4]) != keySignature || string(data[4:8]) != keyVersion {
		return nil, pie4kerrors.NewIOError("parse", path, errBadMagic)
	}

	bifCount := binary.LittleEndian.Uint32(data[8:12])
	resCount := binary.LittleEndian.Uint32(data[12:16])
	bifOffset := binary.LittleEndian.Uint32(data[16:20])
	resOffset := binary.LittleEndian.Uint32(data[20:24])

	idx := &KeyIndex{
		BifEntries: make([]BifEntry, 0, bifCount),
		Resources:  make(map[resourceKey]ResourceEntry, resCount),
	}

	off := int(bifOffset)
	for i := 0; i < int(bifCount); i++ {
		if off+12 > len(data) {
			return nil, pie4kerrors.NewIOError("parse", path, errTruncatedBifTable)
		}
		fileSize := binary.LittleEndian.Uint32(data[off : off+4])
		nameOffset := binary.LittleEndian.Uint32(data[off+4 : off+8])
		nameLength := binary.LittleEndian.Uint16(data[off+8 : off+10])
		off += 12

		nameStart := int(nameOffset)
		nameEnd := nameStart + int(nameLength)
		if nameEnd > len(data) || nameEnd < nameStart {
			return nil, pie4kerrors.NewIOError("parse", path, errTruncatedBifTable)
		}
		rawName := strings.TrimRight(string(data[nameStart:nameEnd]), "\x00")
		idx.BifEntries = append(idx.BifEntries, BifEntry{
			Index:    i,
			FileSize: fileSize,
			Path:     strings.ReplaceAll(rawName, "\\", "/"),
		})
	}

	off = int(resOffset)
	for i := 0; i < int(resCount); i++ {
		if off+14 > len(data) {
			return nil, pie4kerrors.NewIOError("parse", path, errTruncatedResTable)
		}
		name := strings.TrimRight(string(data[off:off+entryNameSize]), "\x00")
		typ := binary.LittleEndian.Uint16(data[off+8 : off+10])
		locator := binary.LittleEndian.Uint32(data[off+10 : off+14])
		off += 14

		canon := pathutil.CanonicalName(name)
		idx.Resources[resourceKey{name: canon, typ: restype.Type(typ)}] = ResourceEntry{
			Name:    canon,
			Type:    restype.Type(typ),
			Locator: locator,
		}
	}

	debug.Log("archive", "parsed key file %s: %d bifs, %d resources", path, len(idx.BifEntries), len(idx.Resources))
	return idx, nil
}

// Lookup returns the resource entry for (name, typ), case-insensitively.
func (k *KeyIndex) Lookup(name string, typ restype.Type) (ResourceEntry, bool) {
	e, ok := k.Resources[resourceKey{name: pathutil.CanonicalName(name), typ: typ}]
	return e, ok
}

// ResolveBifPaths walks gameRoot resolving each BIF entry's recorded path
// case-insensitively on disk, the way
// KEYService::resolveBIFPaths/findCaseInsensitivePath/tryCommonVariations
// does. Entries that cannot be found are left with an empty
// ResolvedPath; BuildSizeIndex and Read surface that as KindArchiveMissing.
func (k *KeyIndex) ResolveBifPaths(gameRoot string) {
	for i := range k.BifEntries {
		if resolved, ok := pathutil.ResolveCaseInsensitive(gameRoot, k.BifEntries[i].Path); ok {
			k.BifEntries[i].ResolvedPath = resolved
		} else {
			debug.Log("archive", "could not resolve bif path %q under %s", k.BifEntries[i].Path, gameRoot)
		}
	}
}
