package archive

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/pie4k/pie4k/internal/debug"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
	"github.com/pie4k/pie4k/internal/restype"
)

var (
	errShortHeader        = errors.New("archive: file too short for header")
	errBadMagic           = errors.New("archive: bad signature/version")
	errTruncatedBifTable  = errors.New("archive: truncated bif table")
	errTruncatedResTable  = errors.New("archive: truncated resource table")
	errTruncatedFileTable = errors.New("archive: truncated bif file table")
)

const (
	bifSignature  = "BIFF"
	bifVersionV1  = "V1  "
	bifVersionV2  = "V2  "
	bifcSignature = "BIFC"
)

// bifFileEntry is one row of a BIF archive's own file table.
type bifFileEntry struct {
	Locator uint32
	Offset  uint32
	Size    uint32
	Type    uint16
}

// openBif is a lazily-loaded, fully decompressed BIF archive body kept
// resident for the lifetime of the Reader.
type openBif struct {
	files map[uint32]bifFileEntry // keyed by slot index (locator & 0x3FFF)
	body  []byte
}

// Reader serves resource reads across a KEY index and its BIF archives:
// a lazy per-archive cache, plus a pre-built size index so size queries
// never touch an archive body.
type Reader struct {
	gameRoot string
	index    *KeyIndex

	mu        sync.Mutex
	loaded    map[int]*openBif
	sizeIdx   map[resourceKey]uint32
	sizeBuilt bool
}

// NewReader wraps a parsed KeyIndex whose BIF paths have already been
// resolved against gameRoot.
func NewReader(gameRoot string, index *KeyIndex) *Reader {
	return &Reader{
		gameRoot: gameRoot,
		index:    index,
		loaded:   make(map[int]*openBif),
		sizeIdx:  make(map[resourceKey]uint32),
	}
}

// HasResource reports whether (name, typ) exists in the KEY index,
// without touching any archive body.
func (r *Reader) HasResource(name string, typ restype.Type) bool {
	_, ok := r.index.Lookup(name, typ)
	return ok
}

// GetResourceSize returns the indexed size for (name, typ) in O(1),
// building the size index on first use; a size query must not require
// reading the archive body.
func (r *Reader) GetResourceSize(name string, typ restype.Type) (uint32, bool) {
	entry, ok := r.index.Lookup(name, typ)
	if !ok {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sizeBuilt {
		r.buildSizeIndexLocked()
	}
	size, ok := r.sizeIdx[resourceKey{name: entry.Name, typ: entry.Type}]
	return size, ok
}

// BuildSizeIndex eagerly loads every BIF archive (its body is read and
// cached, like any other load) to populate the complete (name,type)->size
// index up front,
// mirroring BIFService::buildCompleteSizeIndex. Safe to call more than
// once; subsequent calls are no-ops.
func (r *Reader) BuildSizeIndex() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sizeBuilt {
		return nil
	}
	return r.buildSizeIndexLocked()
}

func (r *Reader) buildSizeIndexLocked() error {
	for bifIdx := range r.index.BifEntries {
		bif, err := r.loadBifLocked(bifIdx)
		if err != nil {
			return err
		}
		for key, entry := range r.index.Resources {
			if BifIndex(entry.Locator) != bifIdx {
				continue
			}
			slot := bif.files[uint32(SlotIndex(entry.Locator))]
			r.sizeIdx[key] = slot.Size
		}
	}
	r.sizeBuilt = true
	debug.Log("archive", "built size index: %d resources", len(r.sizeIdx))
	return nil
}

// NamesByType returns the canonical names of every indexed resource of
// typ, without touching any archive body.
func (r *Reader) NamesByType(typ restype.Type) []string {
	var out []string
	for key := range r.index.Resources {
		if key.typ == typ {
			out = append(out, key.name)
		}
	}
	return out
}

// GetResourceData returns the exact bytes for (name, typ), resolving the
// archive lazily if not already cached.
func (r *Reader) GetResourceData(name string, typ restype.Type) ([]byte, error) {
	entry, ok := r.index.Lookup(name, typ)
	if !ok {
		return nil, pie4kerrors.NewResourceError(pie4kerrors.KindNotFound, "read", name, typ.String(), nil)
	}
	return r.Read(BifIndex(entry.Locator), entry.Locator, 0)
}

// Read returns the bytes for the entry at bifIndex identified by locator.
// The size parameter is advisory (entries self-describe their size in the
// BIF file table); pass 0 when unknown.
func (r *Reader) Read(bifIndex int, locator uint32, size uint32) ([]byte, error) {
	r.mu.Lock()
	bif, err := r.loadBifLocked(bifIndex)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slot, ok := bif.files[uint32(SlotIndex(locator))]
	if !ok {
		return nil, pie4kerrors.NewResourceError(pie4kerrors.KindCorruptArchive, "read", "", "",
			errors.New("locator slot not present in bif file table"))
	}
	start, end := int(slot.Offset), int(slot.Offset)+int(slot.Size)
	if start < 0 || end > len(bif.body) || end < start {
		return nil, pie4kerrors.NewResourceError(pie4kerrors.KindCorruptArchive, "read", "", "",
			errors.New("slot extends past archive body"))
	}
	out := make([]byte, slot.Size)
	copy(out, bif.body[start:end])
	return out, nil
}

// loadBifLocked loads and parses the BIF archive at bifIndex if it is not
// already cached. Caller must hold r.mu.
func (r *Reader) loadBifLocked(bifIndex int) (*openBif, error) {
	if bif, ok := r.loaded[bifIndex]; ok {
		return bif, nil
	}
	if bifIndex < 0 || bifIndex >= len(r.index.BifEntries) {
		return nil, pie4kerrors.NewIOError("open", "", errors.New("bif index out of range"))
	}
	entry := r.index.BifEntries[bifIndex]
	if entry.ResolvedPath == "" {
		return nil, pie4kerrors.NewResourceError(pie4kerrors.KindArchiveMissing, "open", "", "",
			errors.New("bif path "+entry.Path+" not found under game root"))
	}

	raw, err := os.ReadFile(entry.ResolvedPath)
	if err != nil {
		return nil, pie4kerrors.NewIOError("read", entry.ResolvedPath, err)
	}

	body, err := decompressIfNeeded(raw)
	if err != nil {
		return nil, pie4kerrors.NewResourceError(pie4kerrors.KindCorruptArchive, "open", "", "", err)
	}

	bif, err := parseBifBody(body)
	if err != nil {
		return nil, pie4kerrors.NewResourceError(pie4kerrors.KindCorruptArchive, "open", "", "", err)
	}

	r.loaded[bifIndex] = bif
	debug.Log("archive", "loaded bif[%d] %s: %d files", bifIndex, entry.ResolvedPath, len(bif.files))
	return bif, nil
}

// decompressIfNeeded unwraps a BIFC-compressed archive via zlib, or
// returns raw unchanged if it is a plain BIFF archive.
func decompressIfNeeded(raw []byte) ([]byte, error) {
	if len(raw) < 8 || string(raw[0:4]) != bifcSignature {
		return raw, nil
	}
	// BIFC: 4-byte "BIFC", 4-byte version, u32 decompressed length, then a
	// zlib stream.
	if len(raw) < 12 {
		return nil, errShortHeader
	}
	origLen := binary.LittleEndian.Uint32(raw[8:12])
	zr, err := zlib.NewReader(bytes.NewReader(raw[12:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, 0, origLen)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseBifBody parses a (decompressed) BIF archive's header and file
// table.
func parseBifBody(data []byte) (*openBif, error) {
	if len(data) < 20 {
		return nil, errShortHeader
	}
	if string(data[0:4]) != bifSignature {
		return nil, errBadMagic
	}
	version := string(data[4:8])
	if version != bifVersionV1 && version != bifVersionV2 {
		return nil, errBadMagic
	}

	fileCount := binary.LittleEndian.Uint32(data[8:12])
	fileOffset := binary.LittleEndian.Uint32(data[16:20])

	bif := &openBif{
		files: make(map[uint32]bifFileEntry, fileCount),
		body:  data,
	}

	off := int(fileOffset)
	for i := 0; i < int(fileCount); i++ {
		if off+16 > len(data) {
			return nil, errTruncatedFileTable
		}
		entry := bifFileEntry{
			Locator: binary.LittleEndian.Uint32(data[off : off+4]),
			Offset:  binary.LittleEndian.Uint32(data[off+4 : off+8]),
			Size:    binary.LittleEndian.Uint32(data[off+8 : off+12]),
			Type:    binary.LittleEndian.Uint16(data[off+12 : off+14]),
		}
		off += 16
		bif.files[uint32(SlotIndex(entry.Locator))] = entry
	}
	return bif, nil
}
