package pipeline

import (
	"os"

	"github.com/pie4k/pie4k/internal/archive"
	"github.com/pie4k/pie4k/internal/resource"
	"github.com/pie4k/pie4k/internal/restype"
	"github.com/pie4k/pie4k/internal/tracker"
)

// buildFingerprint assembles the tracker.Fingerprint for one resource.
// For extract, the upscale factor is excluded from configHash; for other
// phases it is included, since only those phases produce output that
// varies with the factor. configHash is computed by the caller from its
// config inputs (game type, rules path, ...), with the upscale factor
// folded in only for non-extract phases.
func buildFingerprint(
	phase string,
	name string,
	typ restype.Type,
	src resource.Source,
	sourcePath string,
	overrideSize uint64,
	configHash string,
	opVersion string,
	locator archiveLocator,
) tracker.Fingerprint {
	fp := tracker.Fingerprint{
		ConfigHash:   configHash,
		OpVersion:    opVersion,
		BifIndex:     locator.BifIndex,
		KeyLocator:   locator.Locator,
		Size:         locator.Size,
		SourcePath:   sourcePath,
		OverrideSize: overrideSize,
	}
	if src != resource.SourceArchive && sourcePath != "" {
		if info, err := os.Stat(sourcePath); err == nil {
			fp.Mtime = info.ModTime().Unix()
		}
	}
	return fp
}

// archiveLocator carries the archive-specific fingerprint fields
// (BifIndex, Locator, Size). BifIndex and Locator come from the KEY
// index whenever the name is indexed there, whichever layer resolves
// the resource, and are zero otherwise; Size is filled in by the caller.
type archiveLocator struct {
	BifIndex int
	Locator  uint32
	Size     uint32
}

// locatorFor looks up the archive locator fields for name/typ, returning
// the zero value when the resource isn't archive-backed or reader is nil.
func locatorFor(reader *archive.KeyIndex, name string, typ restype.Type) archiveLocator {
	if reader == nil {
		return archiveLocator{}
	}
	entry, ok := reader.Lookup(name, typ)
	if !ok {
		return archiveLocator{}
	}
	return archiveLocator{
		BifIndex: archive.BifIndex(entry.Locator),
		Locator:  entry.Locator,
	}
}
