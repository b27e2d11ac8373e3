// Package resource is the single entry point callers use to ask "does
// (name, type) exist, and where do its bytes come from" across four
// layered sources: override, unhardcoded/<gameType>, unhardcoded/shared,
// and the archive, probed in that priority order with the first hit
// winning.
package resource

import (
	"sync"

	"github.com/pie4k/pie4k/internal/archive"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
	"github.com/pie4k/pie4k/internal/loose"
	"github.com/pie4k/pie4k/internal/restype"
)

// Source names the layer a resource was resolved from, for logging and
// for the pipeline's "where did this come from" diagnostics.
type Source string

const (
	SourceOverride          Source = "override"
	SourceUnhardcodedGame   Source = "unhardcoded_game"
	SourceUnhardcodedShared Source = "unhardcoded_shared"
	SourceArchive           Source = "archive"
)

// Coordinator is the process-wide resource lookup service. One
// instance lives for the pipeline run; it is safe for concurrent use
// once Init has returned.
type Coordinator struct {
	mu          sync.RWMutex
	initialized bool

	archiveReader *archive.Reader
	override      *loose.Index
	unGame        *loose.Index
	unShared      *loose.Index
}

// New creates an uninitialized Coordinator. Callers must call Init before
// any lookup method; lookups before Init return a NotInitializedError.
func New() *Coordinator {
	return &Coordinator{}
}

// Init wires the four sources in after the archive and loose scans have
// completed, and marks the coordinator ready. Listing operations must
// block until this has run, which callers enforce by not starting
// enumeration until Init returns.
func (c *Coordinator) Init(archiveReader *archive.Reader, override, unGame, unShared *loose.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archiveReader = archiveReader
	c.override = override
	c.unGame = unGame
	c.unShared = unShared
	c.initialized = true
}

func (c *Coordinator) ready() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return pie4kerrors.NewNotInitializedError("resource.Coordinator")
	}
	return nil
}

// HasResource reports whether (name, typ) resolves in any layer.
func (c *Coordinator) HasResource(name string, typ restype.Type) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	_, _, ok := c.resolve(name, typ)
	return ok, nil
}

// resolve walks the priority chain and returns the winning layer.
func (c *Coordinator) resolve(name string, typ restype.Type) (loose.Entry, Source, bool) {
	if e, ok := c.override.Lookup(name, typ); ok {
		return e, SourceOverride, true
	}
	if e, ok := c.unGame.Lookup(name, typ); ok {
		return e, SourceUnhardcodedGame, true
	}
	if e, ok := c.unShared.Lookup(name, typ); ok {
		return e, SourceUnhardcodedShared, true
	}
	return loose.Entry{}, "", false
}

// ResolveSource reports which layer (name, typ) would resolve from,
// without reading a loose file's body or touching an archive's bytes:
// fingerprinting only needs the source layer and loose-file mtime, not
// the payload itself.
func (c *Coordinator) ResolveSource(name string, typ restype.Type) (Source, bool, error) {
	if err := c.ready(); err != nil {
		return "", false, err
	}
	if _, src, ok := c.resolve(name, typ); ok {
		return src, true, nil
	}
	if c.archiveReader != nil && c.archiveReader.HasResource(name, typ) {
		return SourceArchive, true, nil
	}
	return "", false, nil
}

// SourcePath returns the on-disk path a loose-file resolution would read
// from, or "" for an archive-backed resource (used for fingerprint
// mtime). ok is false when the resource isn't loose-file backed.
func (c *Coordinator) SourcePath(name string, typ restype.Type) (path string, ok bool) {
	if err := c.ready(); err != nil {
		return "", false
	}
	if e, _, found := c.resolve(name, typ); found {
		return e.FullPath, true
	}
	return "", false
}

// GetResourceData returns the bytes for (name, typ) from whichever layer
// wins priority, and that layer's name.
func (c *Coordinator) GetResourceData(name string, typ restype.Type) ([]byte, Source, error) {
	if err := c.ready(); err != nil {
		return nil, "", err
	}
	if e, src, ok := c.resolve(name, typ); ok {
		data, err := readLooseFile(e.FullPath)
		if err != nil {
			return nil, "", pie4kerrors.NewResourceError(pie4kerrors.KindIO, "read", name, typ.String(), err)
		}
		return data, src, nil
	}
	if c.archiveReader != nil && c.archiveReader.HasResource(name, typ) {
		data, err := c.archiveReader.GetResourceData(name, typ)
		if err != nil {
			return nil, "", err
		}
		return data, SourceArchive, nil
	}
	return nil, "", pie4kerrors.NewResourceError(pie4kerrors.KindNotFound, "read", name, typ.String(), nil)
}

// GetResourceSize returns the byte length (name, typ) would produce from
// GetResourceData, without reading loose-file bodies when avoidable; the
// returned size must always match what a subsequent read yields.
func (c *Coordinator) GetResourceSize(name string, typ restype.Type) (uint32, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if e, _, ok := c.resolve(name, typ); ok {
		return uint32(e.FileSize), nil
	}
	if c.archiveReader != nil {
		if size, ok := c.archiveReader.GetResourceSize(name, typ); ok {
			return size, nil
		}
	}
	return 0, pie4kerrors.NewResourceError(pie4kerrors.KindNotFound, "size", name, typ.String(), nil)
}

// ListResourcesByType returns the canonical names of every resource of
// typ visible across all four layers, each appearing exactly once (the
// highest-priority layer's entry wins identity, but the name set is a
// union). Callers must not invoke this before Init returns.
func (c *Coordinator) ListResourcesByType(typ restype.Type) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	add := func(ns []string) {
		for _, n := range ns {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	add(c.override.Names(typ))
	add(c.unGame.Names(typ))
	add(c.unShared.Names(typ))
	if c.archiveReader != nil {
		add(c.archiveReader.NamesByType(typ))
	}
	return names, nil
}
