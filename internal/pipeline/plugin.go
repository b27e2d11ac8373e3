// Package pipeline implements the three-phase batch executor
// (extract -> upscale -> assemble, optionally followed by transfer) that
// wires the resource coordinator, rules engine, operations tracker,
// statistics and operations monitor together. Each phase follows the
// same algorithm: fire lifecycle events, consult shouldProcessPhase,
// enumerate and filter candidates by rules, fingerprint each one, submit
// to the monitor, wait, close the phase. extractAll/upscaleAll/
// assembleAll are structurally identical apart from which Plugin method
// they call.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/restype"
)

// Plugin is the uniform per-resource-family codec shape: construct with
// a resource name, extract to an intermediate, upscale that intermediate
// into a separate upscale directory, and assemble back to the binary
// format. One Plugin value is
// created by the orchestrator per resource and discarded after the
// phase call.
type Plugin interface {
	// Extract reads raw, the exact archive/loose-file payload, and
	// writes a human/intermediate form under dir.
	Extract(raw []byte, dir string) error
	// Upscale reads the intermediate written to extractDir and writes
	// the upscaled form to upscaleDir, rewriting scale-sensitive parts
	// by factor.
	Upscale(extractDir, upscaleDir string, factor int) error
	// Assemble reads the upscaled form under dir and produces the final
	// byte-accurate output.
	Assemble(dir string) ([]byte, error)
}

// Factory constructs a Plugin for one resource. Factories are registered
// per resource type, a registration table of (type -> factory) rather
// than a dynamic service lookup by string name.
type Factory func(resourceName string) Plugin

// registry is the fixed, built-in factory table. It is populated by
// RegisterFactory at package init from each concrete codec plugin file
// (plugins_script.go, plugins_bitmap.go, plugins_texture.go) rather than
// a runtime dynamic-cast lookup. The passthrough plugin is not registered;
// FactoryFor returns it for any type missing from the table.
var registry = map[restype.Type]Factory{}

// RegisterFactory wires a Factory for typ. Called from package init
// functions; never called concurrently with FactoryFor.
func RegisterFactory(typ restype.Type, f Factory) {
	registry[typ] = f
}

// FactoryFor returns the registered factory for typ, falling back to the
// byte-copy passthrough plugin for any type with no dedicated codec: the
// orchestrator still needs a uniform Plugin to drive those families
// through the same phases even when there's nothing format-specific to
// do.
func FactoryFor(typ restype.Type) Factory {
	if f, ok := registry[typ]; ok {
		return f
	}
	return newPassthroughPlugin
}

// WorkingDirs names the three per-resource working subdirectories
// ("extracted/", "upscaled/", "assembled/"), rooted at workRoot
// (output/<GameType>/<type>/<name>-<type>-<stage>/). Stages consult an
// earlier stage's directory as input and only clean their own output
// directory on (re)entry, so e.g. running upscale never discards the
// extract phase's output.
type WorkingDirs struct {
	Extract  string
	Upscale  string
	Assemble string
}

// DirsFor derives the three stage directory paths for one resource
// without touching the filesystem.
func DirsFor(workRoot, resourceName, resourceType string) WorkingDirs {
	base := fmt.Sprintf("%s-%s", resourceName, resourceType)
	return WorkingDirs{
		Extract:  filepath.Join(workRoot, base+"-extracted"),
		Upscale:  filepath.Join(workRoot, base+"-upscaled"),
		Assemble: filepath.Join(workRoot, base+"-assembled"),
	}
}

// resetDir removes and recreates dir, cleaning it on re-invocation.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
