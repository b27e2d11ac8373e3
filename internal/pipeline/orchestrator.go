package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pie4k/pie4k/internal/archive"
	"github.com/pie4k/pie4k/internal/config"
	"github.com/pie4k/pie4k/internal/debug"
	"github.com/pie4k/pie4k/internal/monitor"
	"github.com/pie4k/pie4k/internal/resource"
	"github.com/pie4k/pie4k/internal/restype"
	"github.com/pie4k/pie4k/internal/rules"
	"github.com/pie4k/pie4k/internal/stats"
	"github.com/pie4k/pie4k/internal/tracker"
)

const opVersion = "1"

// Orchestrator is the batch driver that wires the resource coordinator,
// rules engine, operations tracker, statistics and operations monitor
// together for the extract/upscale/assemble/transfer phases. Per-domain
// concurrency and phase-skip logic are delegated to internal/monitor and
// internal/tracker respectively, so this type's job is purely sequencing
// and fan-out.
type Orchestrator struct {
	Config  *config.Config
	Coord   *resource.Coordinator
	Archive *archive.KeyIndex // optional: nil when the installation has no parsable archive index
	Rules   *rules.Engine
	Tracker *tracker.Tracker
	Stats   *stats.Statistics
	Monitor *monitor.Monitor
	Numbers *PageNumbering

	// Types lists the resource types this run drives through the
	// pipeline; *All entry points iterate this set.
	Types []restype.Type
}

func (o *Orchestrator) configHash(includeFactor bool) string {
	parts := []string{o.Config.GameType, o.Config.GemRBPath, o.Config.RulesPath}
	if includeFactor {
		parts = append(parts, fmt.Sprintf("k=%d", o.Config.UpScaleFactor))
	}
	return tracker.HashConfig(parts...)
}

// ExtractType runs the extract phase for one resource type.
func (o *Orchestrator) ExtractType(ctx context.Context, typ restype.Type) bool {
	return o.runPhase(ctx, "extract", typ, func(name string, raw []byte, dirs WorkingDirs, plugin Plugin) ([]string, error) {
		if err := resetDir(dirs.Extract); err != nil {
			return nil, err
		}
		if err := plugin.Extract(raw, dirs.Extract); err != nil {
			return nil, err
		}
		return []string{dirs.Extract}, nil
	})
}

// UpscaleType runs the upscale phase for one resource type, reading each
// resource's extract output and writing its upscale output.
func (o *Orchestrator) UpscaleType(ctx context.Context, typ restype.Type) bool {
	return o.runPhase(ctx, "upscale", typ, func(name string, raw []byte, dirs WorkingDirs, plugin Plugin) ([]string, error) {
		if err := resetDir(dirs.Upscale); err != nil {
			return nil, err
		}
		if err := plugin.Upscale(dirs.Extract, dirs.Upscale, o.Config.UpScaleFactor); err != nil {
			return nil, err
		}
		return []string{dirs.Upscale}, nil
	})
}

// AssembleType runs the assemble phase for one resource type, reading
// each resource's upscale output and writing the byte-accurate final
// file to its assemble directory.
func (o *Orchestrator) AssembleType(ctx context.Context, typ restype.Type) bool {
	return o.runPhase(ctx, "assemble", typ, func(name string, raw []byte, dirs WorkingDirs, plugin Plugin) ([]string, error) {
		if err := resetDir(dirs.Assemble); err != nil {
			return nil, err
		}
		out, err := plugin.Assemble(dirs.Upscale)
		if err != nil {
			return nil, err
		}
		outPath := filepath.Join(dirs.Assemble, name+"."+restype.Ext(typ))
		if err := os.WriteFile(outPath, out, 0o644); err != nil {
			return nil, err
		}
		return []string{outPath}, nil
	})
}

// resourceTask is the per-resource body a phase runs; raw is nil for
// upscale/assemble (those phases read from a prior stage's directory,
// not from the coordinator).
type resourceTask func(name string, raw []byte, dirs WorkingDirs, plugin Plugin) ([]string, error)

// runPhase implements the per-phase algorithm common to
// extract/upscale/assemble (they differ only in the resourceTask body
// and in whether raw bytes are fetched from the coordinator).
func (o *Orchestrator) runPhase(ctx context.Context, phase string, typ restype.Type, task resourceTask) bool {
	typeName := typ.String()
	processName := phase + ":" + typeName
	debug.Log("pipeline", "batch_%s_start resourceType=%s", phase, typeName)
	debug.Log("pipeline", "resource_type_start resourceType=%s", typeName)

	if !o.Tracker.ShouldProcessPhase(phase, typeName) {
		o.Tracker.EndPhase(phase, typeName, true)
		debug.Log("pipeline", "batch_%s_end resourceType=%s (already complete)", phase, typeName)
		return true
	}

	names, err := o.Coord.ListResourcesByType(typ)
	if err != nil {
		debug.Error("pipeline", err)
		o.Tracker.EndPhase(phase, typeName, false)
		return false
	}

	workSet := make([]string, 0, len(names))
	for _, name := range names {
		if o.Rules.ShouldProcess(phase, typeName, name) {
			workSet = append(workSet, name)
		}
	}

	o.Stats.StartProcess(processName, typeName, len(workSet))
	workRoot := o.Config.WorkingDir(typeName)

	factory := FactoryFor(typ)
	allSucceeded := true
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range workSet {
		name := name
		dirs := DirsFor(workRoot, name, typeName)
		includeFactor := phase != "extract"
		fp := o.buildFingerprintFor(phase, name, typ, includeFactor)

		if !o.Tracker.ShouldProcess(phase, typeName, name, fp, false) {
			o.Stats.IncrementProcessed(processName, true)
			continue
		}

		o.Tracker.MarkStarted(phase, typeName, name, fp)
		plugin := factory(name)

		fut := o.Monitor.Submit(ctx, monitor.Requirements{
			Domain:          monitor.DomainCPU,
			Access:          monitor.AccessShared,
			StartingThreads: 0,
		}, processName+":"+name, func(ctx context.Context) (interface{}, error) {
			var raw []byte
			if phase == "extract" {
				data, _, err := o.Coord.GetResourceData(name, typ)
				if err != nil {
					return nil, err
				}
				raw = data
			}
			return task(name, raw, dirs, plugin)
		})

		wg.Add(1)
		go func(name string, fut *monitor.Future) {
			defer wg.Done()
			val, err := fut.Get()
			success := err == nil
			var outputs []string
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
				debug.Error("pipeline", fmt.Errorf("%s %s/%s: %w", phase, typeName, name, err))
				o.Stats.RecordError(processName, err.Error())
			} else if v, ok := val.([]string); ok {
				outputs = v
			}
			o.Tracker.MarkCompleted(phase, typeName, name, success, outputs, errMsg)
			o.Stats.IncrementProcessed(processName, success)
			if !success {
				mu.Lock()
				allSucceeded = false
				mu.Unlock()
			}
		}(name, fut)
	}

	wg.Wait()
	o.Stats.EndProcess(processName)
	o.Tracker.EndPhase(phase, typeName, allSucceeded)
	debug.Log("pipeline", "batch_%s_end resourceType=%s success=%v", phase, typeName, allSucceeded)
	return allSucceeded
}

func (o *Orchestrator) buildFingerprintFor(phase, name string, typ restype.Type, includeFactor bool) tracker.Fingerprint {
	src, _, _ := o.Coord.ResolveSource(name, typ)
	size, _ := o.Coord.GetResourceSize(name, typ)
	locator := locatorFor(o.Archive, name, typ)
	locator.Size = size

	sourcePath := ""
	var overrideSize uint64
	if src != resource.SourceArchive {
		sourcePath, _ = o.Coord.SourcePath(name, typ)
		overrideSize = uint64(size)
	}

	return buildFingerprint(phase, name, typ, src, sourcePath, overrideSize, o.configHash(includeFactor), opVersion, locator)
}

// ExtractAll, UpscaleAll and AssembleAll run a phase across every
// configured type.
func (o *Orchestrator) ExtractAll(ctx context.Context) bool  { return o.allTypes(ctx, o.ExtractType) }
func (o *Orchestrator) UpscaleAll(ctx context.Context) bool  { return o.allTypes(ctx, o.UpscaleType) }
func (o *Orchestrator) AssembleAll(ctx context.Context) bool { return o.allTypes(ctx, o.AssembleType) }

func (o *Orchestrator) allTypes(ctx context.Context, phaseFn func(context.Context, restype.Type) bool) bool {
	ok := true
	for _, typ := range o.Types {
		if !phaseFn(ctx, typ) {
			ok = false
		}
	}
	return ok
}

// CompleteType runs extract, upscale and assemble for one type in
// order, then transfers its assembled output to the override
// directory.
func (o *Orchestrator) CompleteType(ctx context.Context, typ restype.Type) bool {
	ok := o.ExtractType(ctx, typ)
	ok = o.UpscaleType(ctx, typ) && ok
	ok = o.AssembleType(ctx, typ) && ok
	ok = o.TransferType(typ) && ok
	return ok
}

// CompleteAll syncs the game's override directory into the target
// override tree, then runs CompleteType for every configured type.
func (o *Orchestrator) CompleteAll(ctx context.Context) bool {
	ok := o.SyncOverride() == nil
	for _, typ := range o.Types {
		if !o.CompleteType(ctx, typ) {
			ok = false
		}
	}
	return ok
}
