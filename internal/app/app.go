// Package app is the process root: it owns one instance of every core
// collaborator for the lifetime of a pipeline run and wires them
// together via explicit dependency injection rather than process-wide
// singletons.
package app

import (
	"strings"
	"time"

	"github.com/pie4k/pie4k/internal/archive"
	"github.com/pie4k/pie4k/internal/config"
	"github.com/pie4k/pie4k/internal/debug"
	"github.com/pie4k/pie4k/internal/globalctx"
	"github.com/pie4k/pie4k/internal/loose"
	"github.com/pie4k/pie4k/internal/monitor"
	"github.com/pie4k/pie4k/internal/pipeline"
	"github.com/pie4k/pie4k/internal/resource"
	"github.com/pie4k/pie4k/internal/restype"
	"github.com/pie4k/pie4k/internal/rules"
	"github.com/pie4k/pie4k/internal/stats"
	"github.com/pie4k/pie4k/internal/tracker"
)

// forceProviderName is the global context provider the operations
// tracker reads its --force flag from.
const forceProviderName = "OperationsTracker"

// App is the process root, holding one instance of every core
// collaborator, created at application start and released at
// shutdown.
type App struct {
	Config       *config.Config
	GlobalCtx    *globalctx.Context
	Coordinator  *resource.Coordinator
	ArchiveIndex *archive.KeyIndex
	Rules        *rules.Engine
	Tracker      *tracker.Tracker
	Stats        *stats.Statistics
	Monitor      *monitor.Monitor
	Numbering    *pipeline.PageNumbering
	Orchestrator *pipeline.Orchestrator

	archiveReady chan struct{}
}

// New loads configPath and constructs every collaborator, but does not
// yet perform the archive/loose scans (call Start for that). args is the
// raw CLI argument list, parsed once by every registered Global Context
// provider.
func New(configPath string, args []string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	debug.SetEnabled(cfg.Logging)

	gctx := globalctx.New()
	gctx.RegisterProvider(forceProviderName, parseForceFlag)
	gctx.ParseAll(args)

	a := &App{
		Config:      cfg,
		GlobalCtx:   gctx,
		Coordinator: resource.New(),
		Stats:       stats.New(),
		Monitor:     monitor.New(),
		Numbering:   pipeline.NewPageNumbering(),
	}
	a.Tracker = tracker.New(cfg.WorkingDir(".pie4k"), a.force)
	return a, nil
}

// force reads the --force flag from the process-wide global context
// provider named OperationsTracker, key force.
func (a *App) force() bool {
	return a.GlobalCtx.GetValue(forceProviderName, "force") == "true"
}

// parseForceFlag is the global context provider function for --force: a
// trivial linear scan of argv, parsed once eagerly at startup rather than
// through a callback-style provider.
func parseForceFlag(args []string) map[string]string {
	for _, a := range args {
		if a == "--force" {
			return map[string]string{"force": "true"}
		}
	}
	return map[string]string{"force": "false"}
}

// Start performs the archive parse, the three loose-file scans, rules
// loading, and the resource coordinator wiring. Archive size-index
// construction and ledger hydration run in background goroutines;
// callers that need them complete block via WaitArchiveReady, or rely on
// the tracker's own fail-open semantics.
func (a *App) Start() error {
	override, err := loose.Scan(a.Config.GameOverridePath(), a.Config.IsKnownBad)
	if err != nil {
		return err
	}
	unGame, err := loose.Scan(a.Config.UnhardcodedGamePath(), a.Config.IsKnownBad)
	if err != nil {
		return err
	}
	unShared, err := loose.Scan(a.Config.UnhardcodedSharedPath(), a.Config.IsKnownBad)
	if err != nil {
		return err
	}

	var archiveReader *archive.Reader
	if idx, err := archive.ParseKeyFile(a.Config.KeyFilePath()); err == nil {
		idx.ResolveBifPaths(a.Config.GamePath)
		a.ArchiveIndex = idx
		archiveReader = archive.NewReader(a.Config.GamePath, idx)
		a.archiveReady = make(chan struct{})
		go func() {
			if err := archiveReader.BuildSizeIndex(); err != nil {
				debug.Error("app", err)
			}
			close(a.archiveReady)
		}()
	} else {
		debug.Log("app", "no archive index at %s, running loose-files-only", a.Config.KeyFilePath())
	}

	a.Coordinator.Init(archiveReader, override, unGame, unShared)

	explicitRules := a.Config.RulesPath
	a.Rules = rules.Load(explicitRules, "rules", func(err error) { debug.Error("rules", err) })

	go a.Tracker.HydrateCache()

	pipeline.SetScriptIDSLoader(func(table string) ([]byte, bool) {
		data, _, err := a.Coordinator.GetResourceData(strings.ToUpper(table), restype.IDS)
		if err != nil {
			return nil, false
		}
		return data, true
	})

	a.Orchestrator = &pipeline.Orchestrator{
		Config:  a.Config,
		Coord:   a.Coordinator,
		Archive: a.ArchiveIndex,
		Rules:   a.Rules,
		Tracker: a.Tracker,
		Stats:   a.Stats,
		Monitor: a.Monitor,
		Numbers: a.Numbering,
		Types:   restype.All(),
	}
	return nil
}

// WaitArchiveReady blocks, polling on a short sleep, until the archive
// reader's size index has finished building, or returns immediately if
// there is no archive for this installation.
func (a *App) WaitArchiveReady() {
	if a.archiveReady == nil {
		return
	}
	for {
		select {
		case <-a.archiveReady:
			return
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// Close flushes and releases resources owned by the App: the ledger
// file handle is the only OS resource any collaborator holds open.
func (a *App) Close() error {
	return a.Tracker.Close()
}
