// Package tracker implements an append-only JSONL operations ledger plus
// an in-memory "latest entry" cache used to decide whether a resource
// needs (re)processing. Phase completion is marked with a marker file;
// the cache is hydrated from existing ledger lines at startup so a
// shouldProcess check never blocks on a full ledger replay. configHash
// is computed with github.com/cespare/xxhash/v2.
package tracker

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/pie4k/pie4k/internal/debug"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
)

// Fingerprint is the tuple of inputs that determines whether a previous
// operation remains valid.
type Fingerprint struct {
	ConfigHash   string
	OpVersion    string
	BifIndex     int
	KeyLocator   uint32
	Size         uint32
	SourcePath   string
	Mtime        int64
	OverrideSize uint64
}

// HashConfig combines arbitrary config fields into the ConfigHash field of
// a Fingerprint using xxhash, so any change to upscale factor, rules, or
// other relevant inputs invalidates cached completions.
func HashConfig(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

type latestEntry struct {
	Fingerprint
	Success bool
}

func (f Fingerprint) equal(o Fingerprint) bool {
	return f == o
}

func key(phase, resourceType, resourceName string) string {
	return phase + "|" + resourceType + "|" + resourceName
}

// Tracker owns the ledger file handle, the phase-marker directory and the
// hydrated cache. One Tracker instance lives for the process.
type Tracker struct {
	opsDir string

	mu          sync.Mutex
	ledgerFile  *os.File
	cache       map[string]latestEntry
	cacheReady  bool
	forceGlobal func() bool
}

// New creates a Tracker rooted at opsDir (output/<gameType>/.pie4k).
// forceGlobal reads the process-wide --force flag from the global
// context; pass nil to treat it as always false.
func New(opsDir string, forceGlobal func() bool) *Tracker {
	if forceGlobal == nil {
		forceGlobal = func() bool { return false }
	}
	return &Tracker{
		opsDir:      opsDir,
		cache:       make(map[string]latestEntry),
		forceGlobal: forceGlobal,
	}
}

// ledgerPath is output/<gameType>/.pie4k/ops.jsonl.
func (t *Tracker) ledgerPath() string {
	return filepath.Join(t.opsDir, "ops.jsonl")
}

func (t *Tracker) markerPath(phase, resourceType string) string {
	return filepath.Join(t.opsDir, "complete", phase+"_"+resourceType+".done")
}

func (t *Tracker) ensureLedgerOpenLocked() error {
	if t.ledgerFile != nil {
		return nil
	}
	if err := os.MkdirAll(t.opsDir, 0o755); err != nil {
		return pie4kerrors.NewLedgerWriteError(t.opsDir, err)
	}
	f, err := os.OpenFile(t.ledgerPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return pie4kerrors.NewLedgerWriteError(t.ledgerPath(), err)
	}
	t.ledgerFile = f
	return nil
}

func (t *Tracker) writeLineLocked(entry map[string]interface{}) error {
	if err := t.ensureLedgerOpenLocked(); err != nil {
		debug.Error("tracker", err)
		return err
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := t.ledgerFile.Write(line); err != nil {
		werr := pie4kerrors.NewLedgerWriteError(t.ledgerPath(), err)
		debug.Error("tracker", werr)
		return werr
	}
	return t.ledgerFile.Sync()
}

// HydrateCache replays every existing ledger line into the in-memory
// latest-entry map. It is meant to run in a background goroutine;
// ShouldProcess/ShouldProcessPhase must not block on it. Queries made
// before hydration finishes simply see an empty cache and answer
// "process this", which is always a safe (if possibly redundant) answer.
func (t *Tracker) HydrateCache() {
	data, err := os.ReadFile(t.ledgerPath())
	replayed := make(map[string]latestEntry)
	if err == nil {
		decoder := json.NewDecoder(bytes.NewReader(data))
		for {
			var raw map[string]interface{}
			if err := decoder.Decode(&raw); err != nil {
				break
			}
			applyLedgerLine(replayed, raw)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, le := range replayed {
		if _, live := t.cache[k]; !live {
			t.cache[k] = le
		}
	}
	t.cacheReady = true
}

func applyLedgerLine(cache map[string]latestEntry, raw map[string]interface{}) {
	event, _ := raw["event"].(string)
	if event != "start" && event != "end" {
		return
	}
	phase, _ := raw["phase"].(string)
	resourceType, _ := raw["resourceType"].(string)
	resourceName, _ := raw["resourceName"].(string)
	if phase == "" || resourceType == "" || resourceName == "" {
		return
	}
	k := key(phase, resourceType, resourceName)

	switch event {
	case "start":
		le := cache[k]
		fpRaw, _ := raw["fp"].(map[string]interface{})
		le.Fingerprint = fingerprintFromMap(fpRaw)
		cache[k] = le
	case "end":
		le := cache[k]
		if success, ok := raw["success"].(bool); ok {
			le.Success = success
		}
		cache[k] = le
	}
}

func fingerprintFromMap(m map[string]interface{}) Fingerprint {
	var fp Fingerprint
	fp.ConfigHash, _ = m["configHash"].(string)
	fp.OpVersion, _ = m["opVersion"].(string)
	if v, ok := m["bifIndex"].(float64); ok {
		fp.BifIndex = int(v)
	}
	if v, ok := m["keyLocator"].(float64); ok {
		fp.KeyLocator = uint32(v)
	}
	if v, ok := m["size"].(float64); ok {
		fp.Size = uint32(v)
	}
	fp.SourcePath, _ = m["sourcePath"].(string)
	if v, ok := m["mtime"].(float64); ok {
		fp.Mtime = int64(v)
	}
	if v, ok := m["overrideSize"].(float64); ok {
		fp.OverrideSize = uint64(v)
	}
	return fp
}

// StartPhase writes a phase_start event.
func (t *Tracker) StartPhase(phase, resourceType string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.writeLineLocked(map[string]interface{}{
		"event":        "phase_start",
		"phase":        phase,
		"resourceType": resourceType,
		"total":        total,
	})
}

// EndPhase writes a phase_end event and, when allSucceeded, creates the
// phase marker file consulted by ShouldProcessPhase.
func (t *Tracker) EndPhase(phase, resourceType string, allSucceeded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.writeLineLocked(map[string]interface{}{
		"event":        "phase_end",
		"phase":        phase,
		"resourceType": resourceType,
		"allSucceeded": allSucceeded,
	})
	if allSucceeded {
		marker := t.markerPath(phase, resourceType)
		if err := os.MkdirAll(filepath.Dir(marker), 0o755); err == nil {
			if f, err := os.Create(marker); err == nil {
				f.Close()
			}
		}
	}
}

// ShouldProcessPhase is false iff the phase/type marker exists and the
// global force flag is unset.
func (t *Tracker) ShouldProcessPhase(phase, resourceType string) bool {
	if t.forceGlobal() {
		return true
	}
	_, err := os.Stat(t.markerPath(phase, resourceType))
	return err != nil
}

// ShouldProcess answers per-resource skip decisions: true if force
// (local or global) is set; else true if there is no cached entry,
// the cached entry's last success is false, or any fingerprint field
// differs; false only on an exact fingerprint match against a previously
// successful run.
func (t *Tracker) ShouldProcess(phase, resourceType, resourceName string, fp Fingerprint, force bool) bool {
	if force || t.forceGlobal() {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	le, ok := t.cache[key(phase, resourceType, resourceName)]
	if !ok {
		return true
	}
	if !le.Success {
		return true
	}
	return !le.Fingerprint.equal(fp)
}

// MarkStarted writes a start event carrying the fingerprint and updates
// the cache so concurrent shouldProcess callers see it immediately.
func (t *Tracker) MarkStarted(phase, resourceType, resourceName string, fp Fingerprint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.writeLineLocked(map[string]interface{}{
		"event":        "start",
		"phase":        phase,
		"resourceType": resourceType,
		"resourceName": resourceName,
		"fp": map[string]interface{}{
			"configHash":   fp.ConfigHash,
			"opVersion":    fp.OpVersion,
			"bifIndex":     fp.BifIndex,
			"keyLocator":   fp.KeyLocator,
			"size":         fp.Size,
			"sourcePath":   fp.SourcePath,
			"mtime":        fp.Mtime,
			"overrideSize": fp.OverrideSize,
		},
	})

	k := key(phase, resourceType, resourceName)
	le := t.cache[k]
	le.Fingerprint = fp
	t.cache[k] = le
}

// MarkCompleted writes an end event and updates the cached success flag.
func (t *Tracker) MarkCompleted(phase, resourceType, resourceName string, success bool, outputs []string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := map[string]interface{}{
		"event":        "end",
		"phase":        phase,
		"resourceType": resourceType,
		"resourceName": resourceName,
		"success":      success,
		"outputs":      outputs,
	}
	if errMsg != "" {
		entry["error"] = errMsg
	}
	_ = t.writeLineLocked(entry)

	k := key(phase, resourceType, resourceName)
	le := t.cache[k]
	le.Success = success
	t.cache[k] = le
}

// Close flushes and closes the ledger file handle.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ledgerFile == nil {
		return nil
	}
	err := t.ledgerFile.Close()
	t.ledgerFile = nil
	return err
}
