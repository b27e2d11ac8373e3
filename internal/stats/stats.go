// Package stats keeps per-process in-memory counters, emits a periodic
// progress line every 100 processed items, and produces a human summary
// with errors grouped alphabetically.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pie4k/pie4k/internal/debug"
)

// progressEvery is the cadence at which a progress line is emitted.
const progressEvery = 100

// ProcessStats is one process's (e.g. "extract:BAM") running counters.
type ProcessStats struct {
	ProcessName  string
	ResourceType string
	Total        int
	Processed    int
	Successful   int
	Failed       int
	StartTime    time.Time
	EndTime      time.Time
	ErrorCounts  map[string]int
	Errors       []string
}

// Statistics is the process-wide registry, one instance per pipeline
// run.
type Statistics struct {
	mu        sync.Mutex
	processes map[string]*ProcessStats
}

// New creates an empty Statistics registry.
func New() *Statistics {
	return &Statistics{processes: make(map[string]*ProcessStats)}
}

// StartProcess resets (or creates) the counters for processName.
func (s *Statistics) StartProcess(processName, resourceType string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[processName] = &ProcessStats{
		ProcessName:  processName,
		ResourceType: resourceType,
		Total:        total,
		StartTime:    time.Now(),
		ErrorCounts:  make(map[string]int),
	}
	debug.Log("stats", "starting process %s (%s), %d files", processName, resourceType, total)
}

// IncrementProcessed records one more processed resource and its outcome.
// Every 100th call for a process emits a progress line.
func (s *Statistics) IncrementProcessed(processName string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.processes[processName]
	if !ok {
		return
	}
	p.Processed++
	if success {
		p.Successful++
	} else {
		p.Failed++
	}
	if p.Processed%progressEvery == 0 {
		debug.Log("stats", "%s: %d/%d processed (%d ok, %d failed)",
			processName, p.Processed, p.Total, p.Successful, p.Failed)
	}
}

// RecordError appends an error string and bumps its count, deduplicated
// by exact string match.
func (s *Statistics) RecordError(processName, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.processes[processName]
	if !ok {
		return
	}
	p.Errors = append(p.Errors, errMsg)
	p.ErrorCounts[errMsg]++
}

// EndProcess stamps EndTime for processName.
func (s *Statistics) EndProcess(processName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.processes[processName]; ok {
		p.EndTime = time.Now()
	}
}

// Snapshot returns a defensive copy of all process stats, keyed by
// process name.
func (s *Statistics) Snapshot() map[string]ProcessStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ProcessStats, len(s.processes))
	for name, p := range s.processes {
		out[name] = *p
	}
	return out
}

// GenerateSummary renders a human-readable report, one paragraph per
// process, listing its top error strings alphabetically.
func (s *Statistics) GenerateSummary() string {
	snap := s.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	var out string
	for _, name := range names {
		p := snap[name]
		out += fmt.Sprintf("%s (%s): %d/%d processed, %d ok, %d failed\n",
			p.ProcessName, p.ResourceType, p.Processed, p.Total, p.Successful, p.Failed)

		errs := make([]string, 0, len(p.ErrorCounts))
		for e := range p.ErrorCounts {
			errs = append(errs, e)
		}
		sort.Strings(errs)
		for _, e := range errs {
			out += fmt.Sprintf("  - %s (x%d)\n", e, p.ErrorCounts[e])
		}
	}
	return out
}

// SaveSummaryToFile writes a JSON dump of the current snapshot to path,
// the way the original's StatisticsService wrote a summary file on
// endProcess.
func (s *Statistics) SaveSummaryToFile(path string) error {
	snap := s.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
