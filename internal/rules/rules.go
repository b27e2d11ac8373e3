// Package rules implements a JSON-driven include/exclude filter: one or
// more rule files are loaded at startup, in a fixed precedence order
// (an explicit path, then a root rules.json, then rules/*.json sorted so
// type files precede resource files), and queried per (operation,
// resourceType, resourceName) before the pipeline orchestrator queues
// any work. Evaluation is last-decision-wins across applicable rules,
// fail-open when no rule applies. Globs are matched with
// github.com/bmatcuk/doublestar/v4, case-insensitively by upper-casing
// both pattern and candidate first.
package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
)

// Rule is one filter record.
type Rule struct {
	ResourceType string   `json:"resourceType"`
	Operations   []string `json:"operations"`
	Include      []string `json:"include"`
	Exclude      []string `json:"exclude"`
}

// fileRules is the on-disk shape of a rules JSON file: {"rules": [...]}.
type fileRules struct {
	Rules []Rule `json:"rules"`
}

// Engine holds the loaded, immutable rule set: load once at startup and
// share a read-only reference rather than mutating rules state at
// runtime.
type Engine struct {
	rules []Rule
}

// Load reads rules in the following precedence order:
//  1. explicitPath, if non-empty and present
//  2. root-level rules.json
//  3. every *.json under rulesDir, sorted lexicographically so that
//     "<TYPE>.json" sorts before "<NAME>.<TYPE>.json"
//
// Missing files at any of these locations are skipped silently
// (fail-open); a malformed file is logged via onParseError and skipped,
// never fatal. onParseError may be nil.
func Load(explicitPath, rulesDir string, onParseError func(error)) *Engine {
	e := &Engine{}

	report := func(err error) {
		if onParseError != nil {
			onParseError(err)
		}
	}

	loadFile := func(path, contextType, contextName string) {
		data, err := os.ReadFile(path)
		if err != nil {
			return // fail-open: the file simply doesn't exist
		}
		var fr fileRules
		if err := json.Unmarshal(data, &fr); err != nil {
			report(pie4kerrors.NewRulesParseError(path, err))
			return
		}
		for _, r := range fr.Rules {
			if r.ResourceType == "" {
				if contextType != "" {
					r.ResourceType = contextType
				} else {
					r.ResourceType = "*"
				}
			}
			if len(r.Include) == 0 && contextName != "" {
				r.Include = []string{contextName}
			}
			e.rules = append(e.rules, r)
		}
	}

	if explicitPath != "" {
		loadFile(explicitPath, "", "")
	}
	loadFile("rules.json", "", "")

	if entries, err := os.ReadDir(rulesDir); err == nil {
		var names []string
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			stem := strings.TrimSuffix(name, ".json")
			contextType, contextName := stem, ""
			if dot := strings.Index(stem, "."); dot >= 0 {
				contextName, contextType = stem[:dot], stem[dot+1:]
			}
			loadFile(filepath.Join(rulesDir, name), contextType, contextName)
		}
	}

	return e
}

// ShouldProcess answers the (operation, resourceType, resourceName) query:
// applicable rules are evaluated in file order; the last rule to reach a
// decision wins; with no decision from any applicable rule, the verdict
// is deny; with no applicable rule at all, it's allow (fail-open).
func (e *Engine) ShouldProcess(operation, resourceType, resourceName string) bool {
	if e == nil || len(e.rules) == 0 {
		return true
	}

	var decision *bool
	anyApplicable := false
	nameWithExt := resourceName + "." + resourceType

	for _, r := range e.rules {
		if !matchesType(r, resourceType) {
			continue
		}
		if !matchesOperation(r, operation) {
			continue
		}
		anyApplicable = true

		excluded := matchAny(r.Exclude, resourceName) || matchAny(r.Exclude, nameWithExt)
		included := len(r.Include) == 0 || matchAny(r.Include, resourceName) || matchAny(r.Include, nameWithExt)

		if excluded {
			v := false
			decision = &v
		} else if included {
			v := true
			decision = &v
		}
	}

	if decision != nil {
		return *decision
	}
	return !anyApplicable
}

func matchesType(r Rule, resourceType string) bool {
	return r.ResourceType == "*" || strings.EqualFold(r.ResourceType, resourceType)
}

func matchesOperation(r Rule, operation string) bool {
	if len(r.Operations) == 0 {
		return true
	}
	for _, op := range r.Operations {
		if op == "*" || strings.EqualFold(op, operation) {
			return true
		}
	}
	return false
}

// matchAny reports whether text matches any of patterns, using glob
// semantics (? = one char, * = zero or more, everything else
// case-insensitive) implemented via doublestar.Match over upper-cased
// operands.
func matchAny(patterns []string, text string) bool {
	upperText := strings.ToUpper(text)
	for _, p := range patterns {
		if matchGlob(strings.ToUpper(p), upperText) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, text string) bool {
	if pattern == "" {
		// An empty pattern never matches, even empty input, except via
		// an explicit "*".
		return false
	}
	matched, err := doublestar.Match(strings.ToUpper(pattern), strings.ToUpper(text))
	if err != nil {
		return false
	}
	return matched
}
