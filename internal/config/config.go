// Package config loads the pie4k configuration file and exposes the keys
// the core consumes: GameType, GamePath, GemRBPath, UpScaleFactor,
// Logging and KnownBadResources. GameOverridePath is derived, never
// stored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the process-wide configuration snapshot, loaded once at
// startup and passed down by reference; nothing mutates it afterward.
type Config struct {
	GameType          string   `toml:"game_type"`
	GamePath          string   `toml:"game_path"`
	GemRBPath         string   `toml:"gemrb_path"`
	UpScaleFactor     int      `toml:"upscale_factor"`
	Logging           bool     `toml:"logging"`
	KnownBadResources []string `toml:"known_bad_resources"`
	RulesPath         string   `toml:"rules_path"`
	OutputRoot        string   `toml:"output_root"`
}

// DefaultConfigPath is the root-level config file name looked up when the
// caller doesn't pass an explicit -c path.
const DefaultConfigPath = "pie4k.toml"

// Load reads and parses a TOML config file, validating the keys the core
// requires. Missing optional keys fall back to sane defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		UpScaleFactor: 1,
		OutputRoot:    "output",
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(cfg.KnownBadResources))
	for _, name := range cfg.KnownBadResources {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(name)))
	}
	cfg.KnownBadResources = normalized

	return cfg, nil
}

// Validate checks the invariants the rest of the core assumes hold.
func (c *Config) Validate() error {
	if c.GameType == "" {
		return fmt.Errorf("config: GameType is required")
	}
	if c.GamePath == "" {
		return fmt.Errorf("config: GamePath is required")
	}
	if c.UpScaleFactor < 1 {
		return fmt.Errorf("config: UpScaleFactor must be a positive integer, got %d", c.UpScaleFactor)
	}
	return nil
}

// KeyFilePath is the installation's archive index file, GamePath +
// "/chitin.key", the root every BIF archive path is resolved relative
// to.
func (c *Config) KeyFilePath() string {
	return filepath.Join(c.GamePath, "chitin.key")
}

// GameOverridePath is GamePath + "/override".
func (c *Config) GameOverridePath() string {
	return filepath.Join(c.GamePath, "override")
}

// UnhardcodedGamePath is the per-game loose-file tree consulted after
// override and before the shared unhardcoded tree.
func (c *Config) UnhardcodedGamePath() string {
	return filepath.Join(c.GemRBPath, "unhardcoded", strings.ToLower(c.GameType))
}

// UnhardcodedSharedPath is the lowest-priority loose-file tree.
func (c *Config) UnhardcodedSharedPath() string {
	return filepath.Join(c.GemRBPath, "unhardcoded", "shared")
}

// OverrideOutputDir is the final-output override tree written by
// transfer, <cwd>/<GameType>-overrideX<k>.
func (c *Config) OverrideOutputDir() string {
	return fmt.Sprintf("%s-overrideX%d", c.GameType, c.UpScaleFactor)
}

// WorkingDir is the per-type, per-phase working tree root
// output/<GameType>/<type>/.
func (c *Config) WorkingDir(resourceType string) string {
	return filepath.Join(c.OutputRoot, c.GameType, resourceType)
}

// IsKnownBad reports whether name (already canonical upper-case) is in
// the configured known-bad set, skipped by the loose-file indexers.
func (c *Config) IsKnownBad(name string) bool {
	for _, bad := range c.KnownBadResources {
		if bad == name {
			return true
		}
	}
	return false
}
