package pipeline

import (
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/debug"
)

// SyncOverride recursively copies the game's override directory into the
// target override tree, preserving relative paths. Run once by
// CompleteAll before extraction begins.
func (o *Orchestrator) SyncOverride() error {
	src := o.Config.GameOverridePath()
	dst := o.Config.OverrideOutputDir()

	if _, err := os.Stat(src); os.IsNotExist(err) {
		debug.Log("pipeline", "sync: override directory %s does not exist, nothing to sync", src)
		return nil
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
