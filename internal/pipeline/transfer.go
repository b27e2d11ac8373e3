package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/debug"
	"github.com/pie4k/pie4k/internal/restype"
)

// TransferType copies every regular file out of typ's assemble working
// directories into the final override output tree, overwriting existing
// files. Only resources the rules engine allows for the "transfer"
// operation are copied.
func (o *Orchestrator) TransferType(typ restype.Type) bool {
	typeName := typ.String()
	names, err := o.Coord.ListResourcesByType(typ)
	if err != nil {
		debug.Error("pipeline", err)
		return false
	}

	destRoot := o.Config.OverrideOutputDir()
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		debug.Error("pipeline", err)
		return false
	}
	workRoot := o.Config.WorkingDir(typeName)

	overwrites, errCount := 0, 0
	for _, name := range names {
		if !o.Rules.ShouldProcess("transfer", typeName, name) {
			continue
		}
		dirs := DirsFor(workRoot, name, typeName)
		entries, err := os.ReadDir(dirs.Assemble)
		if err != nil {
			continue // nothing assembled for this resource yet
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			src := filepath.Join(dirs.Assemble, entry.Name())
			dst := filepath.Join(destRoot, entry.Name())
			if _, err := os.Stat(dst); err == nil {
				overwrites++
			}
			if err := copyFile(src, dst); err != nil {
				debug.Error("pipeline", err)
				errCount++
			}
		}
	}

	debug.Log("pipeline", "transfer %s: %d overwrites, %d errors", typeName, overwrites, errCount)
	return errCount == 0
}

// TransferAll runs TransferType across every configured type.
func (o *Orchestrator) TransferAll() bool {
	ok := true
	for _, typ := range o.Types {
		if !o.TransferType(typ) {
			ok = false
		}
	}
	return ok
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
