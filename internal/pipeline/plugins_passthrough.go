package pipeline

import (
	"os"
	"path/filepath"
)

const passthroughFile = "data.bin"

// passthroughPlugin implements the byte-copy asset families that have no
// dedicated codec: extract writes the exact input bytes, upscale is a
// no-op copy, assemble returns the bytes unchanged. The orchestrator
// still drives these resources through the same three phases and the
// same fingerprint/ledger/rules machinery as a codec'd family.
type passthroughPlugin struct{}

func newPassthroughPlugin(string) Plugin { return passthroughPlugin{} }

func (passthroughPlugin) Extract(raw []byte, dir string) error {
	return os.WriteFile(filepath.Join(dir, passthroughFile), raw, 0o644)
}

func (passthroughPlugin) Upscale(extractDir, upscaleDir string, factor int) error {
	data, err := os.ReadFile(filepath.Join(extractDir, passthroughFile))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(upscaleDir, passthroughFile), data, 0o644)
}

func (passthroughPlugin) Assemble(dir string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, passthroughFile))
}
