package pipeline

import (
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/codec/script"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
	"github.com/pie4k/pie4k/internal/restype"
)

// scriptIDSLoader is set through SetScriptIDSLoader at application start,
// before any BCS phase runs: IDS tables are resolved through the resource
// coordinator, which the codec package itself has no dependency on.
var scriptIDSLoader script.IDSLoader

// SetScriptIDSLoader wires the IDS table resolver the script plugin uses
// for decompilation. Call once during orchestrator setup.
func SetScriptIDSLoader(loader script.IDSLoader) {
	scriptIDSLoader = loader
}

func init() {
	RegisterFactory(restype.BCS, newScriptPlugin)
}

const scriptDecompiledFile = "script.txt"

// scriptPlugin drives the BCS token-stream codec through the uniform
// extract/upscale/assemble shape: extract decompiles to text, upscale
// rewrites the "[x.y]" literals and overlays them back onto the
// resident AST, assemble re-serializes.
type scriptPlugin struct {
	name string
	ast  *script.Script // retained across Extract->Upscale->Assemble within one Plugin lifetime
}

func newScriptPlugin(name string) Plugin { return &scriptPlugin{name: name} }

func (p *scriptPlugin) Extract(raw []byte, dir string) error {
	ast, err := script.Parse(raw)
	if err != nil {
		return pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "script", p.name, "extract", err)
	}
	p.ast = ast
	ids := script.NewIDSTables(scriptIDSLoader)
	text := script.Decompile(ast, ids)
	return os.WriteFile(filepath.Join(dir, scriptDecompiledFile), []byte(text), 0o644)
}

// Upscale rewrites every "[x.y]" literal in the decompiled text by
// factor and overlays the result onto the AST Extract parsed, so
// Assemble reproduces the original binary structure with only the
// coordinate-carrying parameters changed.
func (p *scriptPlugin) Upscale(extractDir, upscaleDir string, factor int) error {
	raw, err := os.ReadFile(filepath.Join(extractDir, scriptDecompiledFile))
	if err != nil {
		return pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "script", p.name, "upscale", err)
	}
	upscaled := script.UpscaleText(string(raw), factor)
	if p.ast != nil {
		script.ApplyUpscaledCoordinates(p.ast, upscaled)
	}
	return os.WriteFile(filepath.Join(upscaleDir, scriptDecompiledFile), []byte(upscaled), 0o644)
}

// Assemble re-serializes the AST (with its coordinate parameters already
// overlaid by Upscale) back to the binary token-stream form.
func (p *scriptPlugin) Assemble(dir string) ([]byte, error) {
	if p.ast == nil {
		// A plugin driven fresh against an already-upscaled working tree
		// (e.g. assemble-only re-run): re-parse the upscaled text isn't
		// possible (it's prose, not the grammar), so re-derive the AST
		// from the binary extract directory's sibling if present.
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "script", p.name, "assemble",
			errScriptMissingAST)
	}
	return script.Assemble(p.ast), nil
}
