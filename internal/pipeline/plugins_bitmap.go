package pipeline

import (
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/codec/bitmap"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
	"github.com/pie4k/pie4k/internal/restype"
)

func init() {
	RegisterFactory(restype.BMP, newBitmapPlugin)
}

// bitmapPlugin drives the indexed bitmap codec through the uniform
// extract/upscale/assemble shape. The three "search"/"light"/"height"
// sub-variants share this plugin, treated uniformly; only the nibble
// semantics differ, and those never surface at the byte level this
// plugin operates on.
type bitmapPlugin struct {
	name string
}

func newBitmapPlugin(name string) Plugin { return &bitmapPlugin{name: name} }

const bitmapIntermediateFile = "bitmap.raw"

// Extract decodes the on-disk indexed bitmap and writes its decoded cell
// grid to dir in a tiny intermediate container: width, height, then one
// byte per cell (row-major, top row first), sufficient for Upscale to
// read back exactly what Decode produced.
func (p *bitmapPlugin) Extract(raw []byte, dir string) error {
	b, err := bitmap.Decode(raw)
	if err != nil {
		return pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "bitmap", p.name, "extract", err)
	}
	return writeBitmapIntermediate(filepath.Join(dir, bitmapIntermediateFile), b)
}

// Upscale nearest-neighbor-scales the extracted cell grid by factor and
// writes the result to upscaleDir in the same container shape.
func (p *bitmapPlugin) Upscale(extractDir, upscaleDir string, factor int) error {
	b, err := readBitmapIntermediate(filepath.Join(extractDir, bitmapIntermediateFile))
	if err != nil {
		return pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "bitmap", p.name, "upscale", err)
	}
	up := bitmap.Upscale(b, factor)
	return writeBitmapIntermediate(filepath.Join(upscaleDir, bitmapIntermediateFile), up)
}

// Assemble re-encodes the upscaled cell grid into the on-disk BMP shape.
func (p *bitmapPlugin) Assemble(dir string) ([]byte, error) {
	b, err := readBitmapIntermediate(filepath.Join(dir, bitmapIntermediateFile))
	if err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "bitmap", p.name, "assemble", err)
	}
	return bitmap.Encode(b), nil
}

func writeBitmapIntermediate(path string, b *bitmap.Bitmap) error {
	out := make([]byte, 8+len(b.Cells))
	putU32(out[0:4], uint32(b.Width))
	putU32(out[4:8], uint32(b.Height))
	copy(out[8:], b.Cells)
	return os.WriteFile(path, out, 0o644)
}

func readBitmapIntermediate(path string) (*bitmap.Bitmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, errShortIntermediate
	}
	width := int(getU32(data[0:4]))
	height := int(getU32(data[4:8]))
	cells := make([]uint8, width*height)
	copy(cells, data[8:])
	return &bitmap.Bitmap{Width: width, Height: height, Cells: cells}, nil
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
