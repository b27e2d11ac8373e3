package pipeline

import (
	"os"
	"path/filepath"

	"github.com/pie4k/pie4k/internal/codec/texture"
	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
	"github.com/pie4k/pie4k/internal/restype"
)

func init() {
	RegisterFactory(restype.PVRZ, newTexturePlugin)
}

const texturePixelsFile = "page.raw"

// texturePlugin drives the DXT1/DXT5 texture page codec through the
// uniform extract/upscale/assemble shape. The intermediate is a flat
// ARGB pixel dump (width, height, a format byte, then one Pixel per
// cell) rather than a
// real PNG: GPU-backed super-resolution is treated as an opaque external
// "upscale a PNG to a PNG" service, out of scope here, so Upscale
// applies the same nearest-neighbor policy the indexed bitmap codec
// uses, and a real deployment swaps PNGUpscaler.Upscale in for this
// stage without touching Extract/Assemble.
type texturePlugin struct {
	name     string
	upscaler PNGUpscaler
}

func newTexturePlugin(name string) Plugin {
	return &texturePlugin{name: name, upscaler: defaultUpscaler}
}

func (p *texturePlugin) Extract(raw []byte, dir string) error {
	page, err := texture.Decode(raw)
	if err != nil {
		return pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", p.name, "extract", err)
	}
	return writePagePixels(filepath.Join(dir, texturePixelsFile), page)
}

// Upscale nearest-neighbor scales the decoded pixel grid by factor and
// hands it through the configured PNGUpscaler (a passthrough by
// default): the core only needs the interface contract, not a real
// super-resolution model.
func (p *texturePlugin) Upscale(extractDir, upscaleDir string, factor int) error {
	page, err := readPagePixels(filepath.Join(extractDir, texturePixelsFile))
	if err != nil {
		return pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", p.name, "upscale", err)
	}
	nn := nearestNeighborPixels(page, factor)
	if p.upscaler != nil {
		png := encodeRawPNGContainer(nn)
		out, err := p.upscaler.Upscale(png)
		if err != nil {
			return pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "texture", p.name, "upscale", err)
		}
		if decoded, ok := decodeRawPNGContainer(out); ok {
			nn = decoded
		}
	}
	return writePagePixels(filepath.Join(upscaleDir, texturePixelsFile), nn)
}

func (p *texturePlugin) Assemble(dir string) ([]byte, error) {
	page, err := readPagePixels(filepath.Join(dir, texturePixelsFile))
	if err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "texture", p.name, "assemble", err)
	}
	out, err := texture.Encode(page)
	if err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "texture", p.name, "assemble", err)
	}
	return out, nil
}

func nearestNeighborPixels(p *texture.Page, k int) *texture.Page {
	if k <= 1 {
		pixels := make([]texture.Pixel, len(p.Pixels))
		copy(pixels, p.Pixels)
		return &texture.Page{Width: p.Width, Height: p.Height, Format: p.Format, Pixels: pixels}
	}
	dst := &texture.Page{Width: p.Width * k, Height: p.Height * k, Format: p.Format}
	dst.Pixels = make([]texture.Pixel, dst.Width*dst.Height)
	for y := 0; y < dst.Height; y++ {
		sy := y / k
		for x := 0; x < dst.Width; x++ {
			sx := x / k
			dst.Pixels[y*dst.Width+x] = p.Pixels[sy*p.Width+sx]
		}
	}
	return dst
}

func writePagePixels(path string, p *texture.Page) error {
	out := make([]byte, 9+len(p.Pixels)*4)
	putU32(out[0:4], uint32(p.Width))
	putU32(out[4:8], uint32(p.Height))
	out[8] = byte(p.Format)
	for i, px := range p.Pixels {
		o := 9 + i*4
		out[o], out[o+1], out[o+2], out[o+3] = px.A, px.R, px.G, px.B
	}
	return os.WriteFile(path, out, 0o644)
}

func readPagePixels(path string) (*texture.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 9 {
		return nil, errShortIntermediate
	}
	width := int(getU32(data[0:4]))
	height := int(getU32(data[4:8]))
	format := texture.Format(data[8])
	pixels := make([]texture.Pixel, width*height)
	for i := range pixels {
		o := 9 + i*4
		if o+4 > len(data) {
			break
		}
		pixels[i] = texture.Pixel{A: data[o], R: data[o+1], G: data[o+2], B: data[o+3]}
	}
	return &texture.Page{Width: width, Height: height, Format: format, Pixels: pixels}, nil
}

// encodeRawPNGContainer and decodeRawPNGContainer stand in for real PNG
// encode/decode at the PNGUpscaler boundary: the default passthrough
// upscaler never inspects the bytes it's handed, so the wire shape only
// has to be self-consistent within this package. The real
// super-resolution service is external and opaque; only its contract,
// "a PNG in, a PNG out", is specified here.
func encodeRawPNGContainer(p *texture.Page) []byte {
	out := make([]byte, 9+len(p.Pixels)*4)
	putU32(out[0:4], uint32(p.Width))
	putU32(out[4:8], uint32(p.Height))
	out[8] = byte(p.Format)
	for i, px := range p.Pixels {
		o := 9 + i*4
		out[o], out[o+1], out[o+2], out[o+3] = px.A, px.R, px.G, px.B
	}
	return out
}

func decodeRawPNGContainer(data []byte) (*texture.Page, bool) {
	if len(data) < 9 {
		return nil, false
	}
	width := int(getU32(data[0:4]))
	height := int(getU32(data[4:8]))
	format := texture.Format(data[8])
	pixels := make([]texture.Pixel, width*height)
	for i := range pixels {
		o := 9 + i*4
		if o+4 > len(data) {
			break
		}
		pixels[i] = texture.Pixel{A: data[o], R: data[o+1], G: data[o+2], B: data[o+3]}
	}
	return &texture.Page{Width: width, Height: height, Format: format, Pixels: pixels}, true
}
