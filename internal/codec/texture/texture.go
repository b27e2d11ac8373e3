package texture

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
)

const (
	pvrSignature  = 0x03525650
	pvrHeaderSize = 52

	pixelFormatDXT1 = 7
	pixelFormatDXT5 = 11
)

// Page is a decoded texture page: a rectangular ARGB image plus the
// format it was (or will be) encoded with.
type Page struct {
	Width, Height int
	Format        Format // resolved DXT1/DXT5, never FormatAuto
	Pixels        []Pixel
}

// SubImage positions one image within an atlas page.
type SubImage struct {
	X, Y   int
	Width  int
	Height int
	Pixels []Pixel
}

// ComposeAtlas lays out sub-images onto a single page. A single input is
// placed at (0,0) using its own dimensions as the page dimensions.
func ComposeAtlas(subs []SubImage, format Format) (*Page, error) {
	if len(subs) == 0 {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "texture", "", "assemble", errNoSubImages)
	}
	width, height := subs[0].Width, subs[0].Height
	if len(subs) == 1 {
		subs[0].X, subs[0].Y = 0, 0
	} else {
		width, height = 0, 0
		for _, s := range subs {
			if s.X+s.Width > width {
				width = s.X + s.Width
			}
			if s.Y+s.Height > height {
				height = s.Y + s.Height
			}
		}
	}

	page := &Page{Width: width, Height: height, Pixels: make([]Pixel, width*height)}
	for _, s := range subs {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				dx, dy := s.X+x, s.Y+y
				if dx < 0 || dy < 0 || dx >= width || dy >= height {
					continue
				}
				page.Pixels[dy*width+dx] = s.Pixels[y*s.Width+x]
			}
		}
	}

	page.Format = resolveFormat(format, page.Pixels)
	return page, nil
}

func resolveFormat(format Format, pixels []Pixel) Format {
	if format != FormatAuto {
		return format
	}
	if needsDXT5(pixels) {
		return FormatDXT5
	}
	return FormatDXT1
}

// padToPowerOfTwo pads page dimensions up to the next power of two with
// zeroed (transparent black) pixels; dimensions must be powers of two, so
// a non-conforming input is padded with zeros rather than rejected.
func (p *Page) padToPowerOfTwo() {
	w, h := nextPow2(p.Width), nextPow2(p.Height)
	if w == p.Width && h == p.Height {
		return
	}
	padded := make([]Pixel, w*h)
	for y := 0; y < p.Height; y++ {
		copy(padded[y*w:y*w+p.Width], p.Pixels[y*p.Width:(y+1)*p.Width])
	}
	p.Width, p.Height, p.Pixels = w, h, padded
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	v := 1
	for v < n {
		v <<= 1
	}
	return v
}

// Encode compresses p's block payload and wraps it with the PVR header,
// a 4-byte length prefix, and a zlib stream.
func Encode(p *Page) ([]byte, error) {
	page := *p
	page.padToPowerOfTwo()
	if page.Format == FormatAuto {
		page.Format = resolveFormat(FormatAuto, page.Pixels)
	}

	blocks := encodeBlocks(&page)
	header := buildHeader(page.Width, page.Height, page.Format)

	var plain bytes.Buffer
	plain.Write(header)
	plain.Write(blocks)

	var out bytes.Buffer
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(plain.Len()))
	out.Write(lenPrefix[:])

	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(plain.Bytes()); err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "texture", "", "assemble", err)
	}
	if err := zw.Close(); err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindEncode, "texture", "", "assemble", err)
	}
	return out.Bytes(), nil
}

// Decode inverts Encode: unwraps the length prefix and zlib stream, reads
// the PVR header, and decodes the block payload back to pixels.
func Decode(data []byte) (*Page, error) {
	if len(data) < 4 {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", "", "extract", errShortInput)
	}
	plainLen := binary.LittleEndian.Uint32(data[0:4])

	zr, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", "", "extract", err)
	}
	defer zr.Close()
	plain := make([]byte, 0, plainLen)
	buf := bytes.NewBuffer(plain)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", "", "extract", err)
	}
	raw := buf.Bytes()
	if len(raw) < pvrHeaderSize {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", "", "extract", errShortInput)
	}

	width, height, format, err := parseHeader(raw[:pvrHeaderSize])
	if err != nil {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "texture", "", "extract", err)
	}
	page := &Page{Width: width, Height: height, Format: format}
	page.Pixels = decodeBlocks(raw[pvrHeaderSize:], width, height, format)
	return page, nil
}

func buildHeader(width, height int, format Format) []byte {
	h := make([]byte, pvrHeaderSize)
	binary.LittleEndian.PutUint32(h[0:4], pvrSignature)
	binary.LittleEndian.PutUint32(h[4:8], 0) // flags
	pf := pixelFormatDXT1
	if format == FormatDXT5 {
		pf = pixelFormatDXT5
	}
	binary.LittleEndian.PutUint64(h[8:16], uint64(pf))
	binary.LittleEndian.PutUint32(h[16:20], 0) // colorSpace
	binary.LittleEndian.PutUint32(h[20:24], 0) // channelType
	binary.LittleEndian.PutUint32(h[24:28], uint32(height))
	binary.LittleEndian.PutUint32(h[28:32], uint32(width))
	binary.LittleEndian.PutUint32(h[32:36], 1) // depth
	binary.LittleEndian.PutUint32(h[36:40], 1) // numFaces
	binary.LittleEndian.PutUint32(h[40:44], 1) // numSurfaces
	binary.LittleEndian.PutUint32(h[44:48], 1) // numMipmaps
	binary.LittleEndian.PutUint32(h[48:52], 0) // metaDataSize
	return h
}

func parseHeader(h []byte) (width, height int, format Format, err error) {
	if binary.LittleEndian.Uint32(h[0:4]) != pvrSignature {
		return 0, 0, 0, errBadSignature
	}
	pf := binary.LittleEndian.Uint64(h[8:16])
	switch pf {
	case pixelFormatDXT1:
		format = FormatDXT1
	case pixelFormatDXT5:
		format = FormatDXT5
	default:
		return 0, 0, 0, errUnknownPixelFormat
	}
	height = int(binary.LittleEndian.Uint32(h[24:28]))
	width = int(binary.LittleEndian.Uint32(h[28:32]))
	return width, height, format, nil
}

func encodeBlocks(p *Page) []byte {
	var out bytes.Buffer
	for by := 0; by < p.Height; by += 4 {
		for bx := 0; bx < p.Width; bx += 4 {
			block := extractBlock(p, bx, by)
			if p.Format == FormatDXT5 {
				alphaBlock := encodeAlphaBlock(block)
				out.Write(alphaBlock[:])
			}
			colorBlock := encodeColorBlock(block)
			out.Write(colorBlock[:])
		}
	}
	return out.Bytes()
}

func extractBlock(p *Page, bx, by int) (block [16]Pixel) {
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			sx, sy := bx+x, by+y
			if sx < p.Width && sy < p.Height {
				block[y*4+x] = p.Pixels[sy*p.Width+sx]
			}
		}
	}
	return block
}

func decodeBlocks(data []byte, width, height int, format Format) []Pixel {
	pixels := make([]Pixel, width*height)
	blockSize := 8
	if format == FormatDXT5 {
		blockSize = 16
	}
	off := 0
	for by := 0; by < height; by += 4 {
		for bx := 0; bx < width; bx += 4 {
			if off+blockSize > len(data) {
				return pixels
			}
			var colorData [8]byte
			var alphas [16]uint8
			for i := range alphas {
				alphas[i] = 255
			}
			if format == FormatDXT5 {
				var alphaRaw [8]byte
				copy(alphaRaw[:], data[off:off+8])
				alphas = decodeAlphaBlock(alphaRaw)
				copy(colorData[:], data[off+8:off+16])
			} else {
				copy(colorData[:], data[off:off+8])
			}
			off += blockSize

			block := decodeColorBlock(colorData)
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					dx, dy := bx+x, by+y
					if dx >= width || dy >= height {
						continue
					}
					px := block[y*4+x]
					if format == FormatDXT5 {
						px.A = alphas[y*4+x]
					}
					pixels[dy*width+dx] = px
				}
			}
		}
	}
	return pixels
}
