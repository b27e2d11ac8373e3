// Package bitmap implements the 4-bit indexed "map family" format shared
// by search, light and height maps: a 14-byte file header, 40-byte info
// header, 16-entry BGRA palette, and bottom-up rows with the high nibble
// holding the left pixel. The fixed-size header fields are read and
// written at their byte offsets with encoding/binary's LittleEndian.
package bitmap

import (
	"encoding/binary"

	pie4kerrors "github.com/pie4k/pie4k/internal/errors"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	paletteEntries = 16
	paletteBytes   = paletteEntries * 4
	bitCount       = 4

	// BlockedSentinel is the nibble value lane-preserving dilation treats
	// as impassable terrain.
	BlockedSentinel = 0x0F
)

// Bitmap is a decoded indexed map: one nibble per cell, row-major,
// top row first (the in-memory orientation; on-disk rows are bottom-up).
type Bitmap struct {
	Width, Height int
	Cells         []uint8 // len == Width*Height, values 0-15
}

// At returns the cell value at (x,y), or BlockedSentinel if out of range.
func (b *Bitmap) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return BlockedSentinel
	}
	return b.Cells[y*b.Width+x]
}

// rowStride is the on-disk byte count for one packed row, padded to a
// multiple of 4.
func rowStride(width int) int {
	bytesPerRow := (width + 1) / 2
	return (bytesPerRow + 3) &^ 3
}

// Decode parses a BMP-shaped 4-bit indexed bitmap from raw bytes.
func Decode(raw []byte) (*Bitmap, error) {
	if len(raw) < fileHeaderSize+infoHeaderSize {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "bitmap", "", "extract", errShortInput)
	}
	width := int(int32(binary.LittleEndian.Uint32(raw[18:22])))
	height := int(int32(binary.LittleEndian.Uint32(raw[22:26])))
	if width <= 0 || height <= 0 {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "bitmap", "", "extract", errBadDimensions)
	}

	pixelDataOffset := int(binary.LittleEndian.Uint32(raw[10:14]))
	stride := rowStride(width)
	needed := pixelDataOffset + stride*height
	if len(raw) < needed {
		return nil, pie4kerrors.NewCodecError(pie4kerrors.KindDecode, "bitmap", "", "extract", errShortInput)
	}

	cells := make([]uint8, width*height)
	for onDiskRow := 0; onDiskRow < height; onDiskRow++ {
		// On-disk row 0 is the bottom row; Cells is stored top-row-first.
		destRow := height - 1 - onDiskRow
		rowStart := pixelDataOffset + onDiskRow*stride
		for x := 0; x < width; x++ {
			b := raw[rowStart+x/2]
			var nibble uint8
			if x%2 == 0 {
				nibble = b >> 4 // left pixel is the high nibble
			} else {
				nibble = b & 0x0F
			}
			cells[destRow*width+x] = nibble
		}
	}

	return &Bitmap{Width: width, Height: height, Cells: cells}, nil
}

// Encode re-emits b as a BMP-shaped 4-bit indexed bitmap with the
// grayscale palette (i*17,i*17,i*17,255) and bottom-up row order.
func Encode(b *Bitmap) []byte {
	stride := rowStride(b.Width)
	pixelDataOffset := fileHeaderSize + infoHeaderSize + paletteBytes
	total := pixelDataOffset + stride*b.Height

	out := make([]byte, total)

	// File header.
	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:6], uint32(total))
	binary.LittleEndian.PutUint32(out[10:14], uint32(pixelDataOffset))

	// Info header (BITMAPINFOHEADER-shaped).
	binary.LittleEndian.PutUint32(out[14:18], infoHeaderSize)
	binary.LittleEndian.PutUint32(out[18:22], uint32(int32(b.Width)))
	binary.LittleEndian.PutUint32(out[22:26], uint32(int32(b.Height)))
	binary.LittleEndian.PutUint16(out[26:28], 1) // planes
	binary.LittleEndian.PutUint16(out[28:30], bitCount)
	binary.LittleEndian.PutUint32(out[34:38], uint32(stride*b.Height)) // imageSize
	binary.LittleEndian.PutUint32(out[46:50], paletteEntries)          // colorsUsed

	// Palette: BGRA grayscale ramp.
	paletteOffset := fileHeaderSize + infoHeaderSize
	for i := 0; i < paletteEntries; i++ {
		v := uint8(i * 17)
		p := out[paletteOffset+i*4 : paletteOffset+i*4+4]
		p[0], p[1], p[2], p[3] = v, v, v, 255
	}

	for destRow := 0; destRow < b.Height; destRow++ {
		onDiskRow := b.Height - 1 - destRow
		rowStart := pixelDataOffset + onDiskRow*stride
		for x := 0; x < b.Width; x++ {
			nibble := b.Cells[destRow*b.Width+x] & 0x0F
			byteIdx := rowStart + x/2
			if x%2 == 0 {
				out[byteIdx] |= nibble << 4
			} else {
				out[byteIdx] |= nibble
			}
		}
	}

	return out
}

// Upscale returns a new Bitmap with k-times-larger dimensions, each
// destination cell taking its source cell's value by nearest-neighbor.
// k must be >= 1.
func Upscale(b *Bitmap, k int) *Bitmap {
	if k <= 1 {
		cells := make([]uint8, len(b.Cells))
		copy(cells, b.Cells)
		return &Bitmap{Width: b.Width, Height: b.Height, Cells: cells}
	}
	dst := &Bitmap{Width: b.Width * k, Height: b.Height * k, Cells: make([]uint8, b.Width*k*b.Height*k)}
	for y := 0; y < dst.Height; y++ {
		sy := y / k
		for x := 0; x < dst.Width; x++ {
			sx := x / k
			dst.Cells[y*dst.Width+x] = b.Cells[sy*b.Width+sx]
		}
	}
	return dst
}

// DilatePassableLanes implements the optional lane-preserving dilation
// refinement: any cell not equal to BlockedSentinel that is 8-connected
// to a blocked cell opens that blocked neighbor, filling it with fill.
// Off by default; callers opt in explicitly.
func DilatePassableLanes(b *Bitmap, fill uint8) *Bitmap {
	out := &Bitmap{Width: b.Width, Height: b.Height, Cells: make([]uint8, len(b.Cells))}
	copy(out.Cells, b.Cells)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) != BlockedSentinel {
				continue
			}
			if hasPassableNeighbor(b, x, y) {
				out.Cells[y*b.Width+x] = fill
			}
		}
	}
	return out
}

func hasPassableNeighbor(b *Bitmap, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if b.At(x+dx, y+dy) != BlockedSentinel {
				return true
			}
		}
	}
	return false
}

// ConservativeUpscale implements the optional conservative-sampling
// refinement: each destination cell takes the MIN value over a
// (2r+1)^2 neighborhood of its source cell, after nearest-neighbor
// upscaling.
func ConservativeUpscale(b *Bitmap, k, r int) *Bitmap {
	nn := Upscale(b, k)
	out := &Bitmap{Width: nn.Width, Height: nn.Height, Cells: make([]uint8, len(nn.Cells))}
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			min := uint8(255)
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					v := b.At(x+dx, y+dy)
					if v < min {
						min = v
					}
				}
			}
			for yy := y * k; yy < (y+1)*k; yy++ {
				for xx := x * k; xx < (x+1)*k; xx++ {
					out.Cells[yy*out.Width+xx] = min
				}
			}
		}
	}
	return out
}
