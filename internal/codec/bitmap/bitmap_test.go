package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTripsAtUpscaleFactorOne(t *testing.T) {
	src := &Bitmap{Width: 3, Height: 2, Cells: []uint8{1, 2, 3, 4, 5, 6}}
	encoded := Encode(src)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, src.Width, decoded.Width)
	require.Equal(t, src.Height, decoded.Height)
	require.Equal(t, src.Cells, decoded.Cells)
}

func TestEncode_ByteForByteIdempotent(t *testing.T) {
	src := &Bitmap{Width: 2, Height: 2, Cells: []uint8{0xA, 0xB, 0xC, 0xD}}
	first := Encode(src)
	decoded, err := Decode(first)
	require.NoError(t, err)
	second := Encode(decoded)
	require.Equal(t, first, second)
}

func TestIndexedBitmapRoundTripAtFactor2(t *testing.T) {
	// row0 (top) = A,B ; row1 = C,D
	src := &Bitmap{Width: 2, Height: 2, Cells: []uint8{0xA, 0xB, 0xC, 0xD}}
	up := Upscale(src, 2)
	require.Equal(t, 4, up.Width)
	require.Equal(t, 4, up.Height)
	require.Equal(t, []uint8{
		0xA, 0xA, 0xB, 0xB,
		0xA, 0xA, 0xB, 0xB,
		0xC, 0xC, 0xD, 0xD,
		0xC, 0xC, 0xD, 0xD,
	}, up.Cells)

	encoded := Encode(up)
	// Palette: 16 grayscale BGRA entries (i*17,i*17,i*17,255).
	paletteOffset := fileHeaderSize + infoHeaderSize
	for i := 0; i < paletteEntries; i++ {
		v := uint8(i * 17)
		entry := encoded[paletteOffset+i*4 : paletteOffset+i*4+4]
		require.Equal(t, []byte{v, v, v, 255}, entry)
	}

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, up.Cells, decoded.Cells)
}

func TestRowPadding_PadsToFourByteMultipleWithZeros(t *testing.T) {
	// width=3 -> 2 bytes of packed nibbles, padded to 4.
	require.Equal(t, 4, rowStride(3))
	src := &Bitmap{Width: 3, Height: 1, Cells: []uint8{1, 2, 3}}
	encoded := Encode(src)
	pixelDataOffset := fileHeaderSize + infoHeaderSize + paletteBytes
	row := encoded[pixelDataOffset : pixelDataOffset+4]
	require.Equal(t, byte(0), row[2])
	require.Equal(t, byte(0), row[3])
}

func TestUpscale_FactorOne_ReturnsEquivalentBitmap(t *testing.T) {
	src := &Bitmap{Width: 2, Height: 2, Cells: []uint8{1, 2, 3, 4}}
	up := Upscale(src, 1)
	require.Equal(t, src.Cells, up.Cells)
}

func TestDilatePassableLanes_OpensBlockedCellsAdjacentToPassable(t *testing.T) {
	src := &Bitmap{Width: 3, Height: 1, Cells: []uint8{0x01, BlockedSentinel, 0x01}}
	dilated := DilatePassableLanes(src, 0x05)
	require.Equal(t, uint8(0x05), dilated.Cells[1])
}
