package texture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func solidPage(w, h int, p Pixel, format Format) *Page {
	pixels := make([]Pixel, w*h)
	for i := range pixels {
		pixels[i] = p
	}
	return &Page{Width: w, Height: h, Format: format, Pixels: pixels}
}

func TestDXT1_SolidColorBlock_RoundTripsExactly(t *testing.T) {
	p := solidPage(4, 4, Pixel{A: 0xFF, R: 0x40, G: 0x80, B: 0xC0}, FormatDXT1)
	encoded, err := Encode(p)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, 4, decoded.Width)
	require.Equal(t, 4, decoded.Height)
	for _, px := range decoded.Pixels {
		require.Equal(t, Pixel{A: 255, R: 0x40, G: 0x80, B: 0xC0}, px)
	}
}

func TestTexturePage_DecodeEncodeDecode_Idempotent(t *testing.T) {
	pixels := make([]Pixel, 16)
	for i := range pixels {
		pixels[i] = Pixel{A: 255, R: uint8(i * 16), G: uint8(255 - i*16), B: 128}
	}
	p := &Page{Width: 4, Height: 4, Format: FormatDXT1, Pixels: pixels}
	first, err := Encode(p)
	require.NoError(t, err)
	decodedOnce, err := Decode(first)
	require.NoError(t, err)

	reencoded, err := Encode(decodedOnce)
	require.NoError(t, err)
	decodedTwice, err := Decode(reencoded)
	require.NoError(t, err)

	require.Equal(t, decodedOnce.Pixels, decodedTwice.Pixels)
}

func TestAutoFormatSelection_PicksDXT5ForMidRangeAlpha(t *testing.T) {
	pixels := make([]Pixel, 16)
	for i := range pixels {
		pixels[i] = Pixel{A: 0x80, R: 10, G: 20, B: 30}
	}
	require.True(t, needsDXT5(pixels))
	require.Equal(t, FormatDXT5, resolveFormat(FormatAuto, pixels))
}

func TestAutoFormatSelection_PicksDXT1ForOpaqueOrFullyTransparent(t *testing.T) {
	pixels := []Pixel{{A: 0xFF}, {A: 0x00}, {A: 0x20}, {A: 0xE0}}
	require.False(t, needsDXT5(pixels))
	require.Equal(t, FormatDXT1, resolveFormat(FormatAuto, pixels))
}

func TestPadToPowerOfTwo_PadsNonConformingDimensions(t *testing.T) {
	p := solidPage(3, 5, Pixel{A: 255, R: 1, G: 2, B: 3}, FormatDXT1)
	p.padToPowerOfTwo()
	require.Equal(t, 4, p.Width)
	require.Equal(t, 8, p.Height)
}

func TestDXT1Decode_TransparentIndexWhenColor0LessEqualColor1(t *testing.T) {
	block := decodeColorBlock([8]byte{0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF})
	for _, p := range block {
		require.Equal(t, uint8(0), p.A)
	}
}

func TestComposeAtlas_SingleInput_PlacesAtOrigin(t *testing.T) {
	sub := SubImage{Width: 2, Height: 2, Pixels: []Pixel{{A: 255}, {A: 255}, {A: 255}, {A: 255}}}
	page, err := ComposeAtlas([]SubImage{sub}, FormatDXT1)
	require.NoError(t, err)
	require.Equal(t, 2, page.Width)
	require.Equal(t, 2, page.Height)
}

func TestComposeAtlas_MultipleInputs_PositionsExplicitly(t *testing.T) {
	a := SubImage{X: 0, Y: 0, Width: 2, Height: 2, Pixels: make([]Pixel, 4)}
	b := SubImage{X: 2, Y: 0, Width: 2, Height: 2, Pixels: make([]Pixel, 4)}
	page, err := ComposeAtlas([]SubImage{a, b}, FormatDXT1)
	require.NoError(t, err)
	require.Equal(t, 4, page.Width)
	require.Equal(t, 2, page.Height)
}
