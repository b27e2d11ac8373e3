package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pie4k/pie4k/internal/codec/bitmap"
)

func TestBitmapPlugin_ExtractUpscaleAssembleRoundTrip(t *testing.T) {
	src := &bitmap.Bitmap{Width: 2, Height: 2, Cells: []uint8{1, 2, 3, 4}}
	raw := bitmap.Encode(src)

	extractDir, upscaleDir := t.TempDir(), t.TempDir()

	p := newBitmapPlugin("WMAPLAVA")
	require.NoError(t, p.Extract(raw, extractDir))
	require.NoError(t, p.Upscale(extractDir, upscaleDir, 2))

	out, err := p.Assemble(upscaleDir)
	require.NoError(t, err)

	decoded, err := bitmap.Decode(out)
	require.NoError(t, err)
	require.Equal(t, 4, decoded.Width)
	require.Equal(t, 4, decoded.Height)
}
