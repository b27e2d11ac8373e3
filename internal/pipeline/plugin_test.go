package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pie4k/pie4k/internal/codec/bitmap"
	"github.com/pie4k/pie4k/internal/restype"
)

func TestDirsFor_DerivesThreeSiblingDirectories(t *testing.T) {
	dirs := DirsFor("/out/BAM", "AJANTISG", "BAM")
	require.Equal(t, "/out/BAM/AJANTISG-BAM-extracted", dirs.Extract)
	require.Equal(t, "/out/BAM/AJANTISG-BAM-upscaled", dirs.Upscale)
	require.Equal(t, "/out/BAM/AJANTISG-BAM-assembled", dirs.Assemble)
}

func TestResetDir_DoesNotTouchSiblingDirs(t *testing.T) {
	root := t.TempDir()
	dirs := DirsFor(root, "AJANTISG", "BAM")

	fixture := &bitmap.Bitmap{Width: 1, Height: 1, Cells: []uint8{3}}
	require.NoError(t, resetDir(dirs.Extract))
	require.NoError(t, writeBitmapIntermediate(dirs.Extract+"/marker", fixture))
	require.NoError(t, resetDir(dirs.Upscale))

	// resetting the upscale dir must never disturb the extract dir's
	// output (the bug the working-dir helper was split to avoid).
	_, err := readBitmapIntermediate(dirs.Extract + "/marker")
	require.NoError(t, err)
}

func TestFactoryFor_FallsBackToPassthrough(t *testing.T) {
	f := FactoryFor(restype.WAV)
	p := f("SOMESOUND")
	_, ok := p.(passthroughPlugin)
	require.True(t, ok)
}

func TestFactoryFor_ReturnsRegisteredCodec(t *testing.T) {
	f := FactoryFor(restype.BMP)
	p := f("WMAPLAVA")
	_, ok := p.(*bitmapPlugin)
	require.True(t, ok)
}
