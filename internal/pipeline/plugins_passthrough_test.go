package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassthroughPlugin_CopiesBytesUnchanged(t *testing.T) {
	extractDir, upscaleDir := t.TempDir(), t.TempDir()
	p := newPassthroughPlugin("AMBIENT")

	raw := []byte("riff-wave-stand-in")
	require.NoError(t, p.Extract(raw, extractDir))
	require.NoError(t, p.Upscale(extractDir, upscaleDir, 2))

	out, err := p.Assemble(upscaleDir)
	require.NoError(t, err)
	require.Equal(t, raw, out)
}
