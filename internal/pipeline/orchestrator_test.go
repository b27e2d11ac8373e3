package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pie4k/pie4k/internal/codec/bitmap"
	"github.com/pie4k/pie4k/internal/config"
	"github.com/pie4k/pie4k/internal/loose"
	"github.com/pie4k/pie4k/internal/monitor"
	"github.com/pie4k/pie4k/internal/resource"
	"github.com/pie4k/pie4k/internal/restype"
	"github.com/pie4k/pie4k/internal/rules"
	"github.com/pie4k/pie4k/internal/stats"
	"github.com/pie4k/pie4k/internal/tracker"
)

// newTestOrchestrator wires a full Orchestrator against a loose-file-only
// installation (no archive), the way a unit test for the original
// PipelineOrchestrator.cpp would stand up an in-memory KEYService double.
func newTestOrchestrator(t *testing.T, root string) *Orchestrator {
	t.Helper()

	overrideDir := filepath.Join(root, "override")
	require.NoError(t, os.MkdirAll(overrideDir, 0o755))

	b := &bitmap.Bitmap{Width: 2, Height: 2, Cells: []uint8{1, 2, 3, 4}}
	require.NoError(t, os.WriteFile(filepath.Join(overrideDir, "WMAPLAVA.bmp"), bitmap.Encode(b), 0o644))

	override, err := loose.Scan(overrideDir, nil)
	require.NoError(t, err)
	empty, err := loose.Scan(filepath.Join(root, "nonexistent"), nil)
	require.NoError(t, err)

	coord := resource.New()
	coord.Init(nil, override, empty, empty)

	cfg := &config.Config{
		GameType:      "bg1",
		GamePath:      root,
		UpScaleFactor: 2,
		OutputRoot:    filepath.Join(root, "output"),
	}

	return &Orchestrator{
		Config:  cfg,
		Coord:   coord,
		Rules:   rules.Load("", filepath.Join(root, "rules"), nil),
		Tracker: tracker.New(filepath.Join(root, "output", "bg1", ".pie4k"), nil),
		Stats:   stats.New(),
		Monitor: monitor.New(),
		Numbers: NewPageNumbering(),
		Types:   []restype.Type{restype.BMP},
	}
}

func TestOrchestrator_ExtractUpscaleAssembleType(t *testing.T) {
	root := t.TempDir()
	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	require.True(t, o.ExtractType(ctx, restype.BMP))
	require.True(t, o.UpscaleType(ctx, restype.BMP))
	require.True(t, o.AssembleType(ctx, restype.BMP))

	workRoot := o.Config.WorkingDir("BMP")
	dirs := DirsFor(workRoot, "WMAPLAVA", "BMP")
	out, err := os.ReadFile(filepath.Join(dirs.Assemble, "WMAPLAVA.bmp"))
	require.NoError(t, err)

	decoded, err := bitmap.Decode(out)
	require.NoError(t, err)
	require.Equal(t, 4, decoded.Width)
	require.Equal(t, 4, decoded.Height)
}

func TestOrchestrator_CompleteType_TransfersToOverrideOutput(t *testing.T) {
	root := t.TempDir()
	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	// OverrideOutputDir is cwd-relative: "<cwd>/<GameType>-overrideX<k>/".
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(wd)

	require.True(t, o.CompleteType(ctx, restype.BMP))

	out, err := os.ReadFile(filepath.Join(o.Config.OverrideOutputDir(), "WMAPLAVA.bmp"))
	require.NoError(t, err)
	decoded, err := bitmap.Decode(out)
	require.NoError(t, err)
	require.Equal(t, 4, decoded.Width)
}

func TestOrchestrator_RerunWithoutForceSkipsCompletedPhase(t *testing.T) {
	root := t.TempDir()
	o := newTestOrchestrator(t, root)
	ctx := context.Background()

	require.True(t, o.ExtractType(ctx, restype.BMP))
	require.True(t, o.ExtractType(ctx, restype.BMP)) // phase marker short-circuits the second run
}
