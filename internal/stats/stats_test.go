package stats

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrementProcessed_CountsSuccessAndFailure(t *testing.T) {
	s := New()
	s.StartProcess("extract:BAM", "BAM", 3)
	s.IncrementProcessed("extract:BAM", true)
	s.IncrementProcessed("extract:BAM", true)
	s.IncrementProcessed("extract:BAM", false)
	s.RecordError("extract:BAM", "decode failed")
	s.EndProcess("extract:BAM")

	snap := s.Snapshot()["extract:BAM"]
	require.Equal(t, 3, snap.Processed)
	require.Equal(t, 2, snap.Successful)
	require.Equal(t, 1, snap.Failed)
	require.Equal(t, 1, snap.ErrorCounts["decode failed"])
}

func TestGenerateSummary_ListsErrorsAlphabetically(t *testing.T) {
	s := New()
	s.StartProcess("upscale:BMP", "BMP", 2)
	s.RecordError("upscale:BMP", "zebra error")
	s.RecordError("upscale:BMP", "alpha error")

	summary := s.GenerateSummary()
	require.True(t, strings.Index(summary, "alpha error") < strings.Index(summary, "zebra error"))
}

func TestSaveSummaryToFile_WritesJSON(t *testing.T) {
	s := New()
	s.StartProcess("extract:2DA", "2DA", 1)
	s.IncrementProcessed("extract:2DA", true)

	dir := t.TempDir()
	path := filepath.Join(dir, "summary.json")
	require.NoError(t, s.SaveSummaryToFile(path))
}
