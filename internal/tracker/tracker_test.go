package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S3: run, succeed, re-run with the identical fingerprint skips; changing
// any field reprocesses.
func TestShouldProcess_SkipOnIdenticalFingerprint(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, ".pie4k"), nil)

	fp := Fingerprint{ConfigHash: "c1", BifIndex: 2, KeyLocator: 7, Size: 100, Mtime: 1000}
	require.True(t, tr.ShouldProcess("extract", "BAM", "FOO", fp, false))

	tr.MarkStarted("extract", "BAM", "FOO", fp)
	tr.MarkCompleted("extract", "BAM", "FOO", true, []string{"out.bam"}, "")

	require.False(t, tr.ShouldProcess("extract", "BAM", "FOO", fp, false))

	fp2 := fp
	fp2.Mtime = 2000
	require.True(t, tr.ShouldProcess("extract", "BAM", "FOO", fp2, false))
}

func TestShouldProcess_RetryOnPriorFailure(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, ".pie4k"), nil)

	fp := Fingerprint{ConfigHash: "c1"}
	tr.MarkStarted("extract", "BAM", "FOO", fp)
	tr.MarkCompleted("extract", "BAM", "FOO", false, nil, "boom")

	require.True(t, tr.ShouldProcess("extract", "BAM", "FOO", fp, false))
}

func TestShouldProcess_ForceAlwaysReprocesses(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, ".pie4k"), nil)

	fp := Fingerprint{ConfigHash: "c1"}
	tr.MarkStarted("extract", "BAM", "FOO", fp)
	tr.MarkCompleted("extract", "BAM", "FOO", true, nil, "")

	require.True(t, tr.ShouldProcess("extract", "BAM", "FOO", fp, true))

	trGlobalForce := New(filepath.Join(dir, ".pie4k"), func() bool { return true })
	require.True(t, trGlobalForce.ShouldProcess("extract", "BAM", "FOO", fp, false))
}

func TestShouldProcessPhase_MarkerGatesRerun(t *testing.T) {
	dir := t.TempDir()
	tr := New(filepath.Join(dir, ".pie4k"), nil)

	require.True(t, tr.ShouldProcessPhase("extract", "BAM"))
	tr.EndPhase("extract", "BAM", true)
	require.False(t, tr.ShouldProcessPhase("extract", "BAM"))

	forced := New(filepath.Join(dir, ".pie4k"), func() bool { return true })
	require.True(t, forced.ShouldProcessPhase("extract", "BAM"))
}

// T4: replaying the ledger from scratch reconstructs the same cache a
// live run would have produced.
func TestHydrateCache_ReplaysLedgerToSameDecisions(t *testing.T) {
	dir := t.TempDir()
	opsDir := filepath.Join(dir, ".pie4k")
	tr := New(opsDir, nil)

	fp := Fingerprint{ConfigHash: "c1", Size: 42}
	tr.MarkStarted("upscale", "BAM", "FOO", fp)
	tr.MarkCompleted("upscale", "BAM", "FOO", true, []string{"x"}, "")
	require.NoError(t, tr.Close())

	fresh := New(opsDir, nil)
	fresh.HydrateCache()

	require.False(t, fresh.ShouldProcess("upscale", "BAM", "FOO", fp, false))
}

func TestHashConfig_ChangesWithInputs(t *testing.T) {
	a := HashConfig("gametype=bg2", "k=2")
	b := HashConfig("gametype=bg2", "k=4")
	require.NotEqual(t, a, b)
	require.Equal(t, a, HashConfig("gametype=bg2", "k=2"))
}
