package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageNumbering_IndependentCountersPerFamily(t *testing.T) {
	n := NewPageNumbering()

	id0, name0 := n.Next(PageFamilyTileset, "AREA01")
	require.Equal(t, 0, id0)
	require.Equal(t, "AREA01D00000", name0)

	id1, name1 := n.Next(PageFamilyShared, "AREA01")
	require.Equal(t, 0, id1)
	require.Equal(t, "AREA01D00000.PVRZ", name1)

	id2, _ := n.Next(PageFamilyTileset, "AREA02")
	require.Equal(t, 1, id2)
}

func TestPageNumbering_CollisionAppendsSuffix(t *testing.T) {
	n := NewPageNumbering()
	_, first := n.Next(PageFamilyTileset, "DUP")
	n.allocated[first] = true // already set by Next; re-assert for clarity

	// Force a second allocation that would collide with the first by
	// resetting the counter back, simulating two calls that would
	// otherwise derive the same name.
	n.tileset = 0
	_, second := n.Next(PageFamilyTileset, "DUP")
	require.NotEqual(t, first, second)
}
