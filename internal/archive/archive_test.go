package archive

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pie4k/pie4k/internal/restype"
)

// buildKeyBytes assembles a minimal, spec-accurate KEY file containing one
// BIF entry and one resource entry pointing into it.
func buildKeyBytes(t *testing.T, bifPath string, resName string, resType restype.Type, locator uint32) []byte {
	t.Helper()
	var buf bytes.Buffer

	const headerSize = 24
	bifTableOffset := uint32(headerSize)
	nameBytes := []byte(bifPath)
	bifEntrySize := uint32(12)
	bifNameOffset := bifTableOffset + bifEntrySize
	resTableOffset := bifNameOffset + uint32(len(nameBytes))

	buf.WriteString(keySignature)
	buf.WriteString(keyVersion)
	writeU32(&buf, 1) // bifCount
	writeU32(&buf, 1) // resCount
	writeU32(&buf, bifTableOffset)
	writeU32(&buf, resTableOffset)

	// bif table entry
	writeU32(&buf, 1024)         // fileSize
	writeU32(&buf, bifNameOffset) // nameOffset
	writeU16(&buf, uint16(len(nameBytes)))
	writeU16(&buf, 0) // flags
	buf.Write(nameBytes)

	require.Equal(t, int(resTableOffset), buf.Len())

	// resource table entry
	name := make([]byte, entryNameSize)
	copy(name, []byte(resName))
	buf.Write(name)
	writeU16(&buf, uint16(resType))
	writeU32(&buf, locator)

	return buf.Bytes()
}

func buildBifBytes(t *testing.T, slot uint32, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	const headerSize = 20
	fileTableOffset := uint32(headerSize)
	fileEntrySize := uint32(16)
	payloadOffset := fileTableOffset + fileEntrySize

	buf.WriteString(bifSignature)
	buf.WriteString(bifVersionV1)
	writeU32(&buf, 1) // fileCount
	writeU32(&buf, 0) // tileCount
	writeU32(&buf, fileTableOffset)

	locator := slot // bif index 0, slot as given
	writeU32(&buf, locator)
	writeU32(&buf, payloadOffset)
	writeU32(&buf, uint32(len(payload)))
	writeU16(&buf, uint16(restype.BCS))
	writeU16(&buf, 0)

	buf.Write(payload)
	require.Equal(t, int(payloadOffset), buf.Len()-len(payload))
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func TestReader_GetResourceData_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("IF ~TRUE~ THEN RESPONSE #100 END")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "data1.bif"), buildBifBytes(t, 7, payload), 0o644))

	keyBytes := buildKeyBytes(t, "data1.bif", "AJANTIS", restype.BCS, 7) // bif 0, slot 7
	keyPath := filepath.Join(dir, "chitin.key")
	require.NoError(t, os.WriteFile(keyPath, keyBytes, 0o644))

	idx, err := ParseKeyFile(keyPath)
	require.NoError(t, err)
	idx.ResolveBifPaths(dir)

	r := NewReader(dir, idx)
	require.True(t, r.HasResource("ajantis", restype.BCS))

	data, err := r.GetResourceData("ajantis", restype.BCS)
	require.NoError(t, err)
	require.Equal(t, payload, data)

	size, ok := r.GetResourceSize("AJANTIS", restype.BCS)
	require.True(t, ok)
	require.Equal(t, uint32(len(payload)), size)
}

func TestReader_MissingBifPath_ReturnsArchiveMissing(t *testing.T) {
	dir := t.TempDir()
	keyBytes := buildKeyBytes(t, "nonexistent.bif", "FOO", restype.BAM, 0)
	keyPath := filepath.Join(dir, "chitin.key")
	require.NoError(t, os.WriteFile(keyPath, keyBytes, 0o644))

	idx, err := ParseKeyFile(keyPath)
	require.NoError(t, err)
	idx.ResolveBifPaths(dir) // leaves ResolvedPath empty

	r := NewReader(dir, idx)
	_, err = r.GetResourceData("FOO", restype.BAM)
	require.Error(t, err)
}

func TestReader_CaseInsensitiveBifPathResolution(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Data", "Textures.bif"), buildBifBytes(t, 3, payload), 0o644))

	// KEY records a different case and backslashes, as the real files do.
	keyBytes := buildKeyBytes(t, "data\\textures.bif", "MYTEX", restype.TIS, 3)
	keyPath := filepath.Join(dir, "chitin.key")
	require.NoError(t, os.WriteFile(keyPath, keyBytes, 0o644))

	idx, err := ParseKeyFile(keyPath)
	require.NoError(t, err)
	idx.ResolveBifPaths(dir)
	require.NotEmpty(t, idx.BifEntries[0].ResolvedPath)

	r := NewReader(dir, idx)
	data, err := r.GetResourceData("MYTEX", restype.TIS)
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func TestParseKeyFile_RejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.key")
	require.NoError(t, os.WriteFile(path, []byte("NOT A KEY FILE AT ALL..."), 0o644))
	_, err := ParseKeyFile(path)
	require.Error(t, err)
}

func TestLocatorBitLayout(t *testing.T) {
	locator := uint32(2)<<20 | uint32(5)<<14 | uint32(99)
	require.Equal(t, 2, BifIndex(locator))
	require.Equal(t, 5, TilesetIndex(locator))
	require.Equal(t, 99, SlotIndex(locator))
}
