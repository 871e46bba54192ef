package cafd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikolamrkic91-arch/ecutool/cafd"
)

func blobWith(records ...[]byte) []byte {
	blob := make([]byte, 32)
	for _, r := range records {
		blob = append(blob, r...)
	}
	return blob
}

func TestDecodeSingleRecord(t *testing.T) {
	blob := blobWith(append([]byte{0x30, 0x00, 0x00, 0x0A}, []byte("not_active")...))

	params, err := cafd.Decode(blob)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, uint16(0x3000), params[0].ID)
	assert.Equal(t, "not_active", params[0].Value)
	assert.Equal(t, []byte("not_active"), params[0].Raw)
}

func TestDecodeMultipleRecords(t *testing.T) {
	blob := blobWith(
		append([]byte{0x30, 0x00, 0x00, 0x05}, []byte("aktiv")...),
		[]byte{0x30, 0x01, 0x00, 0x01, 0x64},
		append([]byte{0x40, 0x00, 0x00, 0x04}, []byte("on\x00\x00")...),
	)

	params, err := cafd.Decode(blob)
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, uint16(0x3000), params[0].ID)
	assert.Equal(t, "aktiv", params[0].Value)
	assert.Equal(t, uint16(0x3001), params[1].ID)
	assert.Equal(t, "d", params[1].Value)
	// Trailing NUL padding is stripped from the rendering, not from Raw.
	assert.Equal(t, "on", params[2].Value)
	assert.Equal(t, []byte("on\x00\x00"), params[2].Raw)
}

func TestDecodeTruncatedFinalRecord(t *testing.T) {
	blob := blobWith(
		append([]byte{0x30, 0x00, 0x00, 0x05}, []byte("aktiv")...),
		append([]byte{0x50, 0x00, 0x00, 0xFF}, []byte("short")...),
	)

	params, err := cafd.Decode(blob)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, uint16(0x3000), params[0].ID)
}

func TestDecodeHeaderOnly(t *testing.T) {
	params, err := cafd.Decode(make([]byte, 32))
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := cafd.Decode(make([]byte, 31))
	var de *cafd.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 31, de.Len)
}

func TestDecodeBinaryValueRendersHex(t *testing.T) {
	blob := blobWith([]byte{0x60, 0x00, 0x00, 0x02, 0xFF, 0xFE})

	params, err := cafd.Decode(blob)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "fffe", params[0].Value)
}

func TestDecodeImmutableRaw(t *testing.T) {
	blob := blobWith([]byte{0x30, 0x00, 0x00, 0x02, 0x01, 0x02})

	params, err := cafd.Decode(blob)
	require.NoError(t, err)
	blob[36] = 0xAA
	assert.Equal(t, []byte{0x01, 0x02}, params[0].Raw)
}
