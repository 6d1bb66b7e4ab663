package reassembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeiot/zeppelin/internal/core"
)

func TestParse_InitMessage(t *testing.T) {
	msg, ok := Parse(`{"type":"DCAV","val":"4"}`)
	require.True(t, ok)
	assert.Equal(t, "DCAV", msg.Type)
	assert.Equal(t, core.CameraAV, msg.CameraType)
	assert.Equal(t, 4, msg.TotalBlocks)
}

func TestParse_ARCameraInit(t *testing.T) {
	msg, ok := Parse(`{"type":"DCAR","val":"2"}`)
	require.True(t, ok)
	assert.Equal(t, core.CameraAR, msg.CameraType)
}

func TestParse_BlockMessageWithEmbeddedBinary(t *testing.T) {
	raw := `{"type":"BCAV","data":[{"val":"2 3 ` + "\x00\x01\xff" + `}]}`
	msg, ok := Parse(raw)
	require.True(t, ok)
	assert.Equal(t, "BCAV", msg.Type)
	assert.Equal(t, 2, msg.BlockNum)
	assert.Equal(t, 3, msg.BlockSize)
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, msg.BlockBytes)
}

func TestParse_UnrecognizedTypeFails(t *testing.T) {
	_, ok := Parse(`{"type":"OTHER","val":"1"}`)
	assert.False(t, ok)
}

func TestParse_MissingValFails(t *testing.T) {
	_, ok := Parse(`{"type":"DCAV"}`)
	assert.False(t, ok)
}

func TestParse_MissingTrailerFails(t *testing.T) {
	raw := `{"type":"BCAV","data":[{"val":"1 2 ` + "\x01\x02"
	_, ok := Parse(raw)
	assert.False(t, ok)
}
