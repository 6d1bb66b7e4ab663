package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGDP_Law covers spec.md §8's GDP round-trip law: the published payload
// equals the inbound payload.data exactly, with no envelope, retained.
func TestGDP_Law(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	p := NewGDP(core)

	payload := mustJSON(map[string]interface{}{
		"data": map[string]interface{}{"temp": 21.0, "unit": "C"},
	})

	p.Process(inbound(payload, 100))

	require.Empty(t, dest.published)
	require.Len(t, dest.retained, 1)

	var out map[string]interface{}
	require.NoError(t, jsonUnmarshal(dest.retained[0].Payload, &out))
	assert.Equal(t, map[string]interface{}{"temp": 21.0, "unit": "C"}, out)
}

func TestGDP_MissingDataIsInvalid(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	p := NewGDP(core)

	p.Process(inbound(mustJSON(map[string]interface{}{}), 10))
	assert.Empty(t, dest.retained)
	assert.Empty(t, dest.published)
}
