package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestC2D_Law covers spec.md §8's C2D round-trip law: the published payload
// equals the inbound payload exactly.
func TestC2D_Law(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	p := NewC2D(core)

	payload := mustJSON(map[string]interface{}{
		"command": "unlock",
		"target":  "door-1",
	})

	p.Process(inbound(payload, 100))

	require.Len(t, dest.published, 1)
	var out map[string]interface{}
	require.NoError(t, jsonUnmarshal(dest.last().Payload, &out))
	assert.Equal(t, payload, out)
	assert.Equal(t, "out/topic", dest.last().Topic)
}

func TestC2D_DestTopicPrecedence(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	p := NewC2D(core)

	payload := mustJSON(map[string]interface{}{
		"dest_topic": "override/topic",
		"command":    "unlock",
	})

	p.Process(inbound(payload, 100))

	require.Len(t, dest.published, 1)
	assert.Equal(t, "override/topic", dest.last().Topic)
}

func TestC2D_PropsDestTopicFallback(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	p := NewC2D(core)

	msg := inbound(mustJSON(map[string]interface{}{"command": "unlock"}), 100)
	msg.Props = map[string]string{"dest_topic": "props/topic"}

	p.Process(msg)

	require.Len(t, dest.published, 1)
	assert.Equal(t, "props/topic", dest.last().Topic)
}
