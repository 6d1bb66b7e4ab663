package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRCICommand_CloudFanOut covers spec.md §8 S6.
func TestRCICommand_CloudFanOut(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	core.DeviceIDAttributeName = "device_id"

	p := NewRCICommand(core)
	payload := mustJSON(map[string]interface{}{
		"specversion": "1.0",
		"type":        "ca.qc.hydro.iot.rci.command",
		"device_id":   "edge-42",
		"data":        map[string]interface{}{"cmd": "reboot"},
	})

	p.Process(inbound(payload, 100))

	require.Len(t, dest.published, 1)
	call := dest.last()
	assert.Equal(t, "edge-42", call.Topic)
	assert.Equal(t, float64(1), testCounterValue(t, core.Metrics.TxCmdMessageTotal, "test-pipeline"))
	assert.Equal(t, float64(0), testCounterValue(t, core.Metrics.RxCmdMessageTotal, "test-pipeline"))
}

func TestRCICommand_DefaultDestinationWhenAttributeNotConfigured(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)

	p := NewRCICommand(core)
	payload := mustJSON(map[string]interface{}{
		"specversion": "1.0",
		"data":        map[string]interface{}{"cmd": "reboot"},
	})

	p.Process(inbound(payload, 100))

	require.Len(t, dest.published, 1)
	assert.Equal(t, "out/topic", dest.last().Topic)
	assert.Equal(t, float64(1), testCounterValue(t, core.Metrics.RxCmdMessageTotal, "test-pipeline"))
}
