package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeiot/zeppelin/internal/rules"
)

// TestEGauge_HappyPath covers spec.md §8 S1.
func TestEGauge_HappyPath(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	core.Rules = rules.New(nil, []string{"kw"}, true)

	p := NewEGauge(core)
	payload := mustJSON(map[string]interface{}{
		"specversion":     "1.0",
		"type":            "ca.qc.hydro.iot.egauge",
		"datacontenttype": "application/json",
		"source":          "dev-1",
		"data": map[string]interface{}{
			"device": "eg1",
			"values": []interface{}{
				map[string]interface{}{"value": 1.2, "value_type": "float", "unit": "kw"},
			},
		},
	})

	p.Process(inbound(payload, 10))

	require.Len(t, dest.published, 1)
	call := dest.last()
	assert.Equal(t, "out/topic", call.Topic)

	var outEnv map[string]interface{}
	require.NoError(t, jsonUnmarshal(call.Payload, &outEnv))
	assert.Equal(t, "egauge", outEnv["device_model"])

	valid := testCounterValue(t, core.Metrics.RxMessageValid, "test-pipeline")
	tx := testCounterValue(t, core.Metrics.TxMessageTotal, "test-pipeline")
	assert.Equal(t, float64(1), valid)
	assert.Equal(t, float64(1), tx)
}

func TestEGauge_RejectsBadUnit(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	core.Rules = rules.New(nil, []string{"kw"}, true)

	p := NewEGauge(core)
	payload := mustJSON(map[string]interface{}{
		"specversion": "1.0",
		"data": map[string]interface{}{
			"device": "eg1",
			"values": []interface{}{
				map[string]interface{}{"value": 1.2, "value_type": "float", "unit": "amps"},
			},
		},
	})

	p.Process(inbound(payload, 10))
	assert.Empty(t, dest.published)
}
