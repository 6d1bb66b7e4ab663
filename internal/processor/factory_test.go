package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllRecognizedTags(t *testing.T) {
	tags := []string{"generic", "egauge", "zigbee", "gdp", "ibr", "cloud2device", "rci", "rci_command"}
	for _, tag := range tags {
		core := newCore(newFakeTransport())
		p := New(tag, core, nil)
		assert.NotNil(t, p, "tag %q should resolve", tag)
	}
}

func TestNew_CaseInsensitiveAndTrimmed(t *testing.T) {
	core := newCore(newFakeTransport())
	p := New(" GENERIC ", core, nil)
	assert.NotNil(t, p)
}

func TestNew_UnknownTagReturnsNil(t *testing.T) {
	core := newCore(newFakeTransport())
	p := New("nonsense", core, nil)
	assert.Nil(t, p)
}

func TestNew_ZigbeeParsesDeviceConfig(t *testing.T) {
	core := newCore(newFakeTransport())
	rawConfig := map[string]interface{}{
		"devices": map[string]interface{}{
			"xyz": []interface{}{
				map[string]interface{}{"field": "t", "unit": "C", "value_type": "float"},
			},
		},
		"data_fields": []interface{}{"unit", "value_type"},
	}

	p := New("zigbee", core, rawConfig)
	require.NotNil(t, p)
	zb, ok := p.(*Zigbee)
	require.True(t, ok)

	fields, ok := zb.Devices["XYZ"]
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "t", fields[0].Field)
	assert.True(t, fields[0].Mandatory)
	assert.Equal(t, []string{"unit", "value_type"}, zb.DataFields)
}
