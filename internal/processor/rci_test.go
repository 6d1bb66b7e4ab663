package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRCI_DropsNonNumericValuesWithoutFailingRecord(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	core.HasCloudEvent = false
	p := NewRCI(core)

	payload := mustJSON(map[string]interface{}{
		"data": map[string]interface{}{
			"temp":  21.5,
			"label": "not-numeric",
		},
	})

	p.Process(inbound(payload, 100))

	require.Len(t, dest.published, 1)
	var out map[string]interface{}
	require.NoError(t, jsonUnmarshal(dest.last().Payload, &out))
	data := out["data"].(map[string]interface{})
	assert.Equal(t, 21.5, data["temp"])
	_, hasLabel := data["label"]
	assert.False(t, hasLabel)
}

func TestRCI_NonObjectDataIsInvalid(t *testing.T) {
	dest := newFakeTransport()
	core := newCore(dest)
	core.HasCloudEvent = false
	p := NewRCI(core)

	payload := mustJSON(map[string]interface{}{"data": []interface{}{1, 2, 3}})
	p.Process(inbound(payload, 100))
	assert.Empty(t, dest.published)
}
