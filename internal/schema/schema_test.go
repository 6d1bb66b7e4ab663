package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_RequiredFields(t *testing.T) {
	s := &Schema{
		Type:     "object",
		Required: []string{"device", "values"},
	}
	assert.NoError(t, s.Validate(map[string]interface{}{"device": "eg1", "values": []interface{}{}}))
	assert.Error(t, s.Validate(map[string]interface{}{"device": "eg1"}))
}

func TestValidate_Enum(t *testing.T) {
	s := &Schema{Enum: []interface{}{"a", "b"}}
	assert.NoError(t, s.Validate("a"))
	assert.Error(t, s.Validate("c"))
}

func TestValidate_NestedProperties(t *testing.T) {
	s := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"values": {Type: "array", Items: &Schema{Type: "number"}},
		},
	}
	assert.NoError(t, s.Validate(map[string]interface{}{"values": []interface{}{1.0, 2.0}}))
	assert.Error(t, s.Validate(map[string]interface{}{"values": []interface{}{"x"}}))
}
