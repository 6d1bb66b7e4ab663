// Package rules implements the RulesEngine (C5): per-pipeline validation of
// {value, value_type, unit} records against a unit whitelist and a small
// value-type classifier.
package rules

import "strings"

// Value is one checked record.
type Value struct {
	Value     interface{}
	ValueType string // "string" | "int" | "uint" | "float"
	Unit      string
}

// Engine holds the merged unit whitelist for one pipeline.
type Engine struct {
	units map[string]struct{} // case-folded; nil means "no whitelist, anything passes"
}

// New builds an Engine from a pipeline's own units plus, when
// applyGlobal is true, the globally-declared units merged in; when false,
// only the global units are adopted (per spec.md §4.5 composition rule).
func New(pipelineUnits, globalUnits []string, applyGlobal bool) *Engine {
	var merged []string
	if applyGlobal {
		merged = append(append([]string{}, pipelineUnits...), globalUnits...)
	} else {
		merged = globalUnits
	}
	if merged == nil {
		return &Engine{units: nil}
	}
	set := make(map[string]struct{}, len(merged))
	for _, u := range merged {
		set[strings.ToLower(u)] = struct{}{}
	}
	return &Engine{units: set}
}

// CheckValues validates every record; a single failing record fails the
// whole call, per spec.md §4.5.
func (e *Engine) CheckValues(values []Value) bool {
	for _, v := range values {
		if !e.checkOne(v) {
			return false
		}
	}
	return true
}

func (e *Engine) checkOne(v Value) bool {
	if v.Unit == "" {
		return false
	}
	if e.units != nil {
		if _, ok := e.units[strings.ToLower(v.Unit)]; !ok {
			return false
		}
	}
	return classify(v.Value, v.ValueType)
}

func classify(value interface{}, valueType string) bool {
	switch valueType {
	case "string":
		_, ok := value.(string)
		return ok
	case "int":
		return isIntegral(value)
	case "uint":
		n, ok := asFloat(value)
		return ok && isIntegral(value) && n >= 0
	case "float":
		_, ok := asFloat(value)
		return ok
	default:
		return false
	}
}

func isIntegral(value interface{}) bool {
	f, ok := asFloat(value)
	if !ok {
		return false
	}
	return f == float64(int64(f))
}

func asFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
