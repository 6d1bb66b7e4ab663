package processor

import "strings"

// New constructs a Processor variant by string tag (case-insensitive),
// per spec.md §4.7. rawConfig is the pipeline's config map, consulted only
// by variants that need processor-owned auxiliary data (Zigbee's device
// table). Unknown tags return nil; pipeline construction fails in that case.
func New(tag string, core *ProcessorCore, rawConfig map[string]interface{}) Processor {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "generic":
		return NewGeneric(core)
	case "egauge":
		return NewEGauge(core)
	case "zigbee":
		devices, dataFields := parseZigbeeConfig(rawConfig)
		return NewZigbee(core, devices, dataFields)
	case "gdp":
		return NewGDP(core)
	case "ibr":
		return NewIBR(core)
	case "cloud2device":
		return NewC2D(core)
	case "rci":
		return NewRCI(core)
	case "rci_command":
		return NewRCICommand(core)
	default:
		return nil
	}
}

// parseZigbeeConfig decodes the processor-owned {devices, data_fields}
// table out of a pipeline's loosely-typed config map, per spec.md §8's S3
// scenario shape: devices: {MODEL: [{field, unit, value_type, mandatory}]},
// data_fields: [attr, ...].
func parseZigbeeConfig(rawConfig map[string]interface{}) (map[string][]ZigbeeField, []string) {
	devices := map[string][]ZigbeeField{}
	var dataFields []string
	if rawConfig == nil {
		return devices, dataFields
	}

	if rawDevices, ok := rawConfig["devices"].(map[string]interface{}); ok {
		for model, rawFields := range rawDevices {
			list, ok := rawFields.([]interface{})
			if !ok {
				continue
			}
			fields := make([]ZigbeeField, 0, len(list))
			for _, rf := range list {
				m, ok := rf.(map[string]interface{})
				if !ok {
					continue
				}
				field, _ := m["field"].(string)
				unit, _ := m["unit"].(string)
				valueType, _ := m["value_type"].(string)
				mandatory := true
				if mv, present := m["mandatory"]; present {
					if b, ok := mv.(bool); ok {
						mandatory = b
					}
				}
				fields = append(fields, ZigbeeField{
					Field:     field,
					Unit:      unit,
					ValueType: valueType,
					Mandatory: mandatory,
				})
			}
			devices[strings.ToUpper(model)] = fields
		}
	}

	if rawDataFields, ok := rawConfig["data_fields"].([]interface{}); ok {
		for _, v := range rawDataFields {
			if s, ok := v.(string); ok {
				dataFields = append(dataFields, s)
			}
		}
	}
	return devices, dataFields
}
