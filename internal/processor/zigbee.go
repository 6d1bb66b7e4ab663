package processor

import (
	"strings"

	"github.com/edgeiot/zeppelin/internal/core"
)

// ZigbeeField is one entry of a device model's field table: which inbound
// data field to project, and which extra attributes (unit, value_type) to
// stamp onto the outbound value record.
type ZigbeeField struct {
	Field     string
	Unit      string
	ValueType string
	Mandatory bool
}

// Zigbee looks up a device model from payload.subject (fallback
// data.device.model, upper-cased) in a processor-owned devices table, then
// projects data into {device, values: [{value, ...data_fields}]}.
type Zigbee struct {
	*ProcessorCore
	Devices    map[string][]ZigbeeField // keyed upper-case model
	DataFields []string                 // which field attrs to copy onto each value entry
}

func NewZigbee(core *ProcessorCore, devices map[string][]ZigbeeField, dataFields []string) *Zigbee {
	return &Zigbee{ProcessorCore: core, Devices: devices, DataFields: dataFields}
}

func (p *Zigbee) Process(msg core.InboundMessage) {
	if !msg.RawValid {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}
	if !p.sizeCheck(msg) {
		return
	}

	payload, ok := asObject(msg.Payload)
	if !ok {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	env := p.buildEnvelope(payload)
	p.Metrics.RxZigbeeMessageTotal.WithLabelValues(p.Pipeline).Inc()

	if p.HasCloudEvent && env.SpecVersion != "1.0" {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	data, dataB64, ok := p.extractData(env, payload)
	if !ok || dataB64 != "" {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}
	dataObj, ok := data.(map[string]interface{})
	if !ok {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	model := p.resolveModel(payload, dataObj)
	fields, known := p.Devices[model]
	if !known {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	values := make([]map[string]interface{}, 0, len(fields))
	for _, f := range fields {
		v, present := dataObj[f.Field]
		if !present {
			if f.Mandatory {
				p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
				return
			}
			continue
		}
		entry := map[string]interface{}{"value": v}
		for _, df := range p.DataFields {
			switch df {
			case "unit":
				entry["unit"] = f.Unit
			case "value_type":
				entry["value_type"] = f.ValueType
			}
		}
		values = append(values, entry)
	}

	normalized := map[string]interface{}{"values": values}
	if dev, ok := dataObj["device"]; ok {
		normalized["device"] = dev
	}

	if !p.validateSchema(normalized) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	p.populateAttributes(&env, payload)
	p.publish(env, normalized, "", p.destinationTopic())
}

func (p *Zigbee) resolveModel(payload, data map[string]interface{}) string {
	if subject, ok := payload["subject"].(string); ok && subject != "" {
		return strings.ToUpper(subject)
	}
	if dev, ok := data["device"].(map[string]interface{}); ok {
		if m, ok := dev["model"].(string); ok {
			return strings.ToUpper(m)
		}
	}
	return ""
}
