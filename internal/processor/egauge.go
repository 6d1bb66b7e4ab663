package processor

import "github.com/edgeiot/zeppelin/internal/core"
import "github.com/edgeiot/zeppelin/internal/rules"

// EGauge requires inner data.device and data.values[], running the
// RulesEngine over each value entry. device_model is always set to
// "egauge" on the outbound envelope.
type EGauge struct {
	*ProcessorCore
}

func NewEGauge(core *ProcessorCore) *EGauge { return &EGauge{ProcessorCore: core} }

func (p *EGauge) Process(msg core.InboundMessage) {
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
	p.Metrics.RxEgaugeMessageTotal.WithLabelValues(p.Pipeline).Inc()

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
	if _, ok := dataObj["device"]; !ok {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}
	rawValues, ok := dataObj["values"].([]interface{})
	if !ok {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	values := make([]rules.Value, 0, len(rawValues))
	for _, rv := range rawValues {
		m, ok := rv.(map[string]interface{})
		if !ok {
			p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
			return
		}
		vt, _ := m["value_type"].(string)
		unit, _ := m["unit"].(string)
		values = append(values, rules.Value{Value: m["value"], ValueType: vt, Unit: unit})
	}
	if p.Rules != nil && !p.Rules.CheckValues(values) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	if !p.validateSchema(data) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	env.DeviceModel = "egauge"
	p.populateAttributes(&env, payload)
	p.publish(env, data, "", p.destinationTopic())
}
