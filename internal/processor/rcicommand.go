package processor

import "github.com/edgeiot/zeppelin/internal/core"

// RCICommand resolves its destination topic from
// payload[device_id_attribute_name] when that attribute is configured on
// the pipeline (cloud->edge fan-out where destination != default), else
// publishes to the pipeline default.
type RCICommand struct {
	*ProcessorCore
}

func NewRCICommand(core *ProcessorCore) *RCICommand { return &RCICommand{ProcessorCore: core} }

func (p *RCICommand) Process(msg core.InboundMessage) {
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

	routed := p.DeviceIDAttributeName != ""
	if routed {
		p.Metrics.TxCmdMessageTotal.WithLabelValues(p.Pipeline).Inc()
	} else {
		p.Metrics.RxCmdMessageTotal.WithLabelValues(p.Pipeline).Inc()
	}

	if p.HasCloudEvent && env.SpecVersion != "1.0" {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}
	if !typeAllowed(p.DataTypes, env.Type) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	data, dataB64, ok := p.extractData(env, payload)
	if !ok {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	validateTarget := data
	if dataB64 != "" {
		validateTarget = dataB64
	}
	if !p.validateSchema(validateTarget) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	topic := p.destinationTopic()
	if routed {
		if v, ok := payload[p.DeviceIDAttributeName].(string); ok && v != "" {
			topic = v
		}
	}

	p.populateAttributes(&env, payload)
	p.publish(env, data, dataB64, topic)
}
