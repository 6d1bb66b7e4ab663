package processor

import "github.com/edgeiot/zeppelin/internal/core"

// Generic is the default Processor variant: optional type allow-list via
// data_types, optional populate_ce_attributes copying. When Reassembly is
// wired, raw (non-JSON) inbound messages are handed to the Block
// Reassembly Engine instead of the CloudEvent pipeline, per spec.md §2's
// "C10 is invoked by a Generic-style processor for camera events".
type Generic struct {
	*ProcessorCore
}

func NewGeneric(core *ProcessorCore) *Generic { return &Generic{ProcessorCore: core} }

func (p *Generic) Process(msg core.InboundMessage) {
	if p.Reassembly != nil && !msg.RawValid {
		if raw, ok := msg.Payload.(string); ok {
			p.Reassembly.Ingest(p.reassemblyDeviceID(msg), raw, msg.EnqueuedAt)
			return
		}
	}

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
	p.Metrics.RxGenericMessageTotal.WithLabelValues(p.Pipeline).Inc()

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

	p.populateAttributes(&env, payload)
	p.publish(env, data, dataB64, p.destinationTopic())
}

// reassemblyDeviceID resolves the originating device for a block message
// from the transport's system properties, falling back to this pipeline's
// own connection identity for single-device transports (e.g. CloudDevice)
// that never populate msg.Props. Block bodies never carry device_id
// themselves (spec.md §4.10's wire grammar only documents type/val).
func (p *Generic) reassemblyDeviceID(msg core.InboundMessage) string {
	if id, ok := msg.Props["iothub-connection-device-id"]; ok && id != "" {
		return id
	}
	if id, ok := msg.Props["connectionDeviceId"]; ok && id != "" {
		return id
	}
	return p.SourceDeviceID
}
