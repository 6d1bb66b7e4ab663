package processor

import "github.com/edgeiot/zeppelin/internal/core"

// RCI requires no CloudEvent envelope on input. Data must be an object
// whose values are numeric; non-numeric values are dropped from the
// outbound record but do not fail the whole message.
type RCI struct {
	*ProcessorCore
}

func NewRCI(core *ProcessorCore) *RCI { return &RCI{ProcessorCore: core} }

func (p *RCI) Process(msg core.InboundMessage) {
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
	p.Metrics.RxRCIMessageTotal.WithLabelValues(p.Pipeline).Inc()

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

	numeric := make(map[string]interface{}, len(dataObj))
	for k, v := range dataObj {
		if isNumeric(v) {
			numeric[k] = v
		}
	}

	if !p.validateSchema(numeric) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	p.populateAttributes(&env, payload)
	p.publish(env, numeric, "", p.destinationTopic())
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32:
		return true
	default:
		return false
	}
}
