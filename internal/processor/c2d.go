package processor

import (
	"encoding/json"

	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
)

// C2D republishes the entire inbound payload as-is. Destination topic
// precedence: payload.dest_topic > props.dest_topic > pipeline default.
type C2D struct {
	*ProcessorCore
}

func NewC2D(core *ProcessorCore) *C2D { return &C2D{ProcessorCore: core} }

func (p *C2D) Process(msg core.InboundMessage) {
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

	p.Metrics.RxC2DMessageTotal.WithLabelValues(p.Pipeline).Inc()

	if !p.validateSchema(payload) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.GetLogger().WithError(err).Error("c2d: marshal payload failed")
		p.Metrics.RxMessageError.WithLabelValues(p.Pipeline).Inc()
		return
	}

	topic := p.destinationTopic()
	if dt, ok := payload["dest_topic"].(string); ok && dt != "" {
		topic = dt
	} else if dt, ok := msg.Props["dest_topic"]; ok && dt != "" {
		topic = dt
	}

	p.Metrics.RxMessageValid.WithLabelValues(p.Pipeline).Inc()
	if !p.Destination.Publish(topic, body) {
		return
	}
	p.Metrics.TxMessageTotal.WithLabelValues(p.Pipeline).Inc()
}
