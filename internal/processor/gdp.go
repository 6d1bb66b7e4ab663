package processor

import (
	"encoding/json"

	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
)

// retainPublisher is the narrow surface a destination Transport may offer
// for a retained publish; only mqttbroker.Transport implements it today
// (spec.md §9 open question (b): other transports ignore the flag).
type retainPublisher interface {
	PublishRetained(topic string, payload []byte) bool
}

// GDP republishes the inbound data field without wrapping it in a new
// CloudEvent envelope, retained on the destination when it supports retain.
type GDP struct {
	*ProcessorCore
}

func NewGDP(core *ProcessorCore) *GDP { return &GDP{ProcessorCore: core} }

func (p *GDP) Process(msg core.InboundMessage) {
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

	p.Metrics.RxGDPMessageTotal.WithLabelValues(p.Pipeline).Inc()

	data, present := payload["data"]
	if !present {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}
	if !p.validateSchema(data) {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		log.GetLogger().WithError(err).Error("gdp: marshal data failed")
		p.Metrics.RxMessageError.WithLabelValues(p.Pipeline).Inc()
		return
	}

	topic := p.destinationTopic()
	p.Metrics.RxMessageValid.WithLabelValues(p.Pipeline).Inc()

	var ok2 bool
	if rp, can := p.Destination.(retainPublisher); can {
		ok2 = rp.PublishRetained(topic, body)
	} else {
		ok2 = p.Destination.Publish(topic, body)
	}
	if !ok2 {
		return
	}
	p.Metrics.TxMessageTotal.WithLabelValues(p.Pipeline).Inc()
}
