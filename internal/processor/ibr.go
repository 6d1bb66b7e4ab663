package processor

import (
	"strings"

	"github.com/edgeiot/zeppelin/internal/core"
)

// ibrTypePrefix is the common type namespace every IBR message must fall
// under; the token after the final dot becomes device_model.
const ibrTypePrefix = "ca.qc.hydro.iot.ibr."

var ibrAllowedTokens = map[string]struct{}{
	"egauge":             {},
	"insighthome":        {},
	"predictivecontrol":  {},
	"outage":             {},
	"drift":              {},
	"optimize":           {},
}

// IBR allow-lists type ca.qc.hydro.iot.ibr.{egauge,insighthome,
// predictivecontrol,outage,drift,optimize}, sets device_model from the
// trailing type token, and preserves the inbound type on the envelope.
type IBR struct {
	*ProcessorCore
}

func NewIBR(core *ProcessorCore) *IBR { return &IBR{ProcessorCore: core} }

func (p *IBR) Process(msg core.InboundMessage) {
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
	p.Metrics.RxIBRMessageTotal.WithLabelValues(p.Pipeline).Inc()

	if p.HasCloudEvent && env.SpecVersion != "1.0" {
		p.Metrics.RxMessageInvalid.WithLabelValues(p.Pipeline).Inc()
		return
	}

	token, ok := ibrToken(env.Type)
	if !ok {
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

	env.DeviceModel = token
	p.populateAttributes(&env, payload)
	p.publish(env, data, dataB64, p.destinationTopic())
}

func ibrToken(typ string) (string, bool) {
	if !strings.HasPrefix(typ, ibrTypePrefix) {
		return "", false
	}
	token := strings.TrimPrefix(typ, ibrTypePrefix)
	if _, ok := ibrAllowedTokens[token]; !ok {
		return "", false
	}
	return token, true
}
