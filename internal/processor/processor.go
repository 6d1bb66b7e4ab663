// Package processor implements the Processor polymorphic stage (C6) and
// its factory (C7). Deep inheritance is replaced with composition per
// spec.md §9: ProcessorCore holds every field shared across variants
// (metrics, schema, envelope template, destination transport) while each
// variant supplies its own Process method built from ProcessorCore's
// shared step helpers (size check, schema validation, envelope assembly,
// publish).
package processor

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/rules"
	"github.com/edgeiot/zeppelin/internal/schema"
	"github.com/edgeiot/zeppelin/internal/transport"
)

// Processor is the pipeline-stage contract: assess -> validate -> normalize
// -> publish, executed once per inbound message by the Pipeline Runner.
// Every stage is a bool internally; no step may panic or abort the runner
// loop (spec.md §9's "exception-for-control-flow" design note).
type Processor interface {
	Process(msg core.InboundMessage)
}

// ProcessorCore is the composition root embedded by every variant.
type ProcessorCore struct {
	Pipeline    string
	Metrics     *metrics.Registry
	Destination transport.Transport

	SourceDeviceID string // used as envelope source when !HasCloudEvent
	HasCloudEvent  bool

	MaxPayloadSizeBytes int
	CloudEventTemplate  config.CloudEventTemplate
	Schema              *schema.Schema
	Rules               *rules.Engine

	DestinationTopicDefault string
	DeviceIDAttributeName   string
	PopulateCEAttributes    []string
	DataTypes               []string

	// Reassembly, when non-nil, receives the raw (non-JSON) string messages
	// the Generic variant takes off its inbound queue, so the block
	// reassembly engine is driven off the same queue a Generic-style
	// pipeline already processes (spec.md §2 control flow).
	Reassembly ReassemblyHook

	// SyncJournal, when non-nil, receives every successfully published
	// envelope for route matching against synciot.json.
	SyncJournal SyncJournalHook
}

// ReassemblyHook is the narrow surface the Generic processor drives the
// Block Reassembly Engine through, avoiding an import cycle between
// processor and reassembly. deviceID must be sourced from the inbound
// message's transport identity (IoT Hub's iothub-connection-device-id
// system property), never parsed out of raw: real block bodies carry no
// device_id of their own.
type ReassemblyHook interface {
	Ingest(deviceID, raw string, receivedAt time.Time)
}

// SyncJournalHook is the narrow surface publish drives the sync-to-warehouse
// journal through. Non-nil only when the daemon loaded a synciot.json, in
// which case every pipeline's ProcessorCore carries it; a journaling
// failure is logged, never treated as a publish failure, since the
// warehouse sink is an out-of-scope collaborator.
type SyncJournalHook interface {
	Record(event core.CloudEvent) (int, error)
}

// sizeCheck enforces step 1: reject when size_bytes exceeds the configured
// cap. Returns true when the message may proceed.
func (c *ProcessorCore) sizeCheck(msg core.InboundMessage) bool {
	if c.MaxPayloadSizeBytes > 0 && msg.SizeBytes > c.MaxPayloadSizeBytes {
		c.Metrics.RxMessageInvalid.WithLabelValues(c.Pipeline).Inc()
		c.Metrics.RxMessageOverSize.WithLabelValues(c.Pipeline).Inc()
		return false
	}
	return true
}

// asObject returns msg.Payload as a map, or (nil, false) when it isn't one
// (e.g. the raw-string fallback from a JSON-decode failure upstream).
func asObject(payload interface{}) (map[string]interface{}, bool) {
	m, ok := payload.(map[string]interface{})
	return m, ok
}

// buildEnvelope implements step 2 (envelope detect): when the source
// broker carries a CloudEvent, source/compressed/specversion/type are
// copied from the inbound payload into a working envelope derived from the
// pipeline's template; otherwise a fresh envelope is synthesized with
// source = device_id.
func (c *ProcessorCore) buildEnvelope(payload map[string]interface{}) core.CloudEvent {
	env := core.CloudEvent{
		SpecVersion:     firstNonEmptyStr(c.CloudEventTemplate.SpecVersion, "1.0"),
		Source:          c.CloudEventTemplate.Source,
		Type:            c.CloudEventTemplate.Type,
		DataContentType: firstNonEmptyStr(c.CloudEventTemplate.DataContentType, "application/json"),
		Extra:           map[string]interface{}{},
	}
	for k, v := range c.CloudEventTemplate.Extra {
		env.Extra[k] = v
	}

	if c.HasCloudEvent {
		if sv, ok := payload["specversion"].(string); ok {
			env.SpecVersion = sv
		}
		if src, ok := payload["source"].(string); ok {
			env.Source = src
		}
		if typ, ok := payload["type"].(string); ok {
			env.Type = typ
		}
		if comp, ok := payload["compressed"].(bool); ok {
			env.Compressed = comp
		}
	} else {
		env.Source = c.SourceDeviceID
	}
	return env
}

// extractData implements the data-extraction half of step 4: pulls the
// inner data or data_base64 field and enforces the compressed/base64 and
// application/json shape constraints.
func (c *ProcessorCore) extractData(env core.CloudEvent, payload map[string]interface{}) (data interface{}, dataB64 string, ok bool) {
	if b64, present := payload["data_base64"]; present {
		s, isStr := b64.(string)
		if !isStr {
			return nil, "", false
		}
		return nil, s, true
	}

	d, present := payload["data"]
	if !present {
		return nil, "", false
	}

	if env.Compressed {
		if _, isStr := d.(string); !isStr {
			return nil, "", false
		}
		return d, "", true
	}

	if env.DataContentType == "application/json" {
		if _, isObj := d.(map[string]interface{}); !isObj {
			if _, isArr := d.([]interface{}); !isArr {
				return nil, "", false
			}
		}
	}
	return d, "", true
}

// validateSchema runs step 4's JSON-Schema check when json_schema is
// configured.
func (c *ProcessorCore) validateSchema(data interface{}) bool {
	if c.Schema == nil {
		return true
	}
	return c.Schema.Validate(data) == nil
}

// destinationTopic resolves where to publish: pipeline default unless a
// variant override (C2D's dest_topic precedence chain, RCICommand routing)
// supplies one.
func (c *ProcessorCore) destinationTopic() string {
	return c.DestinationTopicDefault
}

// publish implements step 6: assembles the final envelope (fresh id/time),
// marshals it, and publishes to topic. rx_message_error fires only when no
// data was produced at all (marshal failure); once rx_message_valid fires
// for a message, a downstream transport publish failure only withholds
// tx_message_total, per spec.md §8 Invariant 1 (exactly one of
// rx_message_valid/rx_message_invalid/rx_message_error per message).
func (c *ProcessorCore) publish(env core.CloudEvent, data interface{}, dataB64 string, topic string) bool {
	env.ID = uuid.NewString()
	env.Time = time.Now().UTC()
	if dataB64 != "" {
		env.DataBase64 = dataB64
		env.Data = nil
	} else {
		env.Data = data
	}

	body, err := json.Marshal(env)
	if err != nil {
		log.GetLogger().WithError(err).Error("processor: marshal outbound envelope failed")
		c.Metrics.RxMessageError.WithLabelValues(c.Pipeline).Inc()
		return false
	}

	c.Metrics.RxMessageValid.WithLabelValues(c.Pipeline).Inc()
	if !c.Destination.Publish(topic, body) {
		return false
	}
	c.Metrics.TxMessageTotal.WithLabelValues(c.Pipeline).Inc()

	if c.SyncJournal != nil {
		if _, err := c.SyncJournal.Record(env); err != nil {
			log.GetLogger().WithError(err).Warn("processor: sync journal record failed")
		}
	}

	return true
}

// populateAttributes copies PopulateCEAttributes from payload into env's
// Extra, logging (not failing) missing attributes.
func (c *ProcessorCore) populateAttributes(env *core.CloudEvent, payload map[string]interface{}) {
	for _, attr := range c.PopulateCEAttributes {
		v, ok := payload[attr]
		if !ok {
			log.GetLogger().WithField("attribute", attr).WithField("pipeline", c.Pipeline).
				Debug("processor: populate_ce_attributes source field missing")
			continue
		}
		if env.Extra == nil {
			env.Extra = map[string]interface{}{}
		}
		env.Extra[attr] = v
	}
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func typeAllowed(allowList []string, typ string) bool {
	if len(allowList) == 0 {
		return true
	}
	for _, t := range allowList {
		if t == typ {
			return true
		}
	}
	return false
}
