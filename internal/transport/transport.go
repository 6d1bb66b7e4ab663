// Package transport defines the Transport capability set (C2) shared by
// every broker binding variant, and the factory (C3) that builds one from
// a BrokerConfig. Mirrors the capture-agent lineage's plugin.Capturer /
// plugin.Reporter interface-plus-registry split, but as a single
// bidirectional capability set since a Transport both publishes and
// subscribes depending on its role in a pipeline.
package transport

import (
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/metrics"
)

// Transport is the capability set the Pipeline Runner depends on,
// satisfied structurally (no shared base type) by every variant package.
type Transport interface {
	// Publish sends payload to topic, returning false on disconnect or SDK
	// error. Never panics or returns an error value — transport failures
	// are reported through the bool per spec.md §4.2's failure semantics.
	Publish(topic string, payload []byte) bool

	// StartListening subscribes to topics (or registers them against the
	// shared demux, for singleton variants) and arranges for decoded
	// messages to be pushed onto queue. Returns false when unsupported
	// (CloudHubService) or on subscribe failure.
	StartListening(topics []string, queue chan<- core.InboundMessage) bool

	Disconnect()
	GetDeviceID() string

	SetMetrics(reg *metrics.Registry, pipelineLabel string)
	SetMaxMsgSec(n int)
	SetSleepSec(s float64)
}
