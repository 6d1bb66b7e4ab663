package processor

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/metrics"
)

// fakeTransport records every Publish call for assertions; it satisfies
// transport.Transport structurally without importing that package (it is
// already imported transitively through ProcessorCore.Destination's type).
type fakeTransport struct {
	mu        sync.Mutex
	published []publishCall
	ok        bool
	retained  []publishCall
}

type publishCall struct {
	Topic   string
	Payload []byte
}

func newFakeTransport() *fakeTransport { return &fakeTransport{ok: true} }

func (f *fakeTransport) Publish(topic string, payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishCall{topic, payload})
	return f.ok
}

func (f *fakeTransport) PublishRetained(topic string, payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retained = append(f.retained, publishCall{topic, payload})
	return f.ok
}

func (f *fakeTransport) StartListening(topics []string, queue chan<- core.InboundMessage) bool {
	return true
}
func (f *fakeTransport) Disconnect()    {}
func (f *fakeTransport) GetDeviceID() string { return "fake" }
func (f *fakeTransport) SetMetrics(reg *metrics.Registry, pipelineLabel string) {}
func (f *fakeTransport) SetMaxMsgSec(n int)      {}
func (f *fakeTransport) SetSleepSec(s float64)   {}

func (f *fakeTransport) last() publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

func newCore(dest *fakeTransport) *ProcessorCore {
	return &ProcessorCore{
		Pipeline:                "test-pipeline",
		Metrics:                 metrics.NewRegistry(),
		Destination:             dest,
		HasCloudEvent:           true,
		MaxPayloadSizeBytes:     0,
		DestinationTopicDefault: "out/topic",
	}
}

func mustJSON(v interface{}) map[string]interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	return m
}

func inbound(payload map[string]interface{}, size int) core.InboundMessage {
	return core.InboundMessage{
		Topic:      "in/topic",
		Payload:    payload,
		RawValid:   true,
		SizeBytes:  size,
		EnqueuedAt: time.Now().UTC(),
	}
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func testCounterValue(t *testing.T, vec *prometheus.CounterVec, label string) float64 {
	t.Helper()
	return testutil.ToFloat64(vec.WithLabelValues(label))
}
