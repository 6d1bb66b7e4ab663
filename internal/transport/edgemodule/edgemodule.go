// Package edgemodule implements the EdgeHubModule transport variant (C2):
// a process-wide singleton (the SDK constraint spec.md §4.2 and the design
// note in §9 call out) that publishes on named "outputs" and demuxes
// "inputs" across every pipeline sharing it, plus a direct-method request
// handler. Grounded on github.com/amenzhinsky/iothub's module-scoped MQTT
// topic convention (devices/{device}/modules/{module}/inputs|outputs/...),
// reusing the same paho.golang client the LocalMQTT variant uses rather
// than a bespoke Azure IoT Edge workload-API client.
package edgemodule

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/throttle"
)

var (
	singletonMu sync.Mutex
	singleton   *Transport
)

// Transport is the EdgeHubModule variant. All pipelines that reference
// class "EdgeHubModule" share the single process-wide instance returned by
// Get.
type Transport struct {
	mu       sync.Mutex
	client   *paho.Client
	conn     net.Conn
	deviceID string
	moduleID string

	// inputs maps an edgeHub "input" name to the queue(s) listening on it;
	// keyed the same way the capture-agent lineage's class-level maps were,
	// mutated under this transport's own mutex per spec.md §5.
	inputs map[string]chan<- core.InboundMessage

	// methods maps a registered direct-method name to the queue it feeds.
	methods map[string]chan<- core.InboundMessage

	th  *throttle.Throttle
	reg *metrics.Registry
}

// Get returns the process-wide singleton, constructing it on first use.
// Subsequent calls ignore cfg and return the existing instance (per the
// "module-level singleton" design note).
func Get(cfg config.BrokerConfig) *Transport {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton != nil {
		return singleton
	}
	singleton = &Transport{
		deviceID: envOr("IOTEDGE_DEVICEID", cfg.DeviceID),
		moduleID: envOr("MODULE_ID", firstNonEmpty(cfg.ModuleID, "zeppelin")),
		inputs:   map[string]chan<- core.InboundMessage{},
		methods:  map[string]chan<- core.InboundMessage{},
	}
	if cfg.EnableDirectMethod && cfg.DirectMethodName != "" {
		// the method name is not recorded on the singleton: StartListening
		// subscribes to inputs only, and a method is subscribed only when a
		// caller invokes RegisterDirectMethod itself.
	}
	return singleton
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (t *Transport) SetMetrics(reg *metrics.Registry, pipelineLabel string) { t.reg = reg }
func (t *Transport) SetMaxMsgSec(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.th == nil {
		t.th = throttle.New(n, 1.0, nil)
		return
	}
	t.th.SetMaxMsgSec(n)
}
func (t *Transport) SetSleepSec(s float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.th == nil {
		t.th = throttle.New(10, s, nil)
		return
	}
	t.th.SetSleepSec(s)
}
func (t *Transport) GetDeviceID() string { return t.deviceID }

func (t *Transport) ensureConnected() bool {
	t.mu.Lock()
	if t.client != nil {
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	conn, err := net.DialTimeout("tcp", "localhost:8883", 15*time.Second)
	if err != nil {
		log.GetLogger().WithError(err).Warn("edgemodule: dial edgeHub failed")
		return false
	}
	client := paho.NewClient(paho.ClientConfig{
		Conn:              conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){t.onPublishReceived},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := client.Connect(ctx, &paho.Connect{ClientID: t.moduleID, CleanStart: true, KeepAlive: 60}); err != nil {
		conn.Close()
		log.GetLogger().WithError(err).Warn("edgemodule: connect failed")
		return false
	}

	t.mu.Lock()
	t.client = client
	t.conn = conn
	t.mu.Unlock()
	return true
}

func (t *Transport) inputTopic(input string) string {
	return fmt.Sprintf("devices/%s/modules/%s/inputs/%s", t.deviceID, t.moduleID, input)
}

func (t *Transport) outputTopic(output string) string {
	return fmt.Sprintf("devices/%s/modules/%s/outputs/%s", t.deviceID, t.moduleID, output)
}

func (t *Transport) methodTopic(method string) string {
	return fmt.Sprintf("$iothub/methods/POST/%s/#", method)
}

// StartListening registers topics as edgeHub "input" names, sharing the
// underlying subscription across every pipeline that calls this on the
// singleton. It does not register a direct-method handler, even when the
// broker config enables one; that happens only through RegisterDirectMethod.
func (t *Transport) StartListening(topics []string, queue chan<- core.InboundMessage) bool {
	if !t.ensureConnected() {
		return false
	}

	t.mu.Lock()
	for _, input := range topics {
		t.inputs[input] = queue
	}
	client := t.client
	t.mu.Unlock()

	subs := make([]paho.SubscribeOptions, 0, len(topics))
	for _, input := range topics {
		subs = append(subs, paho.SubscribeOptions{Topic: t.inputTopic(input), QoS: 1})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs})
	return err == nil
}

// RegisterDirectMethod wires a method name to a queue: requests named
// method are turned into InboundMessages and pushed to queue. This
// transport publishes no method response; nothing here answers the
// request.
func (t *Transport) RegisterDirectMethod(method string, queue chan<- core.InboundMessage) bool {
	if !t.ensureConnected() {
		return false
	}
	t.mu.Lock()
	t.methods[method] = queue
	client := t.client
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: t.methodTopic(method), QoS: 1}},
	})
	return err == nil
}

func (t *Transport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	input, method, isMethod := parseIncomingTopic(pr.Packet.Topic)

	t.mu.Lock()
	var q chan<- core.InboundMessage
	if isMethod {
		q = t.methods[method]
	} else {
		q = t.inputs[input]
	}
	th := t.th
	t.mu.Unlock()

	if q == nil {
		log.GetLogger().WithField("topic", pr.Packet.Topic).Warn("edgemodule: unmapped topic, discarding")
		return true, nil
	}
	if th != nil {
		th.TryAdmit()
	}

	var decoded interface{}
	valid := json.Unmarshal(pr.Packet.Payload, &decoded) == nil
	msg := core.InboundMessage{
		Topic:      firstNonEmpty(input, method),
		SizeBytes:  len(pr.Packet.Payload),
		EnqueuedAt: time.Now().UTC(),
		RawValid:   valid,
		Props:      userProperties(pr.Packet.Properties),
	}
	if valid {
		msg.Payload = decoded
	} else {
		msg.Payload = string(pr.Packet.Payload)
	}

	select {
	case q <- msg:
	default:
		log.GetLogger().WithField("topic", pr.Packet.Topic).Warn("edgemodule: queue full, dropping message")
	}
	return true, nil
}

// userProperties flattens an MQTT5 PUBLISH's user properties into a plain
// map. The edgeHub relays a routed message's system properties this way,
// including iothub-connection-device-id for the originating device of a
// message forwarded from an upstream route (spec.md §4.10's block
// reassembly keying depends on this, since the block body itself never
// carries a device_id).
func userProperties(props *paho.Properties) map[string]string {
	out := map[string]string{}
	if props == nil {
		return out
	}
	for _, up := range props.User {
		out[up.Key] = up.Value
	}
	return out
}

func parseIncomingTopic(topic string) (input, method string, isMethod bool) {
	const methodPrefix = "$iothub/methods/POST/"
	if len(topic) > len(methodPrefix) && topic[:len(methodPrefix)] == methodPrefix {
		rest := topic[len(methodPrefix):]
		for i, c := range rest {
			if c == '/' {
				return "", rest[:i], true
			}
		}
		return "", rest, true
	}
	const marker = "/inputs/"
	if idx := indexOf(topic, marker); idx >= 0 {
		return topic[idx+len(marker):], "", false
	}
	return topic, "", false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Publish sends on the named output.
func (t *Transport) Publish(output string, payload []byte) bool {
	if !t.ensureConnected() {
		return false
	}
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Publish(ctx, &paho.Publish{Topic: t.outputTopic(output), QoS: 1, Payload: payload})
	if err != nil {
		log.GetLogger().WithError(err).Warn("edgemodule: publish failed")
		return false
	}
	return true
}

func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		_ = t.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	}
	if t.conn != nil {
		t.conn.Close()
	}
	t.client = nil
}

// Reset tears down the singleton; used only by tests.
func Reset() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton != nil {
		singleton.Disconnect()
	}
	singleton = nil
}
