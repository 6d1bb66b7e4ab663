// Package clouddevice implements the CloudDevice transport variant (C2):
// a device-identity connection to the cloud hub, receiving via the same
// topic->queue demux pattern as edgemodule. Grounded on
// github.com/amenzhinsky/iothub's iotdevice/transport/mqtt topic
// conventions (devices/{id}/messages/events/ for publish,
// devices/{id}/messages/devicebound/# for C2D receive), reusing
// paho.golang as the wire client and github.com/pelletier/go-toml/v2 to
// read the device connection string file (AZIOT_CONFIG_PATH).
package clouddevice

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/throttle"
)

// connectionFile is the shape read from AZIOT_CONFIG_PATH (default
// /aziot_config.toml).
type connectionFile struct {
	HostName string `toml:"host_name"`
	DeviceID string `toml:"device_id"`
	SharedAccessKey string `toml:"shared_access_key"`
}

type Transport struct {
	mu       sync.Mutex
	cfg      config.BrokerConfig
	client   *paho.Client
	conn     net.Conn
	hostName string
	deviceID string

	queue  chan<- core.InboundMessage
	topics map[string]struct{}

	th  *throttle.Throttle
	reg *metrics.Registry
}

func New(cfg config.BrokerConfig) *Transport {
	return &Transport{cfg: cfg, topics: map[string]struct{}{}}
}

func (t *Transport) SetMetrics(reg *metrics.Registry, pipelineLabel string) { t.reg = reg }
func (t *Transport) SetMaxMsgSec(n int) {
	if t.th == nil {
		t.th = throttle.New(n, 1.0, nil)
		return
	}
	t.th.SetMaxMsgSec(n)
}
func (t *Transport) SetSleepSec(s float64) {
	if t.th == nil {
		t.th = throttle.New(10, s, nil)
		return
	}
	t.th.SetSleepSec(s)
}
func (t *Transport) GetDeviceID() string { return t.deviceID }

func (t *Transport) loadConnection() error {
	if cs := os.Getenv("AZURE_IOTHUB_CONNECTION_STRING"); cs != "" {
		return t.parseConnectionString(cs)
	}
	if cs := os.Getenv("IOTHUB_CONNECTION_STRING"); cs != "" {
		return t.parseConnectionString(cs)
	}

	path := t.cfg.ConnectionStringFile
	if path == "" {
		path = envOr("AZIOT_CONFIG_PATH", "/aziot_config.toml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("clouddevice: read %s: %w", path, err)
	}
	var cf connectionFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("clouddevice: parse %s: %w", path, err)
	}
	t.hostName = cf.HostName
	t.deviceID = cf.DeviceID
	return nil
}

// parseConnectionString supports the standard
// "HostName=...;DeviceId=...;SharedAccessKey=..." format.
func (t *Transport) parseConnectionString(cs string) error {
	parts := strings.Split(cs, ";")
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "HostName":
			t.hostName = kv[1]
		case "DeviceId":
			t.deviceID = kv[1]
		}
	}
	if t.hostName == "" || t.deviceID == "" {
		return fmt.Errorf("clouddevice: connection string missing HostName/DeviceId")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (t *Transport) ensureConnected() bool {
	t.mu.Lock()
	if t.client != nil {
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	if t.hostName == "" {
		if err := t.loadConnection(); err != nil {
			log.GetLogger().WithError(err).Warn("clouddevice: load connection failed")
			return false
		}
	}

	conn, err := net.DialTimeout("tcp", t.hostName+":8883", 15*time.Second)
	if err != nil {
		log.GetLogger().WithError(err).Warn("clouddevice: dial failed")
		return false
	}
	client := paho.NewClient(paho.ClientConfig{
		Conn:              conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){t.onPublishReceived},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := client.Connect(ctx, &paho.Connect{ClientID: t.deviceID, CleanStart: true, KeepAlive: 60}); err != nil {
		conn.Close()
		log.GetLogger().WithError(err).Warn("clouddevice: connect failed")
		return false
	}
	t.mu.Lock()
	t.client = client
	t.conn = conn
	t.mu.Unlock()
	return true
}

func (t *Transport) eventsTopic() string {
	return fmt.Sprintf("devices/%s/messages/events/", t.deviceID)
}

func (t *Transport) devBoundTopic() string {
	return fmt.Sprintf("devices/%s/messages/devicebound/#", t.deviceID)
}

func (t *Transport) Publish(topic string, payload []byte) bool {
	if !t.ensureConnected() {
		return false
	}
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Publish(ctx, &paho.Publish{Topic: t.eventsTopic(), QoS: 1, Payload: payload})
	return err == nil
}

func (t *Transport) StartListening(topics []string, queue chan<- core.InboundMessage) bool {
	if !t.ensureConnected() {
		return false
	}
	t.mu.Lock()
	t.queue = queue
	for _, topic := range topics {
		t.topics[topic] = struct{}{}
	}
	client := t.client
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: t.devBoundTopic(), QoS: 1}},
	})
	return err == nil
}

// onPublishReceived surfaces custom_properties.src_topic as the effective
// topic when present; unmapped topics are discarded with a warning, per
// spec.md §4.2's CloudDevice semantics.
func (t *Transport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	t.mu.Lock()
	q := t.queue
	topics := t.topics
	th := t.th
	t.mu.Unlock()
	if q == nil {
		return true, nil
	}

	var decoded map[string]interface{}
	valid := json.Unmarshal(pr.Packet.Payload, &decoded) == nil

	effectiveTopic := pr.Packet.Topic
	if valid {
		if cp, ok := decoded["custom_properties"].(map[string]interface{}); ok {
			if st, ok := cp["src_topic"].(string); ok && st != "" {
				effectiveTopic = st
			}
		}
	}

	if _, known := topics[effectiveTopic]; !known {
		log.GetLogger().WithField("topic", effectiveTopic).Warn("clouddevice: unmapped topic, discarding")
		return true, nil
	}
	if th != nil {
		th.TryAdmit()
	}

	msg := core.InboundMessage{
		Topic:      effectiveTopic,
		SizeBytes:  len(pr.Packet.Payload),
		EnqueuedAt: time.Now().UTC(),
		RawValid:   valid,
	}
	if valid {
		msg.Payload = decoded
	} else {
		msg.Payload = string(pr.Packet.Payload)
	}

	select {
	case q <- msg:
	default:
		log.GetLogger().Warn("clouddevice: queue full, dropping message")
	}
	return true, nil
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
