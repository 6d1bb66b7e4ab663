// Package mqttbroker implements the LocalMQTT transport variant (C2),
// backed by github.com/eclipse/paho.golang/paho the same way the example
// pack's device-messaging agent uses it, with mutual-TLS and a fixed
// 5s/10-retry reconnect loop layered on top since paho.golang itself only
// provides the protocol client, not connection-lifecycle management.
package mqttbroker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/throttle"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

const (
	reconnectInterval = 5 * time.Second
	initialRetries    = 10
)

// Transport is the LocalMQTT variant.
type Transport struct {
	cfg config.BrokerConfig

	mu      sync.Mutex
	state   connState
	client  *paho.Client
	conn    net.Conn
	queue   chan<- core.InboundMessage
	topics  []string

	deviceID string
	th       *throttle.Throttle
	reg      *metrics.Registry
	pipeline string
}

// New constructs a LocalMQTT transport from its broker config. Connection
// is established lazily on the first StartListening/Publish call.
func New(cfg config.BrokerConfig) *Transport {
	return &Transport{cfg: cfg, deviceID: cfg.ClientID}
}

func (t *Transport) SetMetrics(reg *metrics.Registry, pipelineLabel string) {
	t.reg = reg
	t.pipeline = pipelineLabel
}

func (t *Transport) SetMaxMsgSec(n int) {
	if t.th == nil {
		t.th = throttle.New(n, 1.0, t.incThrottle)
		return
	}
	t.th.SetMaxMsgSec(n)
}

func (t *Transport) SetSleepSec(s float64) {
	if t.th == nil {
		t.th = throttle.New(10, s, t.incThrottle)
		return
	}
	t.th.SetSleepSec(s)
}

func (t *Transport) incThrottle() {
	if t.reg != nil {
		t.reg.ThrottleTotal.WithLabelValues(t.pipeline).Inc()
	}
}

func (t *Transport) GetDeviceID() string { return t.deviceID }

// ensureConnected is idempotent: a second caller observing "Connecting"
// returns success without dialing a second connection, per the LocalMQTT
// state machine in spec.md §4.2.
func (t *Transport) ensureConnected(ctx context.Context) bool {
	t.mu.Lock()
	if t.state == stateConnected {
		t.mu.Unlock()
		return true
	}
	if t.state == stateConnecting {
		t.mu.Unlock()
		return true
	}
	t.state = stateConnecting
	t.mu.Unlock()

	ok := t.connectWithRetry(ctx, initialRetries)

	t.mu.Lock()
	if ok {
		t.state = stateConnected
	} else {
		t.state = stateDisconnected
	}
	t.mu.Unlock()
	return ok
}

func (t *Transport) connectWithRetry(ctx context.Context, maxRetries int) bool {
	for attempt := 0; maxRetries <= 0 || attempt < maxRetries; attempt++ {
		if t.dialAndConnect(ctx) {
			return true
		}
		time.Sleep(reconnectInterval)
	}
	return false
}

func (t *Transport) dialAndConnect(ctx context.Context) bool {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	conn, err := t.dial(addr)
	if err != nil {
		log.GetLogger().WithError(err).WithField("addr", addr).Warn("localmqtt: dial failed")
		return false
	}

	client := paho.NewClient(paho.ClientConfig{
		Conn: conn,
		OnClientError: func(err error) {
			log.GetLogger().WithError(err).Warn("localmqtt: client error, will reconnect")
			t.handleDisconnect()
		},
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){t.onPublishReceived},
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err = client.Connect(connCtx, &paho.Connect{
		KeepAlive:  uint16(defaultInt(t.cfg.KeepAliveSec, 60)),
		ClientID:   t.cfg.ClientID,
		CleanStart: true,
		Username:   t.cfg.Username,
		Password:   []byte(t.cfg.Password),
		UsernameFlag: t.cfg.Username != "",
		PasswordFlag: t.cfg.Password != "",
	})
	if err != nil {
		conn.Close()
		log.GetLogger().WithError(err).Warn("localmqtt: connect failed")
		return false
	}

	t.mu.Lock()
	t.client = client
	t.conn = conn
	topics := append([]string{}, t.topics...)
	queueSet := t.queue != nil
	t.mu.Unlock()

	if queueSet && len(topics) > 0 {
		t.subscribe(topics)
	}
	return true
}

func (t *Transport) dial(addr string) (net.Conn, error) {
	if t.cfg.CACerts == "" && t.cfg.CertFile == "" {
		return net.DialTimeout("tcp", addr, 15*time.Second)
	}

	tlsCfg := &tls.Config{}
	if t.cfg.CACerts != "" {
		pem, err := os.ReadFile(t.cfg.CACerts)
		if err != nil {
			return nil, fmt.Errorf("read ca_certs: %w", err)
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(pem)
		tlsCfg.RootCAs = pool
	}
	if t.cfg.CertFile != "" && t.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.cfg.CertFile, t.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	dialer := &tls.Dialer{Config: tlsCfg}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return dialer.DialContext(ctx, "tcp", addr)
}

func (t *Transport) handleDisconnect() {
	t.mu.Lock()
	t.state = stateDisconnected
	t.mu.Unlock()
	go t.ensureConnected(context.Background())
}

func (t *Transport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	t.mu.Lock()
	q := t.queue
	th := t.th
	t.mu.Unlock()
	if q == nil {
		return true, nil
	}
	if th != nil {
		th.TryAdmit()
	}

	msg := core.InboundMessage{
		Topic:      pr.Packet.Topic,
		SizeBytes:  len(pr.Packet.Payload),
		EnqueuedAt: time.Now().UTC(),
		Props:      userProperties(pr.Packet.Properties),
	}

	var decoded interface{}
	if err := json.Unmarshal(pr.Packet.Payload, &decoded); err != nil {
		msg.Payload = string(pr.Packet.Payload)
		msg.RawValid = false
	} else {
		msg.Payload = decoded
		msg.RawValid = true
	}

	select {
	case q <- msg:
	default:
		log.GetLogger().WithField("topic", pr.Packet.Topic).Warn("localmqtt: queue full, dropping message")
	}
	return true, nil
}

func (t *Transport) subscribe(topics []string) bool {
	t.mu.Lock()
	client := t.client
	qos := byte(t.cfg.QoS)
	t.mu.Unlock()
	if client == nil {
		return false
	}

	subs := make([]paho.SubscribeOptions, 0, len(topics))
	for _, topic := range topics {
		subs = append(subs, paho.SubscribeOptions{Topic: topic, QoS: qos})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs})
	if err != nil {
		log.GetLogger().WithError(err).Warn("localmqtt: subscribe failed")
		return false
	}
	return true
}

func (t *Transport) StartListening(topics []string, queue chan<- core.InboundMessage) bool {
	t.mu.Lock()
	t.queue = queue
	t.topics = topics
	t.mu.Unlock()

	if !t.ensureConnected(context.Background()) {
		return false
	}
	return t.subscribe(topics)
}

func (t *Transport) Publish(topic string, payload []byte) bool {
	if !t.ensureConnected(context.Background()) {
		return false
	}
	t.mu.Lock()
	client := t.client
	qos := byte(t.cfg.QoS)
	retain := t.cfg.Retain
	t.mu.Unlock()
	if client == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     qos,
		Retain:  retain,
		Payload: payload,
	})
	if err != nil {
		log.GetLogger().WithError(err).WithField("topic", topic).Warn("localmqtt: publish failed")
		return false
	}
	return true
}

// PublishRetained is used by the GDP processor variant, whose outbound
// publish always sets retain=true regardless of the broker's configured
// default (spec.md §9 open question (b): only LocalMQTT honors this flag).
func (t *Transport) PublishRetained(topic string, payload []byte) bool {
	if !t.ensureConnected(context.Background()) {
		return false
	}
	t.mu.Lock()
	client := t.client
	qos := byte(t.cfg.QoS)
	t.mu.Unlock()
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := client.Publish(ctx, &paho.Publish{Topic: topic, QoS: qos, Retain: true, Payload: payload})
	return err == nil
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
	t.state = stateDisconnected
}

func defaultInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

// userProperties flattens an MQTT5 PUBLISH's user properties into a plain
// map, including any iothub-connection-device-id a bridged broker forwards
// from the originating device.
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
