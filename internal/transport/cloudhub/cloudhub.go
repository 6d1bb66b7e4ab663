// Package cloudhub implements the CloudHubService transport variant (C2):
// the cloud-side sender that invokes a direct method on a target
// device/module rather than publishing to a topic. start_listening is
// unsupported. Grounded on github.com/amenzhinsky/iothub's
// Transport{rid, resp map[uint32]chan *resp} request/response correlation
// pattern for $iothub/methods/POST/{method}/?$rid={id}, reusing
// paho.golang as the wire client.
package cloudhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/paho"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/throttle"
)

const connectMaxRetry = 10

type methodResponse struct {
	Status  int             `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

// Transport is the CloudHubService variant. Construction fails (returns
// nil) after CONNECT_MAX_RETRY x 5s, per spec.md §7's transport-transient
// policy for this variant.
type Transport struct {
	mu   sync.Mutex
	cfg  config.BrokerConfig
	client *paho.Client
	conn   net.Conn

	rid  atomic.Uint32
	resp sync.Map // rid -> chan *methodResponse

	th  *throttle.Throttle
	reg *metrics.Registry

	connTimeout time.Duration
	respTimeout time.Duration
}

// New constructs and connects a CloudHubService transport. Returns nil if
// the connection could not be established within CONNECT_MAX_RETRY
// attempts, surfacing as a pipeline construction failure.
func New(cfg config.BrokerConfig) *Transport {
	t := &Transport{
		cfg:         cfg,
		connTimeout: time.Duration(defaultInt(cfg.ConnectionTimeoutSec, 15)) * time.Second,
		respTimeout: time.Duration(defaultInt(cfg.ResponseTimeoutSec, 30)) * time.Second,
	}
	if !t.connectWithRetry() {
		return nil
	}
	return t
}

func defaultInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func (t *Transport) connectWithRetry() bool {
	for attempt := 0; attempt < connectMaxRetry; attempt++ {
		if t.dial() {
			return true
		}
		time.Sleep(5 * time.Second)
	}
	return false
}

func (t *Transport) dial() bool {
	addr := t.cfg.Host
	if addr == "" {
		addr = "iothub.azure-devices.net"
	}
	conn, err := net.DialTimeout("tcp", addr+":8883", t.connTimeout)
	if err != nil {
		log.GetLogger().WithError(err).Warn("cloudhub: dial failed")
		return false
	}
	client := paho.NewClient(paho.ClientConfig{
		Conn:              conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){t.onPublishReceived},
	})
	ctx, cancel := context.WithTimeout(context.Background(), t.connTimeout)
	defer cancel()
	if _, err := client.Connect(ctx, &paho.Connect{ClientID: "cloudhub-service", CleanStart: true, KeepAlive: 60}); err != nil {
		conn.Close()
		log.GetLogger().WithError(err).Warn("cloudhub: connect failed")
		return false
	}

	subCtx, subCancel := context.WithTimeout(context.Background(), t.connTimeout)
	defer subCancel()
	_, _ = client.Subscribe(subCtx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: "$iothub/methods/res/#", QoS: 1}},
	})

	t.mu.Lock()
	t.client = client
	t.conn = conn
	t.mu.Unlock()
	return true
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
func (t *Transport) GetDeviceID() string { return "" }

// StartListening is unsupported for CloudHubService, per spec.md §4.2.
func (t *Transport) StartListening(topics []string, queue chan<- core.InboundMessage) bool {
	return false
}

func (t *Transport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	rid, ok := ridFromTopic(pr.Packet.Topic)
	if !ok {
		return true, nil
	}
	if chAny, ok := t.resp.LoadAndDelete(rid); ok {
		ch := chAny.(chan *methodResponse)
		var mr methodResponse
		_ = json.Unmarshal(pr.Packet.Payload, &mr)
		ch <- &mr
	}
	return true, nil
}

func ridFromTopic(topic string) (uint32, bool) {
	const marker = "$rid="
	idx := -1
	for i := 0; i+len(marker) <= len(topic); i++ {
		if topic[i:i+len(marker)] == marker {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	var rid uint32
	for _, c := range topic[idx+len(marker):] {
		if c < '0' || c > '9' {
			break
		}
		rid = rid*10 + uint32(c-'0')
	}
	return rid, true
}

// Publish invokes the configured direct method on the device/module named
// by topic (the spec overloads "topic" as device_id for this variant).
func (t *Transport) Publish(topic string, payload []byte) bool {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return false
	}

	method := t.cfg.DirectMethodName
	if method == "" {
		method = "publish"
	}
	rid := t.rid.Add(1)
	respCh := make(chan *methodResponse, 1)
	t.resp.Store(rid, respCh)
	defer t.resp.Delete(rid)

	reqTopic := fmt.Sprintf("$iothub/methods/POST/%s/?$rid=%d", method, rid)
	ctx, cancel := context.WithTimeout(context.Background(), t.connTimeout)
	defer cancel()
	_, err := client.Publish(ctx, &paho.Publish{Topic: reqTopic, QoS: 1, Payload: payload})
	if err != nil {
		log.GetLogger().WithError(err).Warn("cloudhub: publish (method invoke) failed")
		return false
	}

	select {
	case resp := <-respCh:
		return resp.Status >= 200 && resp.Status < 300
	case <-time.After(t.respTimeout):
		log.GetLogger().WithField("method", method).Warn("cloudhub: method response timeout")
		return false
	}
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
