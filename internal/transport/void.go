package transport

import "github.com/edgeiot/zeppelin/internal/core"
import "github.com/edgeiot/zeppelin/internal/metrics"

// Void is the no-op transport used for draining pipelines or tests.
type Void struct{}

func NewVoid() *Void { return &Void{} }

func (v *Void) Publish(topic string, payload []byte) bool { return true }

func (v *Void) StartListening(topics []string, queue chan<- core.InboundMessage) bool { return true }

func (v *Void) Disconnect() {}

func (v *Void) GetDeviceID() string { return "" }

func (v *Void) SetMetrics(reg *metrics.Registry, pipelineLabel string) {}

func (v *Void) SetMaxMsgSec(n int) {}

func (v *Void) SetSleepSec(s float64) {}
