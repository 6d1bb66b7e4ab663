// Package pipeline implements the Pipeline Runner (C8): one long-lived
// worker per configured pipeline that owns a source and destination
// Transport, drains its inbound queue, and invokes its Processor.
//
// The control-flow shape (context/cancel, WaitGroup, a buffered channel fed
// by an asynchronous producer, a queue-depth accessor) is the same one the
// capture-agent lineage used for its packet pipeline; only the inner loop
// changes, from a decode/parse/process/report chain to the drain-fully-
// then-sleep loop spec.md §4.8 describes.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/core"
	"github.com/edgeiot/zeppelin/internal/log"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/processor"
	"github.com/edgeiot/zeppelin/internal/transport"
	"github.com/edgeiot/zeppelin/internal/zeppelinerr"
)

// inboxCapacity bounds the channel a source Transport pushes into. The
// queue is logically unbounded per spec.md §4.8; a very large buffer
// approximates that without an unbounded-growth goroutine, since a
// Transport's own receive thread (MQTT loop, cloud SDK callback) is the
// only producer and backs off naturally under TCP/AMQP flow control.
const inboxCapacity = 100000

// Runner is one Pipeline Runner instance: init -> start -> stop/join.
type Runner struct {
	name           string
	source         transport.Transport
	destination    transport.Transport
	proc           processor.Processor
	metrics        *metrics.Registry
	threadInterval time.Duration
	topics         []string

	queue chan core.InboundMessage

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	stopped atomic.Bool
}

// New constructs a Runner from a pipeline's configuration and already-built
// collaborators (source Transport, destination Transport, Processor).
func New(cfg config.PipelineConfig, reg *metrics.Registry, source, destination transport.Transport, proc processor.Processor) *Runner {
	interval := cfg.ThreadIntervalSec
	if interval <= 0 {
		interval = 1.0
	}

	var topics []string
	switch t := cfg.SourceBroker.Topic.(type) {
	case string:
		if t != "" {
			topics = []string{t}
		}
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok {
				topics = append(topics, s)
			}
		}
	case []string:
		topics = t
	}

	return &Runner{
		name:           cfg.Name,
		source:         source,
		destination:    destination,
		proc:           proc,
		metrics:        reg,
		threadInterval: time.Duration(interval * float64(time.Second)),
		topics:         topics,
		queue:          make(chan core.InboundMessage, inboxCapacity),
	}
}

// Start subscribes the source Transport and launches the drain loop.
// Calling Start more than once is a no-op.
func (r *Runner) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())

	ok := r.source.StartListening(r.topics, r.queue)

	r.wg.Add(1)
	go r.loop()

	if !ok {
		log.GetLogger().WithField("pipeline", r.name).Error("pipeline runner: source transport failed to start listening")
		return fmt.Errorf("pipeline %q: %w", r.name, zeppelinerr.ErrTransportFatal)
	}

	log.GetLogger().WithField("pipeline", r.name).Info("pipeline runner started")
	return nil
}

// Stop signals the loop to exit and disconnects both transports. It does
// not wait for an in-flight drain to complete, per spec.md §4.8's "drains
// are not guaranteed to complete" stop semantics. Call Join to wait.
func (r *Runner) Stop() {
	if !r.stopped.CompareAndSwap(false, true) {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.source.Disconnect()
	r.destination.Disconnect()
}

// Join blocks until the runner's loop goroutine has exited.
func (r *Runner) Join() {
	r.wg.Wait()
}

// loop drains the queue fully (non-blocking), invokes the Processor on
// each message, then sleeps thread_interval_sec before the next sweep.
func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.threadInterval)
	defer ticker.Stop()

	for {
		r.drain()

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) drain() {
	for {
		select {
		case msg, ok := <-r.queue:
			if !ok {
				return
			}
			r.process(msg)
		default:
			return
		}
		select {
		case <-r.ctx.Done():
			return
		default:
		}
	}
}

func (r *Runner) process(msg core.InboundMessage) {
	if r.metrics != nil {
		r.metrics.RxMessageTotal.WithLabelValues(r.name).Inc()
	}
	r.proc.Process(msg)
}

// QueueDepth reports the number of messages currently buffered.
func (r *Runner) QueueDepth() int {
	return len(r.queue)
}

// Name returns the pipeline's configured name.
func (r *Runner) Name() string { return r.name }
