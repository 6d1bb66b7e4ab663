package pipeline

import (
	"fmt"
	"time"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/processor"
	"github.com/edgeiot/zeppelin/internal/reassembly"
	"github.com/edgeiot/zeppelin/internal/rules"
	"github.com/edgeiot/zeppelin/internal/schema"
	"github.com/edgeiot/zeppelin/internal/transport"
)

// Set is the full collection of running Pipeline Runners constructed from
// one GlobalConfig (spec.md §2's "main loads config -> constructs all
// pipelines" control flow).
type Set struct {
	runners []*Runner
}

// BuildOptions carries the process-wide collaborators every pipeline shares:
// the metrics registry, the global validation units, and the reassembly
// engine's persistence backends (only wired into pipelines whose config map
// sets "reassembly" to true).
type BuildOptions struct {
	Metrics        *metrics.Registry
	GlobalUnits    []string
	ObjectStore    reassembly.ObjectStore
	AnalyticsStore reassembly.AnalyticsStore
	PhotoTimeout   time.Duration

	// SyncJournal, when non-nil, is wired into every pipeline's
	// ProcessorCore so every published envelope is offered to the
	// sync-to-warehouse journal's route matching.
	SyncJournal processor.SyncJournalHook
}

// Build constructs one Runner per PipelineConfig. A single pipeline
// construction failure is logged and skipped rather than aborting the
// whole set, so one misconfigured pipeline never blocks the others
// (spec.md §7's per-pipeline failure isolation).
func Build(cfgs []config.PipelineConfig, opts BuildOptions) (*Set, []error) {
	var errs []error
	set := &Set{}

	for _, cfg := range cfgs {
		r, err := buildOne(cfg, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("pipeline %q: %w", cfg.Name, err))
			continue
		}
		set.runners = append(set.runners, r)
	}

	return set, errs
}

func buildOne(cfg config.PipelineConfig, opts BuildOptions) (*Runner, error) {
	source := transport.New(cfg.SourceBroker)
	if source == nil {
		return nil, fmt.Errorf("source_broker: unrecognized or invalid class %q", cfg.SourceBroker.Class)
	}
	destination := transport.New(cfg.DestinationBroker)
	if destination == nil {
		return nil, fmt.Errorf("destination_broker: unrecognized or invalid class %q", cfg.DestinationBroker.Class)
	}

	source.SetMetrics(opts.Metrics, cfg.Name)
	destination.SetMetrics(opts.Metrics, cfg.Name)

	var sch *schema.Schema
	if cfg.JSONSchema != "" {
		loaded, err := schema.Load(cfg.JSONSchema)
		if err != nil {
			return nil, fmt.Errorf("json_schema: %w", err)
		}
		sch = loaded
	}

	engine := rules.New(cfg.ValidationRules.Units, opts.GlobalUnits, cfg.ApplyGlobalValidationRules)

	core := &processor.ProcessorCore{
		Pipeline:                cfg.Name,
		Metrics:                 opts.Metrics,
		Destination:             destination,
		SourceDeviceID:          source.GetDeviceID(),
		HasCloudEvent:           cfg.SourceBroker.HasCloudEvent,
		MaxPayloadSizeBytes:     cfg.MaxPayloadSizeBytes,
		CloudEventTemplate:      cfg.CloudEvent,
		Schema:                  sch,
		Rules:                   engine,
		DestinationTopicDefault: defaultTopic(cfg.DestinationBroker.Topic),
		DeviceIDAttributeName:   cfg.DeviceIDAttributeName,
		PopulateCEAttributes:    cfg.PopulateCEAttributes,
		DataTypes:               cfg.DataTypes,
		SyncJournal:             opts.SyncJournal,
	}

	if reassemblyEnabled(cfg) && opts.ObjectStore != nil && opts.AnalyticsStore != nil {
		core.Reassembly = reassembly.NewEngine(opts.ObjectStore, opts.AnalyticsStore, opts.Metrics, cfg.Name, opts.PhotoTimeout)
	}

	proc := processor.New(cfg.Class, core, cfg.Config)
	if proc == nil {
		return nil, fmt.Errorf("class: unrecognized processor tag %q", cfg.Class)
	}

	return New(cfg, opts.Metrics, source, destination, proc), nil
}

// reassemblyEnabled reports whether a pipeline's config map opts into the
// Block Reassembly Engine, per spec.md §2 ("invoked by a Generic-style
// processor for camera events").
func reassemblyEnabled(cfg config.PipelineConfig) bool {
	if cfg.Config == nil {
		return false
	}
	enabled, _ := cfg.Config["reassembly"].(bool)
	return enabled
}

func defaultTopic(topic interface{}) string {
	switch t := topic.(type) {
	case string:
		return t
	case []interface{}:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}
	return ""
}

// Start starts every runner in the set. A single runner failing to start
// listening is logged by Runner.Start itself and does not block the
// others; every such failure is collected and returned so the caller can
// decide how to treat a partially-started set (daemon.Start treats "every
// runner failed" as fatal, matching spec.md §6's pipeline-start-failure
// exit code).
func (s *Set) Start() []error {
	var errs []error
	for _, r := range s.runners {
		if err := r.Start(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Stop signals every runner to stop, then waits for all of them to exit.
func (s *Set) Stop() {
	for _, r := range s.runners {
		r.Stop()
	}
	for _, r := range s.runners {
		r.Join()
	}
}

// Names returns every runner's pipeline name, for status reporting.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.runners))
	for _, r := range s.runners {
		names = append(names, r.Name())
	}
	return names
}
