package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeiot/zeppelin/internal/analyticsstore"
	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/metrics"
	"github.com/edgeiot/zeppelin/internal/objectstore/fsstore"
	"github.com/edgeiot/zeppelin/internal/processor"
	"github.com/edgeiot/zeppelin/internal/syncjournal"
)

func TestBuild_ConstructsOneRunnerPerPipeline(t *testing.T) {
	cfgs := []config.PipelineConfig{
		{
			Name:  "p1",
			Class: "generic",
			SourceBroker: config.BrokerConfig{
				Class: "void",
			},
			DestinationBroker: config.BrokerConfig{
				Class: "void",
				Topic: "out/topic",
			},
			ThreadIntervalSec: 1,
		},
	}

	set, errs := Build(cfgs, BuildOptions{Metrics: metrics.NewRegistry()})
	assert.Empty(t, errs)
	require.Len(t, set.runners, 1)
	assert.Equal(t, []string{"p1"}, set.Names())
}

func TestBuild_UnrecognizedSourceClassIsSkippedNotFatal(t *testing.T) {
	cfgs := []config.PipelineConfig{
		{
			Name:              "bad",
			Class:             "generic",
			SourceBroker:      config.BrokerConfig{Class: "nonsense"},
			DestinationBroker: config.BrokerConfig{Class: "void"},
			ThreadIntervalSec: 1,
		},
		{
			Name:              "good",
			Class:             "generic",
			SourceBroker:      config.BrokerConfig{Class: "void"},
			DestinationBroker: config.BrokerConfig{Class: "void"},
			ThreadIntervalSec: 1,
		},
	}

	set, errs := Build(cfgs, BuildOptions{Metrics: metrics.NewRegistry()})
	require.Len(t, errs, 1)
	require.Len(t, set.runners, 1)
	assert.Equal(t, "good", set.runners[0].Name())
}

func TestBuild_UnrecognizedProcessorClassErrors(t *testing.T) {
	cfgs := []config.PipelineConfig{
		{
			Name:              "p1",
			Class:             "nonsense",
			SourceBroker:      config.BrokerConfig{Class: "void"},
			DestinationBroker: config.BrokerConfig{Class: "void"},
			ThreadIntervalSec: 1,
		},
	}

	set, errs := Build(cfgs, BuildOptions{Metrics: metrics.NewRegistry()})
	require.Len(t, errs, 1)
	assert.Empty(t, set.runners)
}

func TestBuild_WiresReassemblyWhenEnabled(t *testing.T) {
	cfgs := []config.PipelineConfig{
		{
			Name:              "photos",
			Class:             "generic",
			SourceBroker:      config.BrokerConfig{Class: "void"},
			DestinationBroker: config.BrokerConfig{Class: "void"},
			ThreadIntervalSec: 1,
			Config:            map[string]interface{}{"reassembly": true},
		},
	}

	set, errs := Build(cfgs, BuildOptions{
		Metrics:        metrics.NewRegistry(),
		ObjectStore:    fsstore.New(t.TempDir()),
		AnalyticsStore: analyticsstore.NewMemStore(),
	})
	require.Empty(t, errs)
	require.Len(t, set.runners, 1)
	gen, ok := set.runners[0].proc.(*processor.Generic)
	require.True(t, ok)
	assert.NotNil(t, gen.Reassembly)
}

func TestBuild_WiresSyncJournalIntoEveryProcessor(t *testing.T) {
	cfgs := []config.PipelineConfig{
		{
			Name:              "p1",
			Class:             "generic",
			SourceBroker:      config.BrokerConfig{Class: "void"},
			DestinationBroker: config.BrokerConfig{Class: "void", Topic: "out/topic"},
			ThreadIntervalSec: 1,
		},
	}

	journal := syncjournal.New(&config.SyncIoTConfig{}, syncjournal.NewMemSink())
	set, errs := Build(cfgs, BuildOptions{
		Metrics:     metrics.NewRegistry(),
		SyncJournal: journal,
	})
	require.Empty(t, errs)
	require.Len(t, set.runners, 1)
	assert.Equal(t, "p1", set.runners[0].Name())
	gen, ok := set.runners[0].proc.(*processor.Generic)
	require.True(t, ok)
	assert.Same(t, journal, gen.SyncJournal)
}
